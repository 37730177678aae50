package imapclient

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// Transport 是会话使用的字节流。所有方法都是阻塞的。
//
// ReadLine 返回去掉 CRLF 的一行；ReadLiteral 精确读取 n 个字节写入 w；
// Write 的数据在 Flush 之前可以被缓冲。
type Transport interface {
	imapwire.Source
	io.Writer
	Flush() error
	// StartTLS 把连接升级为 TLS。缓冲区中不能有尚未读取的数据。
	StartTLS(config *tls.Config) error
	Close() error
}

// connTransport 是基于 net.Conn 的 Transport。
type connTransport struct {
	conn net.Conn
	lr   *imapwire.LineReader
	bw   *bufio.Writer
}

var _ Transport = (*connTransport)(nil)

// NewTransport 用 net.Conn 创建一个 Transport。
func NewTransport(conn net.Conn) Transport {
	return &connTransport{
		conn: conn,
		lr:   imapwire.NewLineReader(conn),
		bw:   bufio.NewWriter(conn),
	}
}

func (t *connTransport) ReadLine() ([]byte, error) {
	return t.lr.ReadLine()
}

func (t *connTransport) ReadLiteral(w io.Writer, n int64) error {
	return t.lr.ReadLiteral(w, n)
}

func (t *connTransport) Write(b []byte) (int, error) {
	return t.bw.Write(b)
}

func (t *connTransport) Flush() error {
	return t.bw.Flush()
}

func (t *connTransport) StartTLS(config *tls.Config) error {
	// 继续请求之后服务器不应再发送任何明文数据
	if n := t.lr.Buffered(); n > 0 {
		return fmt.Errorf("imapclient: STARTTLS 之前缓冲区中还有 %v 字节未读数据", n)
	}
	if err := t.bw.Flush(); err != nil {
		return err
	}

	tlsConn := tls.Client(t.conn, config)
	if err := tlsConn.Handshake(); err != nil {
		return err
	}

	t.conn = tlsConn
	t.lr.Reset(tlsConn)
	t.bw.Reset(tlsConn)
	return nil
}

func (t *connTransport) Close() error {
	err := t.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// streamTransport 是基于任意读写流的 Transport，不支持 STARTTLS。
type streamTransport struct {
	lr     *imapwire.LineReader
	bw     *bufio.Writer
	closer io.Closer
	closed bool
}

// NewStreamTransport 用一对读写流创建 Transport，例如管道或已经建立好的隧道。
// 如果 r 实现了 io.Closer，Close 会关闭它。
func NewStreamTransport(r io.Reader, w io.Writer) Transport {
	t := &streamTransport{
		lr: imapwire.NewLineReader(r),
		bw: bufio.NewWriter(w),
	}
	if c, ok := r.(io.Closer); ok {
		t.closer = c
	}
	return t
}

func (t *streamTransport) ReadLine() ([]byte, error) {
	if t.closed {
		return nil, net.ErrClosed
	}
	return t.lr.ReadLine()
}

func (t *streamTransport) ReadLiteral(w io.Writer, n int64) error {
	if t.closed {
		return net.ErrClosed
	}
	return t.lr.ReadLiteral(w, n)
}

func (t *streamTransport) Write(b []byte) (int, error) {
	if t.closed {
		return 0, net.ErrClosed
	}
	return t.bw.Write(b)
}

func (t *streamTransport) Flush() error {
	if t.closed {
		return net.ErrClosed
	}
	return t.bw.Flush()
}

func (t *streamTransport) StartTLS(*tls.Config) error {
	return errors.New("imapclient: 该传输层不支持 STARTTLS")
}

func (t *streamTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
