package imapwire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// Source 是解码器读取后续数据的来源。
// ReadLine 返回去掉 CRLF 的一行；ReadLiteral 精确读取 n 个字节写入 w。
type Source interface {
	ReadLine() ([]byte, error)
	ReadLiteral(w io.Writer, n int64) error
}

// LineReader 在 bufio.Reader 之上实现 Source。
type LineReader struct {
	br *bufio.Reader
}

var _ Source = (*LineReader)(nil)

// NewLineReader 创建一个新的 LineReader。
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{br: bufio.NewReader(r)}
}

// ReadLine 读取一行，允许超过缓冲区大小的长行。
func (lr *LineReader) ReadLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := lr.br.ReadSlice('\n')
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		} else if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		break
	}
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line, nil
}

// ReadLiteral 精确读取 n 个字节。无论底层读取如何分块，都不会多读或少读。
// w 为 nil 时丢弃内容。
func (lr *LineReader) ReadLiteral(w io.Writer, n int64) error {
	if w == nil {
		w = io.Discard
	}
	copied, err := io.CopyN(w, lr.br, n)
	if err != nil {
		if errors.Is(err, io.EOF) && copied < n {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// Buffered 返回已缓冲但尚未读取的字节。STARTTLS 升级前必须为空。
func (lr *LineReader) Buffered() int {
	return lr.br.Buffered()
}

// Reset 让 LineReader 改为从 r 读取，丢弃原有的缓冲数据。
func (lr *LineReader) Reset(r io.Reader) {
	lr.br.Reset(r)
}
