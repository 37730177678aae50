package imapclient

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// ErrNotSupported 表示服务器的方言或能力不支持所请求的操作。
var ErrNotSupported = errors.New("imapclient: 服务器不支持该操作")

// errLiteralRefused 表示服务器没有给出继续请求，而是直接结束了命令。
var errLiteralRefused = errors.New("imapclient: 服务器拒绝了字面量")

// nextTag 生成下一个命令标签，形如 "0000002a"。
func (c *Client) nextTag() string {
	c.cmdTag++
	return fmt.Sprintf("%08x", c.cmdTag)
}

// execute 发送一条命令，分派收到的所有未标记响应，直到看到该命令的带标签响应。
// 调用方必须持有命令锁。args 为 nil 表示命令没有参数。
//
// 连接已断开时不做任何 I/O，直接返回 [CLOSED] 错误。
func (c *Client) execute(name string, args func(enc *imapwire.Encoder)) error {
	if c.dead != nil {
		return c.dead
	}

	tag := c.nextTag()
	var final *imapwire.Reply

	enc := imapwire.NewEncoder(c.t)
	enc.Trace = c.traceCommand
	enc.Continue = func() error {
		if reply := c.awaitContinuation(tag); reply != nil {
			final = reply
			return errLiteralRefused
		}
		if c.dead != nil {
			return c.dead
		}
		return nil
	}

	enc.Atom(tag).SP().Atom(name)
	if args != nil {
		args(enc)
	}
	err := enc.CRLF()
	switch {
	case final != nil:
		// 字面量被拒绝，命令已经结束
	case c.dead != nil:
		return c.dead
	case err != nil:
		c.fatal(err)
		return c.dead
	default:
		final = c.awaitTagged(tag)
	}
	if final == nil {
		return c.dead
	}
	return c.replyError(final)
}

// awaitContinuation 等待同步字面量的继续请求。
//
// 收到继续请求时返回 nil；服务器直接以带标签响应结束命令时返回该响应；
// 连接断开时返回 nil，调用方需要检查 c.dead。
func (c *Client) awaitContinuation(tag string) *imapwire.Reply {
	for {
		reply := c.readReply()
		if c.dead != nil {
			return nil
		}
		switch {
		case reply == nil:
			continue
		case reply.IsContinuation():
			return nil
		case reply.IsUntagged():
			c.dispatch(reply)
		case reply.Tag == tag:
			return reply
		default:
			c.log.WithField("tag", reply.Tag).Warn("imapclient: 丢弃标签不匹配的响应")
			c.discard(reply)
		}
	}
}

// awaitTagged 读取响应直到收到 tag 的带标签响应。连接断开时返回 nil。
func (c *Client) awaitTagged(tag string) *imapwire.Reply {
	for {
		reply := c.readReply()
		if c.dead != nil {
			return nil
		}
		switch {
		case reply == nil:
			continue
		case reply.IsContinuation():
			c.log.WithField("text", reply.Text).Warn("imapclient: 忽略意外的继续请求")
			c.discard(reply)
		case reply.IsUntagged():
			c.dispatch(reply)
		case reply.Tag == tag:
			return reply
		default:
			c.log.WithField("tag", reply.Tag).Warn("imapclient: 丢弃标签不匹配的响应")
			c.discard(reply)
		}
	}
}

// discard 丢弃一条不处理的响应，连同行尾字面量一起读走。
func (c *Client) discard(reply *imapwire.Reply) {
	imapwire.NewDecoder(c.source(), reply.Text).Drain()
}

// replyError 处理带标签响应中的响应代码，并把 NO/BAD 转换为 *imap.Error。
func (c *Client) replyError(reply *imapwire.Reply) error {
	c.reply = reply
	resp := c.handleRespText(imap.StatusResponseType(reply.Key), reply.Text)
	switch reply.Key {
	case "OK":
		return nil
	case "BAD":
		c.log.WithField("text", reply.Text).Error("imapclient: 服务器拒绝了命令")
		fallthrough
	case "NO":
		return (*imap.Error)(resp)
	default:
		return fmt.Errorf("imapclient: 无效的带标签响应状态 %q", reply.Key)
	}
}

// readReply 读取并拆分一行响应。
//
// 无法识别的行被记录后丢弃，此时返回 nil；传输层出错时连接被标记为断开，同样返回 nil。
func (c *Client) readReply() *imapwire.Reply {
	if c.dead != nil {
		return nil
	}
	line, err := c.t.ReadLine()
	if err != nil {
		c.fatal(err)
		return nil
	}
	c.traceServer(string(line))

	reply, err := imapwire.ParseReply(string(line))
	if err != nil {
		c.log.WithField("line", string(line)).Warn("imapclient: 忽略无法识别的响应行")
		imapwire.NewDecoder(c.source(), string(line)).Drain()
		return nil
	}
	return reply
}

// fatal 把连接标记为断开。之后的操作不会再做任何 I/O。
func (c *Client) fatal(err error) {
	if c.dead != nil {
		return
	}
	text := "IMAP connection broken"
	if c.byeSeen {
		text = "IMAP connection closed by server"
	}
	c.dead = &imap.Error{
		Type: imap.StatusResponseTypeNo,
		Code: imap.ResponseCodeClosed,
		Text: fmt.Sprintf("%v (%v)", text, err),
	}
	c.reply = &imapwire.Reply{Tag: "*", Key: "NO", Text: "[CLOSED] " + c.dead.Text}
	c.state = imap.ConnStateLogout
	c.mailbox = nil
	c.log.WithError(err).Warn("imapclient: 连接已断开")
	c.t.Close()
}

// executeSplit 对序列集合的每一段各发送一次命令，所有分段在同一次持锁期间完成。
//
// extra 是集合之后参数的大致长度，用于让每条命令不超过 Config.MaxCommandLength。
func (c *Client) executeSplit(name string, set imap.NumSet, extra int, args func(enc *imapwire.Encoder)) error {
	_, err := c.executeChunks(name, c.splitSet(name, set, extra), args)
	return err
}

// splitSet 按 Config.MaxCommandLength 切分集合。
func (c *Client) splitSet(name string, set imap.NumSet, extra int) []string {
	budget := c.cfg.MaxCommandLength - len(name) - extra - 16
	if budget < 16 {
		budget = 16
	}
	return set.Split(budget)
}

// executeChunks 依次发送各段命令，遇到第一个错误时停止，并返回失败的那一段及其之后尚未完成的各段。
func (c *Client) executeChunks(name string, chunks []string, args func(enc *imapwire.Encoder)) ([]string, error) {
	for i, chunk := range chunks {
		err := c.execute(name, func(enc *imapwire.Encoder) {
			enc.SP().Atom(chunk)
			if args != nil {
				args(enc)
			}
		})
		if err != nil {
			return chunks[i:], err
		}
	}
	return nil, nil
}

// joinChunks 把若干段重新组成与 like 同类的集合。
func joinChunks(like imap.NumSet, chunks []string) (imap.NumSet, error) {
	s := strings.Join(chunks, ",")
	if _, ok := like.(imap.UIDSet); ok {
		return imap.ParseUIDSet(s)
	}
	return imap.ParseSeqSet(s)
}

// uidCmdName 在 set 为 UIDSet 时给命令名加上 "UID " 前缀。
func (c *Client) uidCmdName(name string, set imap.NumSet) (string, error) {
	if _, ok := set.(imap.UIDSet); !ok {
		return name, nil
	}
	if !c.dialect.AtLeastIMAP4() {
		return "", ErrNotSupported
	}
	return "UID " + name, nil
}

// traceCommand 以 Debug 级别记录发出的命令行。敏感命令（例如 LOGIN）不记录。
func (c *Client) traceCommand(line string) {
	if c.sensitive {
		return
	}
	c.log.Debugf("C: %v", line)
}

func (c *Client) traceServer(line string) {
	c.log.Debugf("S: %v", line)
}

// source 返回供解码器读取后续行和字面量的数据源。
func (c *Client) source() imapwire.Source {
	return &clientSource{c}
}

// clientSource 在解码器跨行读取时记录协议日志，并在出错时断开连接。
type clientSource struct {
	c *Client
}

func (src *clientSource) ReadLine() ([]byte, error) {
	if src.c.dead != nil {
		return nil, src.c.dead
	}
	line, err := src.c.t.ReadLine()
	if err != nil {
		src.c.fatal(err)
		return nil, err
	}
	src.c.traceServer(string(line))
	return line, nil
}

func (src *clientSource) ReadLiteral(w io.Writer, n int64) error {
	if src.c.dead != nil {
		return src.c.dead
	}
	if err := src.c.t.ReadLiteral(w, n); err != nil {
		src.c.fatal(err)
		return err
	}
	src.c.log.Debugf("S: <%v 字节的字面量>", n)
	return nil
}
