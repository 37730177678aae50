package imapclient

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-sasl"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// ErrAuthCanceled 由 CredentialsFunc 返回，表示用户放弃了登录。认证循环会立即停止。
var ErrAuthCanceled = errors.New("imapclient: 用户取消了认证")

// Credentials 是一次登录尝试使用的凭据。
type Credentials struct {
	Username string
	Password string
}

// CredentialsFunc 为一次登录尝试提供凭据。
//
// mech 是将要使用的 SASL 机制，使用 LOGIN 命令时为 "LOGIN"；trial 从 1 开始。
type CredentialsFunc func(mech string, trial int) (*Credentials, error)

// SASLFactory 用凭据创建一个 SASL 客户端。
type SASLFactory func(cred *Credentials) sasl.Client

// AuthRegistry 是客户端可用的 SASL 机制表，认证时按注册顺序尝试。
type AuthRegistry struct {
	order []string
	mechs map[string]SASLFactory
}

// NewAuthRegistry 创建一个空的机制表。
func NewAuthRegistry() *AuthRegistry {
	return &AuthRegistry{mechs: make(map[string]SASLFactory)}
}

// DefaultAuthRegistry 返回包含 PLAIN、LOGIN、EXTERNAL 和 ANONYMOUS 的机制表。
func DefaultAuthRegistry() *AuthRegistry {
	r := NewAuthRegistry()
	r.Register(sasl.Plain, func(cred *Credentials) sasl.Client {
		return sasl.NewPlainClient("", cred.Username, cred.Password)
	})
	r.Register(sasl.Login, func(cred *Credentials) sasl.Client {
		return sasl.NewLoginClient(cred.Username, cred.Password)
	})
	r.Register(sasl.External, func(cred *Credentials) sasl.Client {
		return sasl.NewExternalClient(cred.Username)
	})
	r.Register(sasl.Anonymous, func(cred *Credentials) sasl.Client {
		return sasl.NewAnonymousClient(cred.Username)
	})
	return r
}

// Register 添加或替换一个机制。
func (r *AuthRegistry) Register(mech string, factory SASLFactory) {
	mech = strings.ToUpper(mech)
	if _, ok := r.mechs[mech]; !ok {
		r.order = append(r.order, mech)
	}
	r.mechs[mech] = factory
}

// Lookup 返回机制的工厂函数，未注册时返回 nil。
func (r *AuthRegistry) Lookup(mech string) SASLFactory {
	return r.mechs[strings.ToUpper(mech)]
}

// Mechanisms 按注册顺序返回机制名。
func (r *AuthRegistry) Mechanisms() []string {
	return append([]string(nil), r.order...)
}

// Auth 认证会话。
//
// 对服务器通告且本地注册了的每种 SASL 机制，最多尝试 Config.MaxLoginTrials 次；
// 都失败后，如果服务器没有通告 LOGINDISABLED，再用 LOGIN 命令尝试同样次数。
// creds 返回 ErrAuthCanceled 时立即停止并返回该错误。
func (c *Client) Auth(creds CredentialsFunc) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.dead != nil {
		return c.dead
	}
	if c.state != imap.ConnStateNotAuthenticated {
		return fmt.Errorf("imapclient: 会话已经认证")
	}

	var lastErr error
	for _, mech := range c.auth.Mechanisms() {
		if _, ok := c.authMechs[mech]; !ok {
			continue
		}
		factory := c.auth.Lookup(mech)
		for trial := 1; trial <= c.cfg.MaxLoginTrials; trial++ {
			cred, err := creds(mech, trial)
			if err != nil {
				return err
			}
			err = c.authenticate(factory(cred))
			if err == nil {
				c.state = imap.ConnStateAuthenticated
				return nil
			}
			if imap.IsClosed(err) {
				return err
			}
			c.log.WithField("mechanism", mech).WithField("trial", trial).WithError(err).Warn("imapclient: 认证失败")
			lastErr = err

			var imapErr *imap.Error
			if errors.As(err, &imapErr) && imapErr.Type == imap.StatusResponseTypeBad {
				break // 服务器不接受该机制
			}
		}
	}

	if c.caps.Has(imap.CapLoginDisabled) {
		if lastErr == nil {
			lastErr = errors.New("imapclient: 服务器禁用了 LOGIN，且没有可用的认证机制")
		}
		return lastErr
	}

	for trial := 1; trial <= c.cfg.MaxLoginTrials; trial++ {
		cred, err := creds("LOGIN", trial)
		if err != nil {
			return err
		}
		err = c.login(cred.Username, cred.Password)
		if err == nil {
			c.state = imap.ConnStateAuthenticated
			return nil
		}
		if imap.IsClosed(err) {
			return err
		}
		c.log.WithField("trial", trial).WithError(err).Warn("imapclient: 登录失败")
		lastErr = err
	}
	return lastErr
}

// Login 只用 LOGIN 命令尝试一次认证。
func (c *Client) Login(username, password string) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.caps.Has(imap.CapLoginDisabled) {
		return ErrNotSupported
	}
	err := c.login(username, password)
	if err == nil {
		c.state = imap.ConnStateAuthenticated
	}
	return err
}

// login 发送 LOGIN 命令。命令行不会被写入协议日志。
func (c *Client) login(username, password string) error {
	c.sensitive = true
	defer func() { c.sensitive = false }()
	return c.execute("LOGIN", func(enc *imapwire.Encoder) {
		enc.SP().String(username).SP().String(password)
	})
}

// Authenticate 用给定的 SASL 客户端发送 AUTHENTICATE 命令，阻塞直到交换结束。
func (c *Client) Authenticate(saslClient sasl.Client) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	err := c.authenticate(saslClient)
	if err == nil {
		c.state = imap.ConnStateAuthenticated
	}
	return err
}

// authenticate 执行 SASL 交换。
//
// 服务器支持 SASL-IR 时初始响应直接跟在命令后面。本地 SASL 客户端出错时
// 发送 "*" 取消交换，然后等待服务器结束命令。
func (c *Client) authenticate(saslClient sasl.Client) error {
	if c.dead != nil {
		return c.dead
	}

	mech, initialResp, err := saslClient.Start()
	if err != nil {
		return err
	}

	c.sensitive = true
	defer func() { c.sensitive = false }()

	tag := c.nextTag()
	enc := imapwire.NewEncoder(c.t)
	enc.Trace = c.traceCommand
	enc.Atom(tag).SP().Atom("AUTHENTICATE").SP().Atom(mech)
	if initialResp != nil && c.caps.Has(imap.CapSASLIR) {
		enc.SP().Atom(internal.EncodeSASL(initialResp))
		initialResp = nil
	}
	if err := enc.CRLF(); err != nil {
		c.fatal(err)
		return c.dead
	}

	var (
		final     *imapwire.Reply
		clientErr error
	)
	for final == nil {
		reply := c.readReply()
		if c.dead != nil {
			return c.dead
		}
		switch {
		case reply == nil:
			continue
		case reply.IsContinuation():
			var resp []byte
			if strings.TrimSpace(reply.Text) == "" && initialResp != nil {
				resp, initialResp = initialResp, nil
			} else {
				var challenge []byte
				challenge, err = internal.DecodeSASL(strings.TrimSpace(reply.Text))
				if err == nil {
					resp, err = saslClient.Next(challenge)
				}
				if err != nil {
					clientErr = err
					c.writeSASLLine("*")
					continue
				}
			}
			c.writeSASLLine(base64.StdEncoding.EncodeToString(resp))
		case reply.IsUntagged():
			c.dispatch(reply)
		case reply.Tag == tag:
			final = reply
		default:
			c.log.WithField("tag", reply.Tag).Warn("imapclient: 丢弃标签不匹配的响应")
		}
	}

	err = c.replyError(final)
	if clientErr != nil && err != nil {
		return fmt.Errorf("imapclient: SASL 交换被取消: %w", clientErr)
	}
	return err
}

// writeSASLLine 写入一行 SASL 响应。写入失败时连接被标记为断开。
func (c *Client) writeSASLLine(line string) {
	if _, err := io.WriteString(c.t, line+"\r\n"); err != nil {
		c.fatal(err)
		return
	}
	if err := c.t.Flush(); err != nil {
		c.fatal(err)
	}
}
