package imapclient

import (
	"crypto/tls"
	"net"

	"github.com/luhaoyun888/go-imapdriver"
)

// StartTLS 发送 STARTTLS 并在服务器同意后把传输层升级为 TLS。
//
// 升级之后能力被丢弃并重新获取，服务器可能在 TLS 下通告不同的认证方式。
// config 为 nil 时使用 Options.TLSConfig。
func (c *Client) StartTLS(config *tls.Config) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.dead != nil {
		return c.dead
	}
	if !c.caps.Has(imap.CapStartTLS) {
		return ErrNotSupported
	}
	if config == nil {
		config = c.options.tlsConfig()
	}
	if err := c.execute("STARTTLS", nil); err != nil {
		return err
	}
	if err := c.t.StartTLS(config); err != nil {
		c.fatal(err)
		return c.dead
	}

	c.caps = nil
	c.authMechs = nil
	return c.capability()
}

func (options *Options) dialer() *net.Dialer {
	return &net.Dialer{Timeout: options.Config.withDefaults().DialTimeout}
}

// DialInsecure 连接到不使用 TLS 的 IMAP 服务器。
func DialInsecure(address string, options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	conn, err := options.dialer().Dial("tcp", address)
	if err != nil {
		return nil, err
	}
	return New(NewTransport(conn), options)
}

// DialTLS 连接到使用隐式 TLS 的 IMAP 服务器。
func DialTLS(address string, options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	tlsConfig := options.tlsConfig()
	if tlsConfig.NextProtos == nil {
		tlsConfig.NextProtos = []string{"imap"}
	}

	conn, err := tls.DialWithDialer(options.dialer(), "tcp", address, tlsConfig)
	if err != nil {
		return nil, err
	}
	return New(NewTransport(conn), options)
}

// DialStartTLS 连接到 IMAP 服务器，并在认证之前发送 STARTTLS。
func DialStartTLS(address string, options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	conn, err := options.dialer().Dial("tcp", address)
	if err != nil {
		return nil, err
	}

	tlsConfig := options.tlsConfig()
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = host
	}

	c, err := New(NewTransport(conn), options)
	if err != nil {
		return nil, err
	}
	if err := c.StartTLS(tlsConfig); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
