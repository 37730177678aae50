package imapclient

import (
	"github.com/luhaoyun888/go-imapdriver/driver"
)

// Driver 把连接池作为 driver.Driver 提供，认领 "{host...}mailbox" 形式的邮箱名。
type Driver struct {
	Pool *Pool
}

var _ driver.Driver = (*Driver)(nil)

// Name 返回 "imap"。
func (d *Driver) Name() string {
	return "imap"
}

// Valid 报告 name 是否是合法的网络邮箱名。
func (d *Driver) Valid(name string) bool {
	if !IsNetMailbox(name) {
		return false
	}
	_, err := ParseNetMailbox(name)
	return err == nil
}

// Open 从连接池取得选中了该邮箱的会话。
func (d *Driver) Open(name string) (driver.Stream, error) {
	c, err := d.Pool.Open(name)
	if err != nil {
		return nil, err
	}
	return &pooledStream{Client: c, pool: d.Pool}, nil
}

// pooledStream 在 Close 时把会话归还连接池，而不是断开连接。
type pooledStream struct {
	*Client
	pool *Pool
}

func (s *pooledStream) Close() error {
	if s.Client == nil {
		return nil
	}
	s.pool.Release(s.Client)
	s.Client = nil
	return nil
}
