// Package config 读取 imapcli 的 YAML 配置文件。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/luhaoyun888/go-imapdriver/imapclient"
)

// Account 是配置文件中的一个邮箱账户。
type Account struct {
	// Name 是 --account 使用的名称。
	Name string `mapstructure:"name" yaml:"name"`
	// Server 是网络邮箱前缀，例如 "{imap.example.org/ssl}"。
	Server string `mapstructure:"server" yaml:"server"`
	// User 是登录名，也是密钥环中密码的键。
	User string `mapstructure:"user" yaml:"user"`
}

// Mailbox 返回该账户下 mailbox 的完整网络邮箱名。
func (a *Account) Mailbox(mailbox string) string {
	mbx, err := imapclient.ParseNetMailbox(a.Server)
	if err != nil {
		return a.Server + mailbox
	}
	if mbx.User == "" {
		mbx.User = a.User
	}
	mbx.Mailbox = mailbox
	return mbx.String()
}

// File 是整个配置文件。
type File struct {
	IMAP     imapclient.Config `mapstructure:"imap" yaml:"imap"`
	Accounts []Account         `mapstructure:"accounts" yaml:"accounts"`
}

// Account 按名称查找账户。name 为空时返回第一个账户。
func (f *File) Account(name string) (*Account, error) {
	if len(f.Accounts) == 0 {
		return nil, errors.New("config: 没有配置任何账户")
	}
	if name == "" {
		return &f.Accounts[0], nil
	}
	for i := range f.Accounts {
		if f.Accounts[i].Name == name {
			return &f.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("config: 未知的账户 %q", name)
}

// DefaultPath 返回 ~/.config/imapcli/config.yaml。
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "imapcli", "config.yaml")
}

// Load 读取 path 指向的 YAML 文件。文件不存在时返回默认配置。
func Load(path string) (*File, error) {
	def := imapclient.DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("imap.max_login_trials", def.MaxLoginTrials)
	v.SetDefault("imap.lookahead", def.LookAhead)
	v.SetDefault("imap.uid_lookahead", def.UIDLookAhead)
	v.SetDefault("imap.max_command_length", def.MaxCommandLength)
	v.SetDefault("imap.max_referral_hops", def.MaxReferralHops)
	v.SetDefault("imap.short_cache", def.ShortCache)
	v.SetDefault("imap.prefetch", def.Prefetch)
	v.SetDefault("imap.dial_timeout", def.DialTimeout)
	v.SetDefault("imap.pool_idle_ttl", def.PoolIdleTTL)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return &File{IMAP: *def}, nil
		}
		return nil, fmt.Errorf("config: 读取 %s 失败: %w", path, err)
	}

	f := &File{IMAP: *def}
	if err := v.Unmarshal(f); err != nil {
		return nil, fmt.Errorf("config: 解析 %s 失败: %w", path, err)
	}
	for i, acct := range f.Accounts {
		if acct.Name == "" {
			f.Accounts[i].Name = acct.User
		}
		if !imapclient.IsNetMailbox(acct.Server) {
			return nil, fmt.Errorf("config: 账户 %q 的 server 不是网络邮箱名: %q", f.Accounts[i].Name, acct.Server)
		}
	}
	return f, nil
}
