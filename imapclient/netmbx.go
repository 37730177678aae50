package imapclient

import (
	"fmt"
	"net"
	"strings"
)

// Security 是连接服务器时使用的传输安全方式。
type Security int

const (
	// SecurityDefault 先明文连接，服务器通告 STARTTLS 时升级。
	SecurityDefault Security = iota
	SecurityTLS              // /ssl：隐式 TLS，默认端口 993
	SecurityStartTLS         // /tls：必须 STARTTLS
	SecurityNone             // /notls：不使用 TLS
)

// NetMailbox 是 "{host[:port][/ssl|/tls|/notls][/user=name]}mailbox" 形式的网络邮箱名。
type NetMailbox struct {
	Host     string // 总是带端口
	Security Security
	User     string
	Mailbox  string
}

// IsNetMailbox 报告 name 是否是网络邮箱名。
func IsNetMailbox(name string) bool {
	return strings.HasPrefix(name, "{") && strings.Contains(name, "}")
}

// ParseNetMailbox 解析网络邮箱名。邮箱部分为空时表示只连接服务器。
func ParseNetMailbox(name string) (*NetMailbox, error) {
	if !strings.HasPrefix(name, "{") {
		return nil, fmt.Errorf("imapclient: 网络邮箱名必须以 '{' 开头: %q", name)
	}
	end := strings.IndexByte(name, '}')
	if end < 0 {
		return nil, fmt.Errorf("imapclient: 网络邮箱名缺少 '}': %q", name)
	}

	fields := strings.Split(name[1:end], "/")
	mbx := &NetMailbox{Mailbox: name[end+1:]}
	for _, flag := range fields[1:] {
		key, value, _ := strings.Cut(flag, "=")
		switch strings.ToLower(key) {
		case "ssl":
			mbx.Security = SecurityTLS
		case "tls":
			mbx.Security = SecurityStartTLS
		case "notls":
			mbx.Security = SecurityNone
		case "user":
			mbx.User = value
		case "imap", "imap4", "imap4rev1", "service":
		default:
			return nil, fmt.Errorf("imapclient: 网络邮箱名中未知的选项 /%v: %q", flag, name)
		}
	}

	host := fields[0]
	if host == "" {
		return nil, fmt.Errorf("imapclient: 网络邮箱名缺少主机: %q", name)
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		port := "143"
		if mbx.Security == SecurityTLS {
			port = "993"
		}
		host = net.JoinHostPort(strings.Trim(host, "[]"), port)
	}
	mbx.Host = strings.ToLower(host)
	return mbx, nil
}

// Prefix 返回 "{host:port/flags}"，可以用作 ListOptions.Prefix。
func (mbx *NetMailbox) Prefix() string {
	var sb strings.Builder
	sb.WriteString("{" + mbx.Host)
	switch mbx.Security {
	case SecurityTLS:
		sb.WriteString("/ssl")
	case SecurityStartTLS:
		sb.WriteString("/tls")
	case SecurityNone:
		sb.WriteString("/notls")
	}
	if mbx.User != "" {
		sb.WriteString("/user=" + mbx.User)
	}
	sb.WriteString("}")
	return sb.String()
}

func (mbx *NetMailbox) String() string {
	return mbx.Prefix() + mbx.Mailbox
}
