package imapclient

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/luhaoyun888/go-imapdriver"
)

// ErrTooManyReferrals 表示引荐链超过了 Config.MaxReferralHops。
var ErrTooManyReferrals = errors.New("imapclient: 引荐次数过多")

// ReferralHandler 为 [REFERRAL] 响应打开目标会话。
//
// Follow 返回已认证的目标会话，以及 URL 中的邮箱名。hop 从 1 开始。
// Pool 实现了这个接口。
type ReferralHandler interface {
	Follow(url string, hop int) (target *Client, mailbox string, err error)
}

// IMAPURL 是 RFC 2192 形式的 IMAP URL：imap://[user@]host[:port]/mailbox。
type IMAPURL struct {
	User    string
	Host    string // 总是带端口
	Mailbox string
}

// ParseIMAPURL 解析 [REFERRAL] 中的 URL。";UIDVALIDITY=" 之类的参数被忽略。
func ParseIMAPURL(s string) (*IMAPURL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("imapclient: 无效的 IMAP URL %q: %w", s, err)
	}
	if !strings.EqualFold(u.Scheme, "imap") {
		return nil, fmt.Errorf("imapclient: 不是 IMAP URL: %q", s)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("imapclient: IMAP URL 缺少主机: %q", s)
	}

	out := &IMAPURL{Host: u.Host}
	if u.Port() == "" {
		out.Host = net.JoinHostPort(u.Hostname(), "143")
	}
	if u.User != nil {
		out.User = strings.SplitN(u.User.Username(), ";", 2)[0]
	}
	mailbox := strings.TrimPrefix(u.Path, "/")
	if i := strings.IndexByte(mailbox, ';'); i >= 0 {
		mailbox = mailbox[:i]
	}
	out.Mailbox = strings.TrimSuffix(mailbox, "/")
	return out, nil
}

// referralOf 返回 err 中 [REFERRAL] 的目标 URL。
func referralOf(err error) (string, bool) {
	var imapErr *imap.Error
	if !errors.As(err, &imapErr) || imapErr.Code != imap.ResponseCodeReferral || imapErr.Arg == "" {
		return "", false
	}
	return imapErr.Arg, true
}

// followReferral 在 err 带有 [REFERRAL] 时对目标会话重试 op。
//
// op 在持有目标会话命令锁的情况下执行，mailbox 是 URL 中的邮箱名。
// 目标再次引荐时继续跟随，总次数不超过 Config.MaxReferralHops。
// 没有配置 ReferralHandler 时原样返回 err。
func (c *Client) followReferral(err error, op func(target *Client, mailbox string) error) error {
	ref, ok := referralOf(err)
	if !ok || c.options.Referral == nil {
		return err
	}

	for hop := 1; ; hop++ {
		if hop > c.cfg.MaxReferralHops {
			return ErrTooManyReferrals
		}
		c.log.WithField("referral", ref).WithField("hop", hop).Info("imapclient: 跟随引荐")

		target, mailbox, followErr := c.options.Referral.Follow(ref, hop)
		if followErr != nil {
			return followErr
		}
		if target == c {
			return fmt.Errorf("imapclient: 引荐指向了当前会话: %v", ref)
		}

		target.cmdMu.Lock()
		err = op(target, mailbox)
		target.cmdMu.Unlock()

		if ref, ok = referralOf(err); !ok {
			return err
		}
	}
}
