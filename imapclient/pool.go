package imapclient

import (
	"fmt"
	"net"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/luhaoyun888/go-imapdriver"
)

// PoolCredentials 为连接池中的一次登录尝试提供凭据。
type PoolCredentials func(mbx *NetMailbox, mech string, trial int) (*Credentials, error)

// DialFunc 建立到 mbx 所在服务器的会话，返回时已经读取了问候。
type DialFunc func(mbx *NetMailbox, options *Options) (*Client, error)

// Pool 按网络邮箱名复用会话，并负责跟随登录、选择和邮箱操作的引荐。
//
// 同一名称的并发打开只会建立一条连接。空闲超过 Config.PoolIdleTTL 的会话
// 被登出；复用之前先用 NOOP 检查连接是否还活着，失效的会话会被替换。
// Pool 可以在多个 goroutine 中使用。
type Pool struct {
	// Dial 建立新会话，默认为 DialNetMailbox。必须在第一次使用之前设置。
	Dial DialFunc

	options Options
	cfg     *Config
	log     logrus.FieldLogger
	creds   PoolCredentials

	idle  *gocache.Cache
	group singleflight.Group

	mu   sync.Mutex
	refs map[*Client]int
}

var _ ReferralHandler = (*Pool)(nil)

// NewPool 创建连接池。options 用于每个新会话，其中的 Cache 被忽略，
// 每个会话有自己的缓存。
func NewPool(options *Options, creds PoolCredentials) *Pool {
	if options == nil {
		options = &Options{}
	}
	p := &Pool{
		Dial:    DialNetMailbox,
		options: *options,
		cfg:     options.Config.withDefaults(),
		log:     options.logger(),
		creds:   creds,
		refs:    make(map[*Client]int),
	}
	p.options.Cache = nil
	p.options.Referral = p
	p.idle = gocache.New(p.cfg.PoolIdleTTL, p.cfg.PoolIdleTTL/2)
	p.idle.OnEvicted(p.evicted)
	return p
}

// Open 返回 name 对应的会话。name 中带有邮箱时，返回的会话已经选中该邮箱。
//
// 调用方用完之后应当调用 Release。
func (p *Pool) Open(name string) (*Client, error) {
	mbx, err := ParseNetMailbox(name)
	if err != nil {
		return nil, err
	}
	c, err := p.get(mbx, 0)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.refs[c]++
	p.mu.Unlock()
	return c, nil
}

// Release 归还 Open 返回的会话。会话留在池中，直到空闲超时。
func (p *Pool) Release(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refs[c] <= 1 {
		delete(p.refs, c)
		return
	}
	p.refs[c]--
}

// Follow 实现 ReferralHandler：打开 URL 指向的服务器上的已认证会话。
func (p *Pool) Follow(url string, hop int) (*Client, string, error) {
	u, err := ParseIMAPURL(url)
	if err != nil {
		return nil, "", err
	}
	mbx := &NetMailbox{Host: u.Host, User: u.User}
	c, err := p.get(mbx, hop)
	if err != nil {
		return nil, "", err
	}
	return c, u.Mailbox, nil
}

// Close 登出池中的所有会话。
func (p *Pool) Close() {
	p.mu.Lock()
	p.refs = make(map[*Client]int)
	p.mu.Unlock()
	for key := range p.idle.Items() {
		p.idle.Delete(key)
	}
}

// Len 返回池中的会话数。
func (p *Pool) Len() int {
	return p.idle.ItemCount()
}

func (p *Pool) get(mbx *NetMailbox, hop int) (*Client, error) {
	key := mbx.String()
	if c := p.lookup(key); c != nil {
		return c, nil
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		if c := p.lookup(key); c != nil {
			return c, nil
		}
		c, err := p.connect(mbx, hop)
		if err != nil {
			return nil, err
		}
		p.idle.Set(key, c, gocache.DefaultExpiration)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

// lookup 返回池中仍然可用的会话，并刷新它的空闲时间。
func (p *Pool) lookup(key string) *Client {
	v, ok := p.idle.Get(key)
	if !ok {
		return nil
	}
	c := v.(*Client)
	if !c.cmdMu.TryLock() {
		// 正在执行命令的会话是活的
		return c
	}
	err := c.execute("NOOP", nil)
	c.cmdMu.Unlock()
	if err != nil {
		p.log.WithField("session", key).WithError(err).Info("imapclient: 丢弃失效的会话")
		p.idle.Delete(key)
		return nil
	}
	p.idle.Set(key, c, gocache.DefaultExpiration)
	return c
}

// connect 建立、认证并选择邮箱，跟随途中遇到的引荐。
func (p *Pool) connect(mbx *NetMailbox, hop int) (*Client, error) {
	if hop > p.cfg.MaxReferralHops {
		return nil, ErrTooManyReferrals
	}

	options := p.options
	options.Logger = p.log.WithField("imap", mbx.Host)

	c, err := p.Dial(mbx, &options)
	if err != nil {
		return p.redirect(err, mbx, hop)
	}

	if c.State() == imap.ConnStateNotAuthenticated {
		err := c.Auth(func(mech string, trial int) (*Credentials, error) {
			if p.creds == nil {
				return nil, ErrAuthCanceled
			}
			return p.creds(mbx, mech, trial)
		})
		if err != nil {
			c.Logout()
			return p.redirect(err, mbx, hop)
		}
	}

	if mbx.Mailbox != "" {
		if _, err := c.Select(mbx.Mailbox, nil); err != nil {
			c.Logout()
			return p.redirect(err, mbx, hop)
		}
	}
	return c, nil
}

// redirect 在 err 带有 [REFERRAL] 时连接到目标，否则返回 err。
func (p *Pool) redirect(err error, mbx *NetMailbox, hop int) (*Client, error) {
	ref, ok := referralOf(err)
	if !ok {
		return nil, err
	}
	u, parseErr := ParseIMAPURL(ref)
	if parseErr != nil {
		return nil, fmt.Errorf("%w (%v)", err, parseErr)
	}

	target := &NetMailbox{Host: u.Host, Security: mbx.Security, User: u.User, Mailbox: mbx.Mailbox}
	if target.User == "" {
		target.User = mbx.User
	}
	if u.Mailbox != "" {
		target.Mailbox = u.Mailbox
	}
	p.log.WithField("referral", ref).WithField("hop", hop+1).Info("imapclient: 跟随引荐")
	return p.connect(target, hop+1)
}

// evicted 在会话空闲超时或被删除时登出它。仍在使用中的会话被放回池中。
func (p *Pool) evicted(key string, v interface{}) {
	c := v.(*Client)
	p.mu.Lock()
	inUse := p.refs[c] > 0
	p.mu.Unlock()
	if inUse && !c.Closed() {
		p.idle.Set(key, c, gocache.DefaultExpiration)
		return
	}
	if err := c.Logout(); err != nil && !imap.IsClosed(err) {
		p.log.WithField("session", key).WithError(err).Warn("imapclient: 登出空闲会话失败")
	}
}

// DialNetMailbox 按 mbx.Security 连接服务器。SecurityDefault 在服务器通告 STARTTLS 时升级。
func DialNetMailbox(mbx *NetMailbox, options *Options) (*Client, error) {
	switch mbx.Security {
	case SecurityTLS:
		return DialTLS(mbx.Host, options)
	case SecurityStartTLS:
		return DialStartTLS(mbx.Host, options)
	case SecurityNone:
		return DialInsecure(mbx.Host, options)
	}

	c, err := DialInsecure(mbx.Host, options)
	if err != nil {
		return nil, err
	}
	if !c.Caps().Has(imap.CapStartTLS) {
		return c, nil
	}
	tlsConfig := options.tlsConfig()
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName, _, _ = net.SplitHostPort(mbx.Host)
	}
	if err := c.StartTLS(tlsConfig); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
