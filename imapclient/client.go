// Package imapclient 实现了一个同步的 IMAP 客户端引擎。
//
// 一个 Client 对应一条连接。命令逐个执行：每个方法持有会话的命令锁，
// 发送命令，读取并分派所有未标记响应，直到收到对应的带标签响应才返回。
// 引擎内部没有后台 goroutine，也没有计时器；超时属于传输层。
//
// 引擎能识别 IMAP2、IMAP2bis、IMAP4 和 IMAP4rev1 服务器，并根据方言和能力
// 选择命令形式，例如在 IMAP4rev1 上用 BODY.PEEK[HEADER]，在更早的方言上用 RFC822.HEADER。
//
// # 字符集解码
//
// 默认情况下，仅执行基本的字符集解码。对于非 UTF-8 的邮件主题和地址名称，可以设置
// Options.WordDecoder。例如，要使用 go-message 的字符集集合：
//
//	import (
//		"mime"
//
//		"github.com/emersion/go-message/charset"
//	)
//
//	options := &imapclient.Options{
//		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
//	}
//	client, err := imapclient.DialTLS("imap.example.org:993", options)
package imapclient

import (
	"crypto/tls"
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// MaxUserFlags 是用户自定义标志表的容量。
const MaxUserFlags = 30

// Options 包含客户端的选项。
type Options struct {
	// Config 是会话无关的可调参数。nil 表示 DefaultConfig()。
	Config *Config
	// Logger 接收警告和协议记录（Debug 级别）。nil 表示 logrus 的标准日志器。
	Logger logrus.FieldLogger
	// 用于 DialTLS 和 STARTTLS 的 TLS 配置。如果为 nil，则使用默认配置。
	TLSConfig *tls.Config
	// 单边数据处理程序。
	UnilateralDataHandler *UnilateralDataHandler
	// RFC 2047 字符串的解码器。
	WordDecoder *mime.WordDecoder
	// Cache 保存每封邮件的元数据。nil 表示按 Config.ShortCache 创建的 MemCache。
	Cache MailboxCache
	// Auth 是可用的 SASL 机制。nil 表示 DefaultAuthRegistry()。
	Auth *AuthRegistry
	// Referral 在服务器返回 [REFERRAL] 时被用来打开目标会话。
	Referral ReferralHandler
}

// decodeText 解码 MIME 编码的字符串。
func (options *Options) decodeText(s string) (string, error) {
	wordDecoder := options.WordDecoder
	if wordDecoder == nil {
		wordDecoder = &mime.WordDecoder{}
	}
	out, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s, err
	}
	return out, nil
}

// unilateralDataHandler 返回单边数据处理器，未设置时返回一个空的处理器。
func (options *Options) unilateralDataHandler() *UnilateralDataHandler {
	if options.UnilateralDataHandler == nil {
		return &UnilateralDataHandler{}
	}
	return options.UnilateralDataHandler
}

// tlsConfig 返回 TLS 配置的副本。
func (options *Options) tlsConfig() *tls.Config {
	if options != nil && options.TLSConfig != nil {
		return options.TLSConfig.Clone()
	}
	return new(tls.Config)
}

func (options *Options) logger() logrus.FieldLogger {
	if options.Logger == nil {
		return logrus.StandardLogger()
	}
	return options.Logger
}

// Client 是一个 IMAP 会话。
//
// 方法可以在多个 goroutine 中调用，命令锁保证同一时刻只有一个命令在途。
type Client struct {
	t       Transport
	options Options
	cfg     *Config
	log     logrus.FieldLogger
	cache   MailboxCache
	auth    *AuthRegistry

	cmdMu sync.Mutex // 命令锁

	state     imap.ConnState
	dialect   imap.Dialect
	greeting  string
	caps      imap.CapSet
	authMechs map[string]struct{}
	cmdTag    uint32
	reply     *imapwire.Reply
	mailbox   *imap.SelectData
	userFlags []imap.Flag
	namespace *imap.NamespaceData
	referral  string
	byeSeen   bool
	sensitive bool
	dead      *imap.Error

	sortResult   []uint32
	threadResult []*imap.ThreadNode
	listPrefix   string
	pending      *pendingData
	sink         *fetchSink
}

// New 在已建立的传输层上创建会话，并读取服务器问候。
//
// 如果问候中没有能力列表，会发送 CAPABILITY 并据此判断方言。
// 失败时传输层会被关闭。nil 选项指针等效于零选项值。
func New(t Transport, options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}

	cfg := options.Config.withDefaults()
	c := &Client{
		t:       t,
		options: *options,
		cfg:     cfg,
		log:     options.logger(),
		cache:   options.Cache,
		auth:    options.Auth,
		state:   imap.ConnStateNone,
		dialect: imap.DialectIMAP4rev1,
	}
	if c.cache == nil {
		c.cache = NewMemCache(cfg.ShortCache)
	}
	if c.auth == nil {
		c.auth = DefaultAuthRegistry()
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	if err := c.greet(); err != nil {
		t.Close()
		return nil, err
	}
	return c, nil
}

// greet 读取问候并确定方言。
func (c *Client) greet() error {
	var reply *imapwire.Reply
	for reply == nil {
		reply = c.readReply()
	}
	if c.dead != nil {
		return c.dead
	}
	if !reply.IsUntagged() {
		return fmt.Errorf("imapclient: 无效的服务器问候：%v", reply)
	}

	c.greeting = reply.Text
	switch reply.Key {
	case "OK":
		c.state = imap.ConnStateNotAuthenticated
	case "PREAUTH":
		c.state = imap.ConnStateAuthenticated
	case "BYE":
		c.byeSeen = true
		resp := c.handleRespText(imap.StatusResponseTypeBye, reply.Text)
		return (*imap.Error)(resp)
	default:
		return fmt.Errorf("imapclient: 无效的服务器问候：%v", reply)
	}
	c.handleRespText(imap.StatusResponseType(reply.Key), reply.Text)

	if c.caps == nil {
		if err := c.capability(); err != nil && c.dead != nil {
			return c.dead
		}
	}
	c.detectDialect()
	return nil
}

// detectDialect 根据能力列表（或没有能力列表）推断服务器方言。
func (c *Client) detectDialect() {
	switch {
	case c.caps == nil:
		if strings.Contains(strings.ToUpper(c.greeting), "IMAP2BIS") {
			c.dialect = imap.DialectIMAP2bis
		} else {
			c.dialect = imap.DialectIMAP2
		}
	case c.caps.Has(imap.CapIMAP4rev1):
		c.dialect = imap.DialectIMAP4rev1
	default:
		c.dialect = imap.DialectIMAP4
	}
	c.log.WithField("dialect", c.dialect).Debug("检测到服务器方言")
}

// State 返回客户端当前的连接状态。
func (c *Client) State() imap.ConnState {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.state
}

// Dialect 返回服务器的协议方言。
func (c *Client) Dialect() imap.Dialect {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.dialect
}

// Caps 返回服务器通告的能力。服务器不支持 CAPABILITY 时返回 nil。
func (c *Client) Caps() imap.CapSet {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.caps
}

// AuthMechanisms 返回可以尝试的 SASL 机制名。
func (c *Client) AuthMechanisms() []string {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	var l []string
	for mech := range c.authMechs {
		l = append(l, mech)
	}
	return l
}

// Mailbox 返回当前选中邮箱状态的副本。没有选中邮箱时返回 nil。
func (c *Client) Mailbox() *imap.SelectData {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	if c.mailbox == nil || c.state != imap.ConnStateSelected {
		return nil
	}
	data := *c.mailbox
	return &data
}

// UserFlags 返回邮箱定义的用户标志表。
func (c *Client) UserFlags() []imap.Flag {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return append([]imap.Flag(nil), c.userFlags...)
}

// Cache 返回会话的邮件缓存。
func (c *Client) Cache() MailboxCache {
	return c.cache
}

// LastReferral 返回最近一次看到的 REFERRAL 目标。
func (c *Client) LastReferral() string {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.referral
}

// Closed 报告连接是否已经断开。
func (c *Client) Closed() bool {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.dead != nil
}

// Close 立即关闭连接，不发送 LOGOUT。之后的所有操作都返回 [CLOSED] 错误。
func (c *Client) Close() error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.dead == nil {
		c.dead = &imap.Error{
			Type: imap.StatusResponseTypeNo,
			Code: imap.ResponseCodeClosed,
			Text: "IMAP connection closed by client",
		}
	}
	c.state = imap.ConnStateLogout
	return c.t.Close()
}

// Logout 发送 LOGOUT 并关闭连接。服务器已经发送过 BYE 时不再发送 LOGOUT。
func (c *Client) Logout() error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	var err error
	if !c.byeSeen && c.dead == nil {
		err = c.execute("LOGOUT", nil)
	}
	if closeErr := c.closeLocked(); err == nil {
		err = closeErr
	}
	return err
}

// Noop 发送 NOOP。它也用作连接的存活探测。
func (c *Client) Noop() error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.execute("NOOP", nil)
}

// Check 发送 CHECK，请求服务器做一次检查点。
func (c *Client) Check() error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.execute("CHECK", nil)
}

// UnilateralDataHandler 接收服务器主动发送的数据，以及没有命令在收集时的命令数据。
//
// 回调在命令锁内同步调用，不能再调用 Client 的方法。
type UnilateralDataHandler struct {
	Mailbox   func(data *UnilateralDataMailbox)
	Expunge   func(seqNum uint32)
	Fetch     func(entry *CacheEntry)
	Envelope  func(seqNum uint32, env *imap.Envelope)
	Searched  func(seqNum uint32)
	SearchUID func(uid imap.UID)

	List       func(data *imap.ListData)
	LSub       func(data *imap.ListData)
	Status     func(data *imap.StatusData)
	ACL        func(data *imap.ACLData)
	ListRights func(data *imap.ListRightsData)
	MyRights   func(data *imap.MyRightsData)
	Quota      func(data *imap.QuotaData)
	QuotaRoot  func(data *imap.QuotaRootData)

	// Alert 接收 [ALERT] 文本，应当展示给用户。
	Alert func(text string)
	// Notify 接收未标记的 OK/NO/BAD/BYE 状态响应。
	Notify func(resp *imap.StatusResponse)
}

// UnilateralDataMailbox 描述邮箱状态的更新。只有变化的字段非空。
type UnilateralDataMailbox struct {
	NumMessages    *uint32
	NumRecent      *uint32
	Flags          []imap.Flag
	PermanentFlags []imap.Flag
}
