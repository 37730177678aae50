package imapclient

import (
	"time"
)

// Config 包含与具体会话无关的可调参数。
//
// 一个 Config 构造一次，然后传给每个会话和连接池，运行期间不应再修改。
type Config struct {
	// MaxLoginTrials 是每种认证方式（以及最后的 LOGIN）最多尝试的次数。
	MaxLoginTrials int `mapstructure:"max_login_trials" yaml:"max_login_trials"`
	// LookAhead 是获取信封或体结构时顺带预取的未缓存消息数。
	LookAhead int `mapstructure:"lookahead" yaml:"lookahead"`
	// UIDLookAhead 是查询 UID 时顺带预取的消息数。
	UIDLookAhead int `mapstructure:"uid_lookahead" yaml:"uid_lookahead"`
	// MaxCommandLength 是一行命令的最大字节数，超过时序列集合会被切分。
	MaxCommandLength int `mapstructure:"max_command_length" yaml:"max_command_length"`
	// MaxReferralHops 是一次操作最多跟随的引荐（REFERRAL）次数。
	MaxReferralHops int `mapstructure:"max_referral_hops" yaml:"max_referral_hops"`
	// ShortCache 为 true 时，整个会话只缓存一封邮件的信封和体结构。
	ShortCache bool `mapstructure:"short_cache" yaml:"short_cache"`
	// Prefetch 为 true 时，获取信封的同时获取 FLAGS、INTERNALDATE 和 RFC822.SIZE。
	Prefetch bool `mapstructure:"prefetch" yaml:"prefetch"`
	// DialTimeout 是建立 TCP 连接的超时时间，由传输层使用。
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	// PoolIdleTTL 是空闲会话在连接池中保留的时间。
	PoolIdleTTL time.Duration `mapstructure:"pool_idle_ttl" yaml:"pool_idle_ttl"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		MaxLoginTrials:   3,
		LookAhead:        20,
		UIDLookAhead:     1000,
		MaxCommandLength: 1000,
		MaxReferralHops:  5,
		Prefetch:         true,
		DialTimeout:      30 * time.Second,
		PoolIdleTTL:      5 * time.Minute,
	}
}

// withDefaults 用默认值填充未设置的字段。
func (cfg *Config) withDefaults() *Config {
	def := DefaultConfig()
	if cfg == nil {
		return def
	}
	out := *cfg
	if out.MaxLoginTrials <= 0 {
		out.MaxLoginTrials = def.MaxLoginTrials
	}
	if out.LookAhead < 0 {
		out.LookAhead = 0
	}
	if out.UIDLookAhead <= 0 {
		out.UIDLookAhead = def.UIDLookAhead
	}
	if out.MaxCommandLength <= 0 {
		out.MaxCommandLength = def.MaxCommandLength
	}
	if out.MaxReferralHops < 0 {
		out.MaxReferralHops = 0
	}
	if out.DialTimeout <= 0 {
		out.DialTimeout = def.DialTimeout
	}
	if out.PoolIdleTTL <= 0 {
		out.PoolIdleTTL = def.PoolIdleTTL
	}
	return &out
}
