package imap

// QuotaResourceType 表示 QUOTA 资源类型。
//
// 参见 RFC 2087 第 3 节。
type QuotaResourceType string

const (
	QuotaResourceStorage QuotaResourceType = "STORAGE" // 以 1024 字节为单位
	QuotaResourceMessage QuotaResourceType = "MESSAGE" // 邮件数量
)

// QuotaResource 是配额根中一种资源的用量和上限。
type QuotaResource struct {
	Usage int64
	Limit int64
}

// QuotaData 是 "* QUOTA" 响应的内容。
type QuotaData struct {
	Root      string
	Resources map[QuotaResourceType]QuotaResource
}

// QuotaRootData 是 "* QUOTAROOT" 响应的内容。
type QuotaRootData struct {
	Mailbox string
	Roots   []string
}
