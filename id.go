package imap

// IDData 是 RFC 2971 ID 命令交换的身份信息。
//
// 常见的字段有对应的成员，其余键值对保存在 Extra 中。
type IDData struct {
	Name       string
	Version    string
	OS         string
	OSVersion  string
	Vendor     string
	SupportURL string

	Extra map[string]string
}
