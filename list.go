package imap

// ListOptions 包含 LIST/LSUB 命令的选项。
type ListOptions struct {
	// Subscribed 为 true 时发送 LSUB 而不是 LIST。
	Subscribed bool
	// Remote 为 true 且服务器支持 MAILBOX-REFERRALS 时发送 RLIST 或 RLSUB，
	// 结果包括被引荐到其他服务器的邮箱。
	Remote bool
	// Prefix 被加在每个返回的邮箱名前面，通常是 "{host}" 形式的网络前缀。
	Prefix string
}

// ListData 是 LIST/LSUB（或 IMAP2bis 的 FIND）返回的一条邮箱数据。
type ListData struct {
	Attrs   []MailboxAttr // 识别出的属性
	Delim   rune          // 层级分隔符，0 表示 NIL
	Mailbox string
}

// HasAttr 报告是否带有 attr 属性。
func (data *ListData) HasAttr(attr MailboxAttr) bool {
	for _, a := range data.Attrs {
		if a == attr {
			return true
		}
	}
	return false
}
