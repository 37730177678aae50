package imap

// SelectOptions 包含 SELECT 或 EXAMINE 命令的选项。
type SelectOptions struct {
	ReadOnly bool // 使用 EXAMINE
}

// SelectData 是当前选中邮箱的状态。
//
// 在旧的方言中，PermanentFlags、UIDNext 和 UIDValidity 可能缺失。
type SelectData struct {
	Mailbox        string
	Flags          []Flag // 邮箱定义的标志
	PermanentFlags []Flag // 客户端可永久更改的标志
	NumMessages    uint32 // EXISTS
	NumRecent      uint32 // RECENT
	FirstUnseen    uint32 // UNSEEN 响应代码
	UIDNext        UID
	UIDValidity    uint32
	ReadOnly       bool
	UIDNotSticky   bool // 服务器不保证 UID 持久
}
