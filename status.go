package imap

// StatusOptions 包含 STATUS 命令的选项。
type StatusOptions struct {
	NumMessages bool
	NumRecent   bool
	UIDNext     bool
	UIDValidity bool
	NumUnseen   bool
}

// StatusData 是 STATUS 命令返回的数据。
//
// 邮箱名称始终会填充，其他字段只有在服务器返回时才非空。
type StatusData struct {
	Mailbox string

	NumMessages *uint32
	NumRecent   *uint32
	UIDNext     UID
	UIDValidity uint32
	NumUnseen   *uint32
}
