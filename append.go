package imap

import (
	"io"
	"time"
)

// AppendOptions 包含 APPEND 命令的选项。
type AppendOptions struct {
	Flags []Flag
	Time  time.Time // INTERNALDATE，零值表示由服务器决定
}

// AppendMessage 是一封待追加的邮件。
type AppendMessage struct {
	AppendOptions
	Size int64     // Body 的精确字节数
	Body io.Reader // 邮件原文，CRLF 换行
}
