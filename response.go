package imap

import (
	"errors"
	"fmt"
	"strings"
)

// StatusResponseType 是一种通用状态响应类型。
type StatusResponseType string

const (
	StatusResponseTypeOK      StatusResponseType = "OK"      // 表示请求成功
	StatusResponseTypeNo      StatusResponseType = "NO"      // 表示请求失败
	StatusResponseTypeBad     StatusResponseType = "BAD"     // 表示请求无效
	StatusResponseTypePreAuth StatusResponseType = "PREAUTH" // 表示已预先授权
	StatusResponseTypeBye     StatusResponseType = "BYE"     // 表示会话结束
)

// ResponseCode 是一种响应代码。
type ResponseCode string

const (
	ResponseCodeAlert          ResponseCode = "ALERT"
	ResponseCodeParse          ResponseCode = "PARSE"
	ResponseCodeTryCreate      ResponseCode = "TRYCREATE"
	ResponseCodeNewName        ResponseCode = "NEWNAME"
	ResponseCodeUIDValidity    ResponseCode = "UIDVALIDITY"
	ResponseCodeUIDNext        ResponseCode = "UIDNEXT"
	ResponseCodeUnseen         ResponseCode = "UNSEEN"
	ResponseCodePermanentFlags ResponseCode = "PERMANENTFLAGS"
	ResponseCodeReadOnly       ResponseCode = "READ-ONLY"
	ResponseCodeReadWrite      ResponseCode = "READ-WRITE"
	ResponseCodeCapability     ResponseCode = "CAPABILITY"
	ResponseCodeReferral       ResponseCode = "REFERRAL"     // RFC 2221
	ResponseCodeUIDNotSticky   ResponseCode = "UIDNOTSTICKY" // RFC 4315

	// ResponseCodeClosed 只由引擎自己合成，表示连接已断开。
	ResponseCodeClosed ResponseCode = "CLOSED"
)

// StatusResponse 是一种通用状态响应。
//
// 参见 RFC 3501 第 7.1 节。
type StatusResponse struct {
	Type StatusResponseType // 状态响应类型
	Code ResponseCode       // 响应代码
	Arg  string             // 响应代码的参数，例如 REFERRAL 的 URL
	Text string             // 服务器给出的可读文本
}

// Error 是由状态响应引起的 IMAP 错误。Text 保留服务器的原始文本。
type Error StatusResponse

var _ error = (*Error)(nil)

// Error 实现了 error 接口。
func (err *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "imap: %v", err.Type)
	if err.Code != "" {
		fmt.Fprintf(&sb, " [%v]", err.Code)
	}
	text := err.Text
	if text == "" {
		text = "<unknown>"
	}
	fmt.Fprintf(&sb, " %v", text)
	return sb.String()
}

// IsClosed 报告 err 是否表示连接已经断开。
func IsClosed(err error) bool {
	var imapErr *Error
	return errors.As(err, &imapErr) && imapErr.Code == ResponseCodeClosed
}

// IsCode 报告 err 是否是带有指定响应代码的 IMAP 错误。
func IsCode(err error, code ResponseCode) bool {
	var imapErr *Error
	return errors.As(err, &imapErr) && imapErr.Code == code
}
