// Package internal 包含 imapclient 共用的小工具：SASL 编码和常见的值解析。
package internal

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// EncodeSASL 把 SASL 响应编码为 base64。空响应编码为 "="。
func EncodeSASL(b []byte) string {
	if len(b) == 0 {
		return "="
	}
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeSASL 解码服务器发来的 base64 挑战。空文本和 "=" 表示空挑战。
func DecodeSASL(s string) ([]byte, error) {
	if s == "" || s == "=" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("imapclient: 无效的 SASL 挑战: %w", err)
	}
	return b, nil
}

// ExpectFlagList 解析括号中的标志列表。
func ExpectFlagList(dec *imapwire.Decoder) ([]imap.Flag, error) {
	var flags []imap.Flag
	err := dec.ExpectList(func() error {
		var flag string
		if !dec.ExpectFlag(&flag) {
			return dec.Err()
		}
		flags = append(flags, imap.Flag(flag))
		return nil
	})
	return flags, err
}

// ExpectDateTime 解析带引号的 date-time，例如 "17-Jul-1996 02:44:25 -0700"。
// 返回值同时包含原始文本，解析失败时时间为零值。
func ExpectDateTime(dec *imapwire.Decoder) (time.Time, string, error) {
	var s string
	if !dec.ExpectString(&s) {
		return time.Time{}, "", dec.Err()
	}
	t, err := time.Parse(imapwire.DateTimeLayout, s)
	if err != nil {
		return time.Time{}, s, fmt.Errorf("imapclient: 无效的日期时间 %q: %w", s, err)
	}
	return t, s, nil
}
