package imapclient

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhaoyun888/go-imapdriver"
)

func appendMsg(body string, flags ...imap.Flag) *imap.AppendMessage {
	return &imap.AppendMessage{
		AppendOptions: imap.AppendOptions{Flags: flags},
		Size:          int64(len(body)),
		Body:          strings.NewReader(body),
	}
}

func TestMultiAppend(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		msgs  []*imap.AppendMessage
		sent  string
	}{
		{
			name:  "没有邮件时发送空字面量",
			lines: []string{preauthRev1Sort, "+ go ahead", "00000001 OK APPEND completed"},
			sent:  "00000001 APPEND INBOX {0}\r\n\r\n",
		},
		{
			name:  "MULTIAPPEND 一条命令",
			lines: []string{preauthRev1Sort, "+ go ahead", "+ go ahead", "00000001 OK APPEND completed"},
			msgs:  []*imap.AppendMessage{appendMsg("hello", imap.FlagSeen), appendMsg("world")},
			sent:  "00000001 APPEND INBOX (\\Seen) {5}\r\nhello {5}\r\nworld\r\n",
		},
		{
			name: "逐封追加",
			lines: []string{
				preauthRev1,
				"+ go ahead", "00000001 OK APPEND completed",
				"+ go ahead", "00000002 OK APPEND completed",
			},
			msgs: []*imap.AppendMessage{appendMsg("hello"), appendMsg("world")},
			sent: "00000001 APPEND INBOX {5}\r\nhello\r\n00000002 APPEND INBOX {5}\r\nworld\r\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, tr := newTestClient(t, nil, tc.lines...)
			require.NoError(t, c.MultiAppend("INBOX", messageSource(tc.msgs...)))
			assert.Equal(t, tc.sent, tr.sent())
		})
	}
}

func TestAppendLiteralRefused(t *testing.T) {
	c, tr := newTestClient(t, nil,
		preauthRev1,
		"00000001 NO [TRYCREATE] no such mailbox",
		"00000002 OK noop",
	)
	err := c.Append("Missing", appendMsg("hello"))
	require.Error(t, err)
	assert.True(t, imap.IsCode(err, imap.ResponseCodeTryCreate))
	assert.Equal(t, "00000001 APPEND Missing {5}\r\n", tr.sent())

	// 会话仍然可用
	require.NoError(t, c.Noop())
}

func TestAppendStopsAtFirstFailure(t *testing.T) {
	c, tr := newTestClient(t, nil,
		preauthRev1,
		"+ go ahead", "00000001 OK APPEND completed",
		"+ go ahead", "00000002 NO over quota",
	)
	var pulled int
	src := messageSource(appendMsg("a"), appendMsg("b"), appendMsg("c"))
	err := c.MultiAppend("INBOX", func() (*imap.AppendMessage, error) {
		pulled++
		return src()
	})
	require.Error(t, err)
	assert.NotContains(t, tr.sent(), "00000003")
	// 第三封邮件没有被取出
	assert.Equal(t, 2, pulled)
}

func TestMultiAppendStreams(t *testing.T) {
	c, tr := newTestClient(t, nil, preauthRev1Sort, "+ go ahead", "+ go ahead", "00000001 OK APPEND completed")

	bodies := []string{"hello", "world"}
	var seen []string
	err := c.MultiAppend("INBOX", func() (*imap.AppendMessage, error) {
		// 每次取下一封时，上一封已经写出
		seen = append(seen, tr.sent())
		if len(bodies) == 0 {
			return nil, nil
		}
		body := bodies[0]
		bodies = bodies[1:]
		return appendMsg(body), nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, "", seen[0])
	// 字面量内容留在缓冲区中，直到下一行发出
	assert.Equal(t, "00000001 APPEND INBOX {5}\r\n", seen[1])
	assert.Equal(t, "00000001 APPEND INBOX {5}\r\nhello {5}\r\n", seen[2])
	assert.Equal(t, "00000001 APPEND INBOX {5}\r\nhello {5}\r\nworld\r\n", tr.sent())
}

func TestMultiAppendSourceError(t *testing.T) {
	c, tr := newTestClient(t, nil, preauthRev1Sort, "+ go ahead", "00000001 OK APPEND completed")

	broken := errors.New("读取邮件失败")
	src := messageSource(appendMsg("hello"))
	err := c.MultiAppend("INBOX", func() (*imap.AppendMessage, error) {
		msg, err := src()
		if msg == nil && err == nil {
			return nil, broken
		}
		return msg, err
	})
	require.ErrorIs(t, err, broken)
	// 命令没有结束，连接被断开，服务器不会提交已写出的邮件
	assert.True(t, c.Closed())
	assert.Equal(t, "00000001 APPEND INBOX {5}\r\n", tr.sent())
}
