package imapclient

import (
	"encoding/base64"
	"testing"

	"github.com/emersion/go-sasl"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhaoyun888/go-imapdriver"
)

type credsCall struct {
	mech  string
	trial int
}

// recordCreds 返回固定凭据，并记录每次调用。
func recordCreds(calls *[]credsCall) CredentialsFunc {
	return func(mech string, trial int) (*Credentials, error) {
		*calls = append(*calls, credsCall{mech, trial})
		return &Credentials{Username: "alice", Password: "secret"}, nil
	}
}

var plainResponse = base64.StdEncoding.EncodeToString([]byte("\x00alice\x00secret"))

func TestAuthMechanismsDropLoginWhenPlain(t *testing.T) {
	c, _ := newTestClient(t, nil, "* OK [CAPABILITY IMAP4rev1 AUTH=PLAIN AUTH=LOGIN AUTH=CRAM-MD5] ready")
	assert.ElementsMatch(t, []string{sasl.Plain}, c.AuthMechanisms())

	c, _ = newTestClient(t, nil, "* OK [CAPABILITY IMAP4rev1 AUTH=LOGIN] ready")
	assert.ElementsMatch(t, []string{sasl.Login}, c.AuthMechanisms())
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		sent  string
		calls []credsCall
	}{
		{
			name:  "带初始响应的 PLAIN",
			lines: []string{"* OK [CAPABILITY IMAP4rev1 AUTH=PLAIN SASL-IR] ready", "00000001 OK logged in"},
			sent:  "00000001 AUTHENTICATE PLAIN " + plainResponse + "\r\n",
			calls: []credsCall{{sasl.Plain, 1}},
		},
		{
			name:  "等待继续请求的 PLAIN",
			lines: []string{"* OK [CAPABILITY IMAP4rev1 AUTH=PLAIN] ready", "+", "00000001 OK logged in"},
			sent:  "00000001 AUTHENTICATE PLAIN\r\n" + plainResponse + "\r\n",
			calls: []credsCall{{sasl.Plain, 1}},
		},
		{
			name: "第二次尝试成功",
			lines: []string{
				"* OK [CAPABILITY IMAP4rev1 AUTH=PLAIN SASL-IR] ready",
				"00000001 NO [AUTHENTICATIONFAILED] invalid credentials",
				"00000002 OK logged in",
			},
			sent: "00000001 AUTHENTICATE PLAIN " + plainResponse + "\r\n" +
				"00000002 AUTHENTICATE PLAIN " + plainResponse + "\r\n",
			calls: []credsCall{{sasl.Plain, 1}, {sasl.Plain, 2}},
		},
		{
			name:  "没有可用机制时用 LOGIN",
			lines: []string{"* OK [CAPABILITY IMAP4rev1 AUTH=GSSAPI] ready", "00000001 OK logged in"},
			sent:  "00000001 LOGIN alice secret\r\n",
			calls: []credsCall{{"LOGIN", 1}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, tr := newTestClient(t, nil, tc.lines...)
			var calls []credsCall
			require.NoError(t, c.Auth(recordCreds(&calls)))
			assert.Equal(t, imap.ConnStateAuthenticated, c.State())
			assert.Equal(t, tc.sent, tr.sent())
			assert.Equal(t, tc.calls, calls)
		})
	}
}

func TestAuthCanceled(t *testing.T) {
	c, tr := newTestClient(t, nil, "* OK [CAPABILITY IMAP4rev1 AUTH=PLAIN] ready")
	before := tr.io()
	err := c.Auth(func(mech string, trial int) (*Credentials, error) {
		return nil, ErrAuthCanceled
	})
	assert.ErrorIs(t, err, ErrAuthCanceled)
	assert.Equal(t, before, tr.io())
	assert.Equal(t, imap.ConnStateNotAuthenticated, c.State())
}

func TestAuthLoginDisabled(t *testing.T) {
	c, tr := newTestClient(t, nil, "* OK [CAPABILITY IMAP4rev1 LOGINDISABLED STARTTLS] ready")
	before := tr.io()
	var calls []credsCall
	err := c.Auth(recordCreds(&calls))
	assert.Error(t, err)
	assert.Empty(t, calls)
	assert.Equal(t, before, tr.io())

	assert.ErrorIs(t, c.Login("alice", "secret"), ErrNotSupported)
}

func TestAuthenticateClientAbort(t *testing.T) {
	c, tr := newTestClient(t, nil,
		"* OK [CAPABILITY IMAP4rev1 AUTH=PLAIN] ready",
		"+ not-base64!",
		"00000001 BAD AUTHENTICATE cancelled",
	)
	err := c.Authenticate(sasl.NewPlainClient("", "alice", "secret"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "SASL")
	assert.Equal(t, "00000001 AUTHENTICATE PLAIN\r\n*\r\n", tr.sent())
	assert.False(t, c.Closed())
}

func TestLoginIsNotTraced(t *testing.T) {
	c, _ := newTestClient(t, nil, "* OK [CAPABILITY IMAP4rev1] ready", "00000001 OK done")
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c.log = logger

	require.NoError(t, c.Login("alice", "secret"))
	require.NotEmpty(t, hook.AllEntries())
	for _, entry := range hook.AllEntries() {
		assert.NotContains(t, entry.Message, "secret")
	}
}
