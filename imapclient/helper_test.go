package imapclient

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// scriptTransport 回放预先写好的服务器数据，记录客户端写出的字节和 I/O 次数。
type scriptTransport struct {
	Transport
	out    *bytes.Buffer
	reads  int
	writes int
}

func (t *scriptTransport) ReadLine() ([]byte, error) {
	t.reads++
	return t.Transport.ReadLine()
}

func (t *scriptTransport) ReadLiteral(w io.Writer, n int64) error {
	t.reads++
	return t.Transport.ReadLiteral(w, n)
}

func (t *scriptTransport) Write(b []byte) (int, error) {
	t.writes++
	return t.Transport.Write(b)
}

// io 返回到目前为止的读写总次数。
func (t *scriptTransport) io() int {
	return t.reads + t.writes
}

// sent 返回客户端写出的全部内容。
func (t *scriptTransport) sent() string {
	return t.out.String()
}

// script 用 CRLF 连接服务器发送的各行。
func script(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

func newScriptTransport(server string, oneByte bool) *scriptTransport {
	var r io.Reader = strings.NewReader(server)
	if oneByte {
		r = iotest.OneByteReader(r)
	}
	out := new(bytes.Buffer)
	return &scriptTransport{Transport: NewStreamTransport(r, out), out: out}
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)
	return log
}

func testOptions() *Options {
	return &Options{Logger: testLogger()}
}

// newTestClient 创建一个会话，服务器按 lines 依次应答。第一行是问候。
func newTestClient(t *testing.T, options *Options, lines ...string) (*Client, *scriptTransport) {
	t.Helper()
	if options == nil {
		options = testOptions()
	}
	tr := newScriptTransport(script(lines...), false)
	c, err := New(tr, options)
	require.NoError(t, err)
	return c, tr
}

const (
	greetingRev1    = "* OK [CAPABILITY IMAP4rev1 AUTH=PLAIN] ready"
	preauthRev1     = "* PREAUTH [CAPABILITY IMAP4rev1] ready"
	preauthRev1Sort = "* PREAUTH [CAPABILITY IMAP4rev1 SORT THREAD=ORDEREDSUBJECT MULTIAPPEND] ready"
)

// selectLines 是一次成功选择 INBOX 的应答，tag 是 SELECT 的标签。
func selectLines(tag string, exists int) []string {
	return []string{
		"* " + strconv.Itoa(exists) + " EXISTS",
		"* 0 RECENT",
		"* OK [UIDVALIDITY 1] UIDs valid",
		"* FLAGS (\\Seen \\Answered \\Flagged \\Deleted \\Draft)",
		tag + " OK [READ-WRITE] SELECT completed",
	}
}
