package imapclient

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

const testEnvelope = `("Mon, 7 Feb 1994 21:52:25 -0800" "Re: hello" (("Fred Foobar" NIL "fred" "example.org")) NIL NIL (("Joe" NIL "joe" "example.com")) NIL NIL NIL "<1@example.org>")`

func selectedClient(t *testing.T, exists int, oneByte bool, lines ...string) (*Client, *scriptTransport) {
	t.Helper()
	all := []string{preauthRev1}
	all = append(all, selectLines("00000001", exists)...)
	all = append(all, lines...)
	tr := newScriptTransport(script(all...), oneByte)
	c, err := New(tr, testOptions())
	require.NoError(t, err)
	_, err = c.Select("INBOX", nil)
	require.NoError(t, err)
	return c, tr
}

func TestEnvelopePrefetch(t *testing.T) {
	c, tr := selectedClient(t, 1, false,
		`* 1 FETCH (UID 9 FLAGS (\Seen $Work) INTERNALDATE "17-Jul-1996 02:44:25 -0700" RFC822.SIZE 4286 ENVELOPE `+testEnvelope+`)`,
		"00000002 OK FETCH completed",
	)

	env, err := c.Envelope(1)
	require.NoError(t, err)
	assert.Contains(t, tr.sent(), "00000002 FETCH 1 (UID FLAGS INTERNALDATE RFC822.SIZE ENVELOPE)\r\n")

	assert.Equal(t, "Re: hello", env.Subject)
	require.Len(t, env.From, 1)
	assert.Equal(t, "Fred Foobar", env.From[0].Name)
	assert.Equal(t, "fred@example.org", env.From[0].Addr())
	assert.Nil(t, env.Sender)
	require.Len(t, env.To, 1)
	assert.Equal(t, "joe", env.To[0].Mailbox)
	assert.Equal(t, "<1@example.org>", env.MessageID)
	assert.Equal(t, time.Date(1994, 2, 8, 5, 52, 25, 0, time.UTC), env.Date.UTC())

	entry := c.Cache().Lookup(1)
	require.NotNil(t, entry)
	assert.Equal(t, imap.UID(9), entry.UID)
	assert.Equal(t, int64(4286), entry.Size)
	assert.True(t, entry.HasSize)
	assert.Equal(t, `17-Jul-1996 02:44:25 -0700`, entry.RawInternalDate)
	assert.ElementsMatch(t, []imap.Flag{imap.FlagSeen, "$Work"}, c.EntryFlags(entry))

	// 第二次直接命中缓存，不再发送命令
	before := tr.io()
	_, err = c.Envelope(1)
	require.NoError(t, err)
	assert.Equal(t, before, tr.io())
}

func TestEnvelopeLookahead(t *testing.T) {
	c, tr := selectedClient(t, 3, false,
		"* 1 FETCH (ENVELOPE "+testEnvelope+")",
		"* 2 FETCH (ENVELOPE NIL)",
		"* 3 FETCH (ENVELOPE "+testEnvelope+")",
		"00000002 OK FETCH completed",
	)
	_, err := c.Envelope(1)
	require.NoError(t, err)
	assert.Contains(t, tr.sent(), "00000002 FETCH 1:3 (")
	assert.NotNil(t, c.Cache().Lookup(3).Envelope)
}

func TestEnvelopeOutOfRange(t *testing.T) {
	c, tr := selectedClient(t, 2, false)
	before := tr.io()
	_, err := c.Envelope(3)
	assert.Error(t, err)
	_, err = c.Envelope(0)
	assert.Error(t, err)
	assert.Equal(t, before, tr.io())
}

func TestFetchTextLiteral(t *testing.T) {
	for _, oneByte := range []bool{false, true} {
		c, tr := selectedClient(t, 1, oneByte,
			"* 1 FETCH (BODY[TEXT] {11}",
			"hello world FLAGS (\\Seen))",
			"00000002 OK FETCH completed",
		)
		b, err := c.FetchText(1)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(b))
		assert.Contains(t, tr.sent(), "00000002 FETCH 1 (BODY.PEEK[TEXT])\r\n")
		assert.True(t, c.Cache().Lookup(1).HasFlags)
	}
}

func TestFetchBodyTo(t *testing.T) {
	c, _ := selectedClient(t, 1, true,
		"* 1 FETCH (BODY[] {5}",
		"abcde)",
		"00000002 OK FETCH completed",
	)
	var buf bytes.Buffer
	n, err := c.FetchBodyTo(1, &imap.FetchItemBodySection{Peek: true}, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, "abcde", buf.String())
	assert.Nil(t, c.Cache().Lookup(1).Sections)
}

func TestFetchPartialNotCachedAsWhole(t *testing.T) {
	c, tr := selectedClient(t, 1, false,
		"* 1 FETCH (BODY[TEXT]<0> {5}",
		"Hello)",
		"00000002 OK FETCH completed",
		"* 1 FETCH (BODY[TEXT] {11}",
		"Hello world)",
		"00000003 OK FETCH completed",
	)

	b, err := c.FetchBody(1, &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierText,
		Peek:      true,
		Partial:   &imap.SectionPartial{Offset: 0, Size: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(b))
	assert.Contains(t, tr.sent(), "00000002 FETCH 1 (BODY.PEEK[TEXT]<0.5>)\r\n")

	// 部分片段不能当作完整正文返回
	b, err = c.FetchText(1)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", string(b))
	assert.Contains(t, tr.sent(), "00000003 FETCH 1 (BODY.PEEK[TEXT])\r\n")

	entry := c.Cache().Lookup(1)
	assert.Equal(t, "Hello", string(entry.Sections["TEXT<0>"]))
	assert.Equal(t, "Hello world", string(entry.Sections["TEXT"]))
}

func TestFetchSkipsUnknownItems(t *testing.T) {
	c, _ := selectedClient(t, 1, false,
		"* 1 FETCH (X-GM-LABELS (\\Inbox foo) UID 7)",
		"00000002 OK FETCH completed",
	)
	entries, err := c.Fetch(imap.SeqSetNum(1), &imap.FetchOptions{UID: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, imap.UID(7), entries[0].UID)
}

func TestFetchItemsByDialect(t *testing.T) {
	header := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierHeader, Peek: true}
	tests := []struct {
		name    string
		dialect imap.Dialect
		want    string
		err     error
	}{
		{"IMAP4rev1", imap.DialectIMAP4rev1, "(BODYSTRUCTURE BODY.PEEK[HEADER])", nil},
		{"IMAP4", imap.DialectIMAP4, "(BODY RFC822.HEADER)", nil},
		{"IMAP2", imap.DialectIMAP2, "", ErrNotSupported},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Client{dialect: tc.dialect}
			items, err := c.fetchItems(&imap.FetchOptions{
				BodyStructure: &imap.FetchItemBodyStructure{Extended: true},
				BodySection:   []*imap.FetchItemBodySection{header},
			}, false)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, items)
		})
	}
}

func TestStructure(t *testing.T) {
	c, tr := selectedClient(t, 1, false,
		`* 1 FETCH (ENVELOPE NIL BODYSTRUCTURE ("TEXT" NIL ("CHARSET" "utf-8") NIL NIL "7BIT" 12 1))`,
		"00000002 OK FETCH completed",
	)
	bs, err := c.Structure(1)
	require.NoError(t, err)
	assert.Contains(t, tr.sent(), "00000002 FETCH 1 (ENVELOPE BODYSTRUCTURE)\r\n")

	part, ok := bs.(*imap.BodyStructureSinglePart)
	require.True(t, ok)
	assert.Equal(t, "text/plain", part.MediaType())
	assert.Equal(t, map[string]string{"charset": "utf-8"}, part.Params)
	require.NotNil(t, part.Text)
	assert.Equal(t, int64(1), part.Text.NumLines)
}

func TestReadBody(t *testing.T) {
	t.Run("整个体结构为 NIL", func(t *testing.T) {
		bs, err := readBody(imapwire.NewDecoder(nil, "NIL"), testOptions())
		require.NoError(t, err)
		assert.Equal(t, imap.NilBody(), bs)
	})

	t.Run("缺少子类型", func(t *testing.T) {
		bs, err := readBody(imapwire.NewDecoder(nil, `("APPLICATION" NIL NIL NIL NIL NIL 100)`), testOptions())
		require.NoError(t, err)
		part := bs.(*imap.BodyStructureSinglePart)
		assert.Equal(t, "OCTET-STREAM", part.Subtype)
		assert.Equal(t, "7BIT", part.Encoding)
		assert.Equal(t, uint32(100), part.Size)
	})

	t.Run("参数缺少值", func(t *testing.T) {
		bs, err := readBody(imapwire.NewDecoder(nil, `("APPLICATION" "PDF" ("NAME" NIL "X") NIL NIL "BASE64" 100)`), testOptions())
		require.NoError(t, err)
		part := bs.(*imap.BodyStructureSinglePart)
		assert.Equal(t, map[string]string{"name": unknownValue, "x": unknownValue}, part.Params)
	})

	t.Run("多部分之间没有空格", func(t *testing.T) {
		s := `(("TEXT" "PLAIN" NIL NIL NIL "7BIT" 3 1)("IMAGE" "PNG" NIL NIL NIL "BASE64" 40) "MIXED" ("BOUNDARY" "b1") NIL NIL)`
		bs, err := readBody(imapwire.NewDecoder(nil, s), testOptions())
		require.NoError(t, err)
		mp := bs.(*imap.BodyStructureMultiPart)
		assert.Equal(t, "MIXED", mp.Subtype)
		require.Len(t, mp.Children, 2)
		assert.Equal(t, "image/png", mp.Children[1].MediaType())
		require.NotNil(t, mp.Extended)
		assert.Equal(t, map[string]string{"boundary": "b1"}, mp.Extended.Params)
	})

	t.Run("嵌套邮件", func(t *testing.T) {
		s := `("MESSAGE" "RFC822" NIL NIL NIL "7BIT" 500 ` + testEnvelope + ` ("TEXT" "PLAIN" NIL NIL NIL "8BIT" 20 2) 12)`
		bs, err := readBody(imapwire.NewDecoder(nil, s), testOptions())
		require.NoError(t, err)
		part := bs.(*imap.BodyStructureSinglePart)
		require.NotNil(t, part.MessageRFC822)
		assert.Equal(t, "Re: hello", part.MessageRFC822.Envelope.Subject)
		assert.Equal(t, int64(12), part.MessageRFC822.NumLines)
	})
}
