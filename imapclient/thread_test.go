package imapclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

func node(num uint32, children ...*imap.ThreadNode) *imap.ThreadNode {
	return &imap.ThreadNode{Num: num, Children: children}
}

func TestReadThreads(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []*imap.ThreadNode
	}{
		{"空", "", nil},
		{"单封", "(2)", []*imap.ThreadNode{node(2)}},
		{
			name: "RFC 5256 示例",
			in:   "(2)(3 6 (4 23)(44 7 96))",
			want: []*imap.ThreadNode{
				node(2),
				node(3, node(6, node(4, node(23)), node(44, node(7, node(96))))),
			},
		},
		{
			name: "缺失的父节点",
			in:   "((3)(5))",
			want: []*imap.ThreadNode{node(0, node(3), node(5))},
		},
		{"线程之间有空格", "(1) (2 3)", []*imap.ThreadNode{node(1), node(2, node(3))}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			threads, err := readThreads(imapwire.NewDecoder(nil, tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.want, threads)
		})
	}
}

func TestReadThreadsInvalid(t *testing.T) {
	for _, in := range []string{"(1 x)", "(1 2", "(1) junk"} {
		_, err := readThreads(imapwire.NewDecoder(nil, in))
		assert.Error(t, err, in)
	}
}

func TestServerThread(t *testing.T) {
	lines := []string{preauthRev1Sort}
	lines = append(lines, selectLines("00000001", 3)...)
	lines = append(lines, "* THREAD (1 2)(3)", "00000002 OK THREAD completed")
	c, tr := newTestClient(t, nil, lines...)
	_, err := c.Select("INBOX", nil)
	require.NoError(t, err)

	threads, err := c.Thread(imap.ThreadOrderedSubject, nil)
	require.NoError(t, err)
	assert.Equal(t, []*imap.ThreadNode{node(1, node(2)), node(3)}, threads)
	assert.Contains(t, tr.sent(), "00000002 THREAD ORDEREDSUBJECT UTF-8 ALL\r\n")
}

func TestLocalOrderedSubject(t *testing.T) {
	c, tr := selectedClient(t, 3, false,
		sortFetchLine(1, "Tue, 2 Jan 2024 10:00:00 +0000", "hello", "a", 1),
		sortFetchLine(2, "Wed, 3 Jan 2024 10:00:00 +0000", "Re: hello", "b", 1),
		sortFetchLine(3, "Mon, 1 Jan 2024 10:00:00 +0000", "other", "c", 1),
		"00000002 OK FETCH completed",
	)
	threads, err := c.Thread(imap.ThreadOrderedSubject, nil)
	require.NoError(t, err)
	assert.Equal(t, []*imap.ThreadNode{node(3), node(1, node(2))}, threads)
	assert.NotContains(t, tr.sent(), "THREAD")
	assert.Equal(t, threads, c.LastThread())
}

func TestThreadReferencesNeedsServer(t *testing.T) {
	c, _ := selectedClient(t, 3, false)
	_, err := c.Thread(imap.ThreadReferences, nil)
	assert.ErrorIs(t, err, ErrNotSupported)
}
