package imapclient

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

func encodeSearchKey(criteria *imap.SearchCriteria) string {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	enc := imapwire.NewEncoder(bw)
	writeSearchKey(enc, criteria)
	enc.CRLF()
	return strings.TrimSuffix(buf.String(), "\r\n")
}

func TestWriteSearchKey(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		criteria imap.SearchCriteria
		want     string
	}{
		{"空条件", imap.SearchCriteria{}, "ALL"},
		{"序号和 UID", imap.SearchCriteria{
			SeqNum: []imap.SeqSet{imap.SeqSetNum(1, 2, 3)},
			UID:    []imap.UIDSet{imap.UIDSetNum(9)},
		}, "1:3 UID 9"},
		{"同一天", imap.SearchCriteria{Since: day, Before: day.Add(24 * time.Hour)}, "ON 9-Mar-2024"},
		{"日期范围", imap.SearchCriteria{SentSince: day}, "SENTSINCE 9-Mar-2024"},
		{"头部字段", imap.SearchCriteria{Header: []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: "fred"},
			{Key: "X-Mailer", Value: "mutt 2"},
		}}, `FROM fred HEADER X-Mailer "mutt 2"`},
		{"标志", imap.SearchCriteria{
			Flag:    []imap.Flag{imap.FlagSeen, "$Work"},
			NotFlag: []imap.Flag{imap.FlagDeleted},
		}, "SEEN KEYWORD $Work UNDELETED"},
		{"大小", imap.SearchCriteria{Larger: 1000, Smaller: 5000}, "LARGER 1000 SMALLER 5000"},
		{"NOT 和 OR", imap.SearchCriteria{
			Not: []imap.SearchCriteria{{Body: []string{"hello"}}},
			Or:  [][2]imap.SearchCriteria{{{Text: []string{"a"}}, {Text: []string{"b"}}}},
		}, "NOT (BODY hello) OR (TEXT a) (TEXT b)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, encodeSearchKey(&tc.criteria))
		})
	}
}

func TestSearch(t *testing.T) {
	c, tr := selectedClient(t, 3, false,
		"* SEARCH 1 3",
		"00000002 OK SEARCH completed",
		"* SEARCH",
		"00000003 OK SEARCH completed",
	)
	nums, err := c.Search(&imap.SearchCriteria{Flag: []imap.Flag{imap.FlagFlagged}})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3}, nums)
	assert.Contains(t, tr.sent(), "00000002 SEARCH FLAGGED\r\n")
	assert.True(t, c.Cache().Lookup(1).Searched)
	assert.True(t, c.Cache().Lookup(3).Searched)

	// 新的搜索清除旧的标记
	nums, err = c.Search(nil)
	require.NoError(t, err)
	assert.Empty(t, nums)
	assert.False(t, c.Cache().Lookup(1).Searched)
}

func TestSearchCharset(t *testing.T) {
	c, tr := selectedClient(t, 3, false,
		"+ ready for literal",
		"* SEARCH 2",
		"00000002 OK SEARCH completed",
	)
	nums, err := c.Search(&imap.SearchCriteria{Text: []string{"café"}})
	require.NoError(t, err)
	assert.Equal(t, []uint32{2}, nums)
	assert.Contains(t, tr.sent(), "00000002 SEARCH CHARSET UTF-8 TEXT {5}\r\ncafé\r\n")
}

func TestUIDSearchNeedsIMAP4(t *testing.T) {
	c, tr := newTestClient(t, nil, "* OK IMAP2 ready", "00000001 BAD unknown")
	before := tr.io()
	_, err := c.UIDSearch(nil)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Equal(t, before, tr.io())
}
