package imapclient

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhaoyun888/go-imapdriver"
)

// sortFetchLine 是一封邮件在本地排序时的 FETCH 应答。
func sortFetchLine(num int, date, subject, from string, size int) string {
	env := fmt.Sprintf(`(%q %q ((NIL NIL %q "example.org")) NIL NIL NIL NIL NIL NIL NIL)`, date, subject, from)
	return fmt.Sprintf(`* %d FETCH (INTERNALDATE "0%d-Jan-2024 10:00:00 +0000" RFC822.SIZE %d ENVELOPE %s)`, num, num, size, env)
}

var sortFixture = []string{
	sortFetchLine(1, "Tue, 2 Jan 2024 10:00:00 +0000", "Re: beta", "carol", 300),
	sortFetchLine(2, "Wed, 3 Jan 2024 10:00:00 +0000", "alpha", "Bob", 100),
	sortFetchLine(3, "Mon, 1 Jan 2024 10:00:00 +0000", "[list] Alpha", "alice", 200),
	"00000002 OK FETCH completed",
}

func TestLocalSort(t *testing.T) {
	tests := []struct {
		name     string
		criteria []SortCriterion
		want     []uint32
	}{
		{"按主题", []SortCriterion{{Key: SortKeySubject}}, []uint32{2, 3, 1}},
		{"按主题倒序", []SortCriterion{{Key: SortKeySubject, Reverse: true}}, []uint32{1, 2, 3}},
		{"按日期", []SortCriterion{{Key: SortKeyDate}}, []uint32{3, 1, 2}},
		{"按大小", []SortCriterion{{Key: SortKeySize}}, []uint32{2, 3, 1}},
		{"按发件人", []SortCriterion{{Key: SortKeyFrom}}, []uint32{3, 2, 1}},
		{"按到达时间倒序", []SortCriterion{{Key: SortKeyArrival, Reverse: true}}, []uint32{3, 2, 1}},
		{"主题相同再按大小倒序", []SortCriterion{{Key: SortKeySubject}, {Key: SortKeySize, Reverse: true}}, []uint32{3, 2, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, tr := selectedClient(t, 3, false, sortFixture...)
			nums, err := c.Sort(tc.criteria, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, nums)
			assert.Contains(t, tr.sent(), "00000002 FETCH 1:3 (INTERNALDATE RFC822.SIZE ENVELOPE)\r\n")
			assert.NotContains(t, tr.sent(), "SORT")
			assert.Equal(t, tc.want, c.LastSort())
			assert.Nil(t, c.LastSort())
		})
	}
}

func TestLocalSortUsesCache(t *testing.T) {
	c, tr := selectedClient(t, 3, false, sortFixture...)
	_, err := c.Sort([]SortCriterion{{Key: SortKeySubject}}, nil)
	require.NoError(t, err)

	before := tr.io()
	nums, err := c.Sort([]SortCriterion{{Key: SortKeyDate}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 1, 2}, nums)
	assert.Equal(t, before, tr.io())
}

func TestLocalSortUnknownKey(t *testing.T) {
	c, tr := selectedClient(t, 3, false)
	before := tr.io()
	_, err := c.Sort([]SortCriterion{{Key: "COLOR"}}, nil)
	assert.Error(t, err)
	assert.Equal(t, before, tr.io())
}

func TestServerSort(t *testing.T) {
	lines := []string{preauthRev1Sort}
	lines = append(lines, selectLines("00000001", 3)...)
	lines = append(lines, "* SORT 3 1 2", "00000002 OK SORT completed")
	c, tr := newTestClient(t, nil, lines...)
	_, err := c.Select("INBOX", nil)
	require.NoError(t, err)

	nums, err := c.Sort([]SortCriterion{{Key: SortKeyDate, Reverse: true}, {Key: SortKeySize}}, &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagDeleted},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 1, 2}, nums)
	assert.Contains(t, tr.sent(), "00000002 SORT (REVERSE DATE SIZE) UTF-8 UNDELETED\r\n")
}
