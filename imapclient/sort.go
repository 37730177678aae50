package imapclient

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// SortKey 表示排序关键字
type SortKey string

const (
	SortKeyArrival SortKey = "ARRIVAL" // 按到达时间排序
	SortKeyCc      SortKey = "CC"      // 按第一个抄送人排序
	SortKeyDate    SortKey = "DATE"    // 按发送日期排序
	SortKeyFrom    SortKey = "FROM"    // 按第一个发件人排序
	SortKeySize    SortKey = "SIZE"    // 按大小排序
	SortKeySubject SortKey = "SUBJECT" // 按基本主题排序
	SortKeyTo      SortKey = "TO"      // 按第一个收件人排序
)

// SortCriterion 表示排序标准
type SortCriterion struct {
	Key     SortKey
	Reverse bool
}

// Sort 按 criteria 对满足 search 的邮件排序，返回消息序号。search 为 nil 表示所有邮件。
//
// 服务器不支持 SORT 时在本地排序：缺少的信封、内部日期和大小先被获取，
// 结果与服务器的 SORT 相同。所有关键字都相等时按消息序号排序。
func (c *Client) Sort(criteria []SortCriterion, search *imap.SearchCriteria) ([]uint32, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if len(criteria) == 0 {
		return nil, fmt.Errorf("imapclient: SORT 至少需要一个排序标准")
	}

	var (
		nums []uint32
		err  error
	)
	if c.caps.Has(imap.CapSort) {
		nums, err = c.serverSort(criteria, search)
	} else {
		nums, err = c.localSort(criteria, search)
	}
	if err != nil {
		return nil, err
	}
	c.sortResult = append([]uint32(nil), nums...)
	return nums, nil
}

// LastSort 返回并清除最近一次的排序结果，包括服务器主动发送的 SORT 数据。
func (c *Client) LastSort() []uint32 {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	nums := c.sortResult
	c.sortResult = nil
	return nums
}

func (c *Client) serverSort(criteria []SortCriterion, search *imap.SearchCriteria) ([]uint32, error) {
	if search == nil {
		search = &imap.SearchCriteria{}
	}
	var nums []uint32
	pd := &pendingData{sort: func(num uint32) {
		nums = append(nums, num)
	}}
	err := c.executeWith(pd, "SORT", func(enc *imapwire.Encoder) {
		enc.SP().List(len(criteria), func(i int) {
			if criteria[i].Reverse {
				enc.Atom("REVERSE").SP()
			}
			enc.Atom(string(criteria[i].Key))
		})
		enc.SP().Atom("UTF-8").SP()
		writeSearchKey(enc, search)
	})
	return nums, err
}

// sortRecord 是本地排序和线程使用的一封邮件的关键字。
type sortRecord struct {
	num     uint32
	arrival time.Time
	date    time.Time // 发送日期，缺失时为内部日期
	size    int64
	cc      string
	from    string
	to      string
	subject string // 基本主题
}

// candidates 返回满足 search 的邮件序号。search 为 nil 时不发送 SEARCH。
func (c *Client) candidates(search *imap.SearchCriteria) ([]uint32, error) {
	if c.state != imap.ConnStateSelected || c.mailbox == nil {
		return nil, fmt.Errorf("imapclient: 没有选中的邮箱")
	}
	if search == nil {
		nums := make([]uint32, c.mailbox.NumMessages)
		for i := range nums {
			nums[i] = uint32(i + 1)
		}
		return nums, nil
	}

	var nums []uint32
	pd := &pendingData{search: func(num uint32) {
		nums = append(nums, num)
	}}
	if err := c.search("SEARCH", pd, search); err != nil {
		return nil, err
	}
	return nums, nil
}

// sortRecords 为 nums 建立排序关键字。缓存中缺少的数据一次获取。
func (c *Client) sortRecords(nums []uint32) ([]*sortRecord, error) {
	records := make(map[uint32]*sortRecord, len(nums))
	var missing imap.SeqSet
	for _, num := range nums {
		entry := c.cache.Lookup(num)
		if entry == nil || entry.Envelope == nil || entry.InternalDate.IsZero() || !entry.HasSize {
			missing.AddNum(num)
			continue
		}
		records[num] = newSortRecord(entry)
	}

	if len(missing) > 0 {
		options := &imap.FetchOptions{Envelope: true, InternalDate: true, RFC822Size: true}
		err := c.fetchEach(missing, options, func(entry *CacheEntry) {
			if missing.Contains(entry.SeqNum) && entry.Envelope != nil {
				records[entry.SeqNum] = newSortRecord(entry)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	l := make([]*sortRecord, 0, len(nums))
	for _, num := range nums {
		rec, ok := records[num]
		if !ok {
			return nil, fmt.Errorf("imapclient: 服务器没有返回第 %v 封邮件的信封", num)
		}
		l = append(l, rec)
	}
	return l, nil
}

func newSortRecord(entry *CacheEntry) *sortRecord {
	env := entry.Envelope
	rec := &sortRecord{
		num:     entry.SeqNum,
		arrival: entry.InternalDate,
		date:    env.Date,
		size:    entry.Size,
		cc:      firstMailbox(env.Cc),
		from:    firstMailbox(env.From),
		to:      firstMailbox(env.To),
		subject: BaseSubject(env.Subject),
	}
	if rec.date.IsZero() {
		rec.date = entry.InternalDate
	}
	return rec
}

// firstMailbox 返回第一个地址的本地部分，小写。
func firstMailbox(addrs []imap.Address) string {
	for _, addr := range addrs {
		if addr.IsGroupStart() || addr.IsGroupEnd() {
			continue
		}
		return strings.ToLower(addr.Mailbox)
	}
	return ""
}

func (c *Client) localSort(criteria []SortCriterion, search *imap.SearchCriteria) ([]uint32, error) {
	for _, crit := range criteria {
		switch crit.Key {
		case SortKeyArrival, SortKeyCc, SortKeyDate, SortKeyFrom, SortKeySize, SortKeySubject, SortKeyTo:
		default:
			return nil, fmt.Errorf("imapclient: 未知的排序关键字 %q", crit.Key)
		}
	}

	nums, err := c.candidates(search)
	if err != nil {
		return nil, err
	}
	records, err := c.sortRecords(nums)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		for _, crit := range criteria {
			cmp := compareSortKey(a, b, crit.Key)
			if crit.Reverse {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return a.num < b.num
	})

	out := make([]uint32, len(records))
	for i, rec := range records {
		out[i] = rec.num
	}
	return out, nil
}

func compareSortKey(a, b *sortRecord, key SortKey) int {
	switch key {
	case SortKeyArrival:
		return a.arrival.Compare(b.arrival)
	case SortKeyDate:
		return a.date.Compare(b.date)
	case SortKeySize:
		switch {
		case a.size < b.size:
			return -1
		case a.size > b.size:
			return 1
		}
		return 0
	case SortKeyCc:
		return strings.Compare(a.cc, b.cc)
	case SortKeyFrom:
		return strings.Compare(a.from, b.from)
	case SortKeyTo:
		return strings.Compare(a.to, b.to)
	case SortKeySubject:
		return strings.Compare(a.subject, b.subject)
	}
	return 0
}
