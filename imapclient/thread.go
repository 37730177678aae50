package imapclient

import (
	"fmt"
	"sort"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// Thread 用 alg 对满足 search 的邮件分线程。search 为 nil 表示所有邮件。
//
// 服务器不支持该算法时，ORDEREDSUBJECT 在本地计算，其他算法返回 ErrNotSupported。
func (c *Client) Thread(alg imap.ThreadAlgorithm, search *imap.SearchCriteria) ([]*imap.ThreadNode, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	var (
		threads []*imap.ThreadNode
		err     error
	)
	switch {
	case c.caps.Has(imap.ThreadCap(alg)):
		threads, err = c.serverThread(alg, search)
	case alg == imap.ThreadOrderedSubject:
		threads, err = c.localOrderedSubject(search)
	default:
		return nil, ErrNotSupported
	}
	if err != nil {
		return nil, err
	}
	c.threadResult = threads
	return threads, nil
}

// LastThread 返回并清除最近一次的线程结果。
func (c *Client) LastThread() []*imap.ThreadNode {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	threads := c.threadResult
	c.threadResult = nil
	return threads
}

func (c *Client) serverThread(alg imap.ThreadAlgorithm, search *imap.SearchCriteria) ([]*imap.ThreadNode, error) {
	if search == nil {
		search = &imap.SearchCriteria{}
	}
	c.threadResult = nil
	err := c.execute("THREAD", func(enc *imapwire.Encoder) {
		enc.SP().Atom(string(alg)).SP().Atom("UTF-8").SP()
		writeSearchKey(enc, search)
	})
	if err != nil {
		return nil, err
	}
	return c.threadResult, nil
}

// localOrderedSubject 按 RFC 5256 的 ORDEREDSUBJECT 分线程：基本主题相同的邮件
// 为一个线程，线程内按发送日期排序，第一封是根，其余都是它的子节点；
// 线程之间按第一封邮件的日期排序。
func (c *Client) localOrderedSubject(search *imap.SearchCriteria) ([]*imap.ThreadNode, error) {
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
		if a.subject != b.subject {
			return a.subject < b.subject
		}
		if cmp := a.date.Compare(b.date); cmp != 0 {
			return cmp < 0
		}
		return a.num < b.num
	})

	var (
		threads []*imap.ThreadNode
		roots   []*sortRecord
	)
	for i, rec := range records {
		node := &imap.ThreadNode{Num: rec.num}
		if i > 0 && records[i-1].subject == rec.subject {
			root := threads[len(threads)-1]
			root.Children = append(root.Children, node)
			continue
		}
		threads = append(threads, node)
		roots = append(roots, rec)
	}

	order := make([]int, len(threads))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := roots[order[i]], roots[order[j]]
		if cmp := a.date.Compare(b.date); cmp != 0 {
			return cmp < 0
		}
		return a.num < b.num
	})
	out := make([]*imap.ThreadNode, len(threads))
	for i, k := range order {
		out[i] = threads[k]
	}
	return out, nil
}

// readThreads 读取 THREAD 响应中的线程森林，例如 "(2)(3 6 (4 23)(44 7 96))"。
//
// 列表中的数字形成一条父子链；嵌套的列表是最后一个节点的子线程。
// 列表以子线程开头时，用 Num 为 0 的占位节点作为父节点。
func readThreads(dec *imapwire.Decoder) ([]*imap.ThreadNode, error) {
	var threads []*imap.ThreadNode
	for {
		dec.SP()
		if !dec.Special('(') {
			break
		}
		node, err := readThreadList(dec)
		if err != nil {
			return nil, fmt.Errorf("在线程列表中: %w", err)
		}
		if node != nil {
			threads = append(threads, node)
		}
	}
	if !dec.EOL() {
		return nil, fmt.Errorf("imapclient: THREAD 响应中有多余的数据: %q", dec.Rest())
	}
	return threads, nil
}

// readThreadList 读取 '(' 之后的内容，直到对应的 ')'。
func readThreadList(dec *imapwire.Decoder) (*imap.ThreadNode, error) {
	var root, last *imap.ThreadNode
	for {
		if dec.Special(')') {
			return root, nil
		}
		dec.SP()

		var num uint32
		switch {
		case dec.Number(&num):
			node := &imap.ThreadNode{Num: num}
			if last == nil {
				root = node
			} else {
				last.Children = append(last.Children, node)
			}
			last = node
		case dec.Special('('):
			sub, err := readThreadList(dec)
			if err != nil {
				return nil, err
			}
			if last == nil {
				root = &imap.ThreadNode{}
				last = root
			}
			if sub != nil {
				last.Children = append(last.Children, sub)
			}
		default:
			dec.Expect(false, "线程成员")
			return nil, dec.Err()
		}
	}
}
