// Package imapnum 实现 IMAP 序列集合（sequence-set）的内部表示。
package imapnum

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Range 是一个闭区间。值 0 表示 "*"（邮箱中最大的编号）。
type Range struct {
	Start, Stop uint32
}

// key 把 "*" 映射为最大值，便于排序和比较。
func key(n uint32) uint32 {
	if n == 0 {
		return math.MaxUint32
	}
	return n
}

func (r Range) lo() uint32 { return key(r.Start) }
func (r Range) hi() uint32 { return key(r.Stop) }

// Contains 判断 num 是否落在区间内。
func (r Range) Contains(num uint32) bool {
	k := key(num)
	return r.lo() <= k && k <= r.hi()
}

// String 返回区间的 IMAP 表示，例如 "3"、"2:7" 或 "5:*"。
func (r Range) String() string {
	if r.Start == r.Stop {
		return formatNum(r.Start)
	}
	return formatNum(r.Start) + ":" + formatNum(r.Stop)
}

func formatNum(n uint32) string {
	if n == 0 {
		return "*"
	}
	return strconv.FormatUint(uint64(n), 10)
}

// Set 是按升序排列且互不重叠的区间列表。
type Set []Range

// AddNum 插入若干个编号。0 表示 "*"。
func (s *Set) AddNum(nums ...uint32) {
	for _, n := range nums {
		s.insert(Range{n, n})
	}
}

// AddRange 插入一个区间，start 和 stop 的顺序无关紧要。
func (s *Set) AddRange(start, stop uint32) {
	if key(start) > key(stop) {
		start, stop = stop, start
	}
	s.insert(Range{start, stop})
}

// AddSet 把 other 中的全部区间并入 s。
func (s *Set) AddSet(other Set) {
	for _, r := range other {
		s.insert(r)
	}
}

// insert 插入区间并合并相邻或重叠的区间，保持集合规范化。
func (s *Set) insert(r Range) {
	rs := append(*s, r)
	sort.Slice(rs, func(i, j int) bool { return rs[i].lo() < rs[j].lo() })

	out := rs[:0]
	for _, cur := range rs {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.hi() == math.MaxUint32 || cur.lo() <= last.hi()+1 {
				if cur.hi() > last.hi() {
					last.Stop = cur.Stop
				}
				continue
			}
		}
		out = append(out, cur)
	}
	*s = out
}

// Contains 判断非零编号 num 是否在集合中。
func (s Set) Contains(num uint32) bool {
	for _, r := range s {
		if r.Contains(num) {
			return true
		}
	}
	return false
}

// Dynamic 在集合包含 "*" 时返回 true。
func (s Set) Dynamic() bool {
	for _, r := range s {
		if r.Start == 0 || r.Stop == 0 {
			return true
		}
	}
	return false
}

// Nums 展开集合中的所有编号。集合是动态的时返回 false。
func (s Set) Nums() ([]uint32, bool) {
	if s.Dynamic() {
		return nil, false
	}
	var nums []uint32
	for _, r := range s {
		for n := r.Start; n <= r.Stop; n++ {
			nums = append(nums, n)
			if n == math.MaxUint32 {
				break
			}
		}
	}
	return nums, true
}

// String 返回集合的 IMAP 表示。
func (s Set) String() string {
	l := make([]string, len(s))
	for i, r := range s {
		l[i] = r.String()
	}
	return strings.Join(l, ",")
}

// Split 在逗号处切分集合的文本形式，使每一段都不超过 maxLen 字节。
// 单个区间本身超过 maxLen 时仍会独占一段。
func (s Set) Split(maxLen int) []string {
	if len(s) == 0 {
		return nil
	}
	if str := s.String(); len(str) <= maxLen {
		return []string{str}
	}

	var (
		chunks []string
		b      strings.Builder
	)
	for _, r := range s {
		item := r.String()
		if b.Len() > 0 && b.Len()+1+len(item) > maxLen {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(item)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

// Parse 解析 IMAP 序列集合的文本形式。
func Parse(str string) (Set, error) {
	var s Set
	for _, part := range strings.Split(str, ",") {
		start, stop, isRange := strings.Cut(part, ":")
		a, err := parseNum(start)
		if err != nil {
			return nil, err
		}
		if !isRange {
			s.AddNum(a)
			continue
		}
		b, err := parseNum(stop)
		if err != nil {
			return nil, err
		}
		s.AddRange(a, b)
	}
	return s, nil
}

func parseNum(str string) (uint32, error) {
	if str == "*" {
		return 0, nil
	}
	n, err := strconv.ParseUint(str, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("imapnum: 无效的序列号 %q: %w", str, err)
	} else if n == 0 {
		return 0, fmt.Errorf("imapnum: 序列号不能为 0")
	}
	return uint32(n), nil
}
