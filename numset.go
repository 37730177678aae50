package imap

import (
	"unsafe"

	"github.com/luhaoyun888/go-imapdriver/internal/imapnum"
)

// NumSet 是一组标识消息的数字。NumSet 可以是 SeqSet 或 UIDSet。
type NumSet interface {
	// String 返回消息编号集的 IMAP 表示。
	String() string
	// Dynamic 在集合包含 "*" 或 "n:*" 范围时返回 true。
	Dynamic() bool
	// Split 在逗号边界切分文本形式，每段不超过 maxLen 字节。
	Split(maxLen int) []string

	numSet() imapnum.Set
}

var (
	_ NumSet = SeqSet(nil)
	_ NumSet = UIDSet(nil)
)

// SeqSet 是一组消息序列号。
type SeqSet []SeqRange

// SeqSetNum 返回包含指定序列号的新 SeqSet。
func SeqSetNum(nums ...uint32) SeqSet {
	var s SeqSet
	s.AddNum(nums...)
	return s
}

// ParseSeqSet 解析 "1:3,7,9:*" 这样的文本。
func ParseSeqSet(s string) (SeqSet, error) {
	set, err := imapnum.Parse(s)
	if err != nil {
		return nil, err
	}
	return *(*SeqSet)(unsafe.Pointer(&set)), nil
}

func (s *SeqSet) numSetPtr() *imapnum.Set {
	return (*imapnum.Set)(unsafe.Pointer(s))
}

func (s SeqSet) numSet() imapnum.Set {
	return *s.numSetPtr()
}

// String 返回 SeqSet 的 IMAP 表示。
func (s SeqSet) String() string {
	return s.numSet().String()
}

// Dynamic 返回如果 SeqSet 是动态的，则返回 true。
func (s SeqSet) Dynamic() bool {
	return s.numSet().Dynamic()
}

// Split 实现 NumSet。
func (s SeqSet) Split(maxLen int) []string {
	return s.numSet().Split(maxLen)
}

// Contains 返回如果非零的序列号 num 包含在集合中则返回 true。
func (s SeqSet) Contains(num uint32) bool {
	return s.numSet().Contains(num)
}

// Nums 返回包含在集合中的所有序列号的切片。
func (s SeqSet) Nums() ([]uint32, bool) {
	return s.numSet().Nums()
}

// AddNum 将新的序列号插入到集合中。值 0 表示 "*"。
func (s *SeqSet) AddNum(nums ...uint32) {
	s.numSetPtr().AddNum(nums...)
}

// AddRange 将新的范围插入集合中。
func (s *SeqSet) AddRange(start, stop uint32) {
	s.numSetPtr().AddRange(start, stop)
}

// AddSet 将其他 SeqSet 的所有序列号插入到 s 中。
func (s *SeqSet) AddSet(other SeqSet) {
	s.numSetPtr().AddSet(other.numSet())
}

// SeqRange 是消息序列号的范围。
type SeqRange struct {
	Start, Stop uint32
}

// UIDSet 是一组消息 UID。
type UIDSet []UIDRange

// UIDSetNum 返回包含指定 UIDs 的新 UIDSet。
func UIDSetNum(uids ...UID) UIDSet {
	var s UIDSet
	s.AddNum(uids...)
	return s
}

// ParseUIDSet 解析 UID 集合的文本形式。
func ParseUIDSet(s string) (UIDSet, error) {
	set, err := imapnum.Parse(s)
	if err != nil {
		return nil, err
	}
	return *(*UIDSet)(unsafe.Pointer(&set)), nil
}

func (s *UIDSet) numSetPtr() *imapnum.Set {
	return (*imapnum.Set)(unsafe.Pointer(s))
}

func (s UIDSet) numSet() imapnum.Set {
	return *s.numSetPtr()
}

// String 返回 UIDSet 的 IMAP 表示。
func (s UIDSet) String() string {
	return s.numSet().String()
}

// Dynamic 返回如果 UIDSet 是动态的，则返回 true。
func (s UIDSet) Dynamic() bool {
	return s.numSet().Dynamic()
}

// Split 实现 NumSet。
func (s UIDSet) Split(maxLen int) []string {
	return s.numSet().Split(maxLen)
}

// Contains 返回如果非零的 UID uid 包含在集合中则返回 true。
func (s UIDSet) Contains(uid UID) bool {
	return s.numSet().Contains(uint32(uid))
}

// Nums 返回包含在集合中的所有 UIDs 的切片。
func (s UIDSet) Nums() ([]UID, bool) {
	nums, ok := s.numSet().Nums()
	return uidListFromNumList(nums), ok
}

// AddNum 将新的 UIDs 插入到集合中。值 0 表示 "*"。
func (s *UIDSet) AddNum(uids ...UID) {
	s.numSetPtr().AddNum(numListFromUIDList(uids)...)
}

// AddRange 将新的范围插入集合中。
func (s *UIDSet) AddRange(start, stop UID) {
	s.numSetPtr().AddRange(uint32(start), uint32(stop))
}

// AddSet 将其他 UIDSet 的所有 UIDs 插入到 s 中。
func (s *UIDSet) AddSet(other UIDSet) {
	s.numSetPtr().AddSet(other.numSet())
}

// UIDRange 是消息 UID 的范围。
type UIDRange struct {
	Start, Stop UID
}

func numListFromUIDList(uids []UID) []uint32 {
	return *(*[]uint32)(unsafe.Pointer(&uids))
}

func uidListFromNumList(nums []uint32) []UID {
	return *(*[]UID)(unsafe.Pointer(&nums))
}
