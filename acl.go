package imap

import (
	"fmt"
	"strings"
)

// IMAP4 ACL 扩展 (RFC 2086)

// Right 是 ACL 中的一个权限字母。
type Right byte

const (
	RightLookup     = Right('l') // 邮箱对 LIST/LSUB 可见
	RightRead       = Right('r') // SELECT、FETCH、SEARCH、COPY 源
	RightSeen       = Right('s') // 跨会话保留 \Seen
	RightWrite      = Right('w') // 除 \Seen 和 \Deleted 以外的 STORE
	RightInsert     = Right('i') // APPEND、COPY 目标
	RightPost       = Right('p') // 向邮箱的投递地址发信
	RightCreate     = Right('c') // 创建子邮箱
	RightDelete     = Right('d') // STORE \Deleted 与 EXPUNGE
	RightAdminister = Right('a') // SETACL
)

// RightSetAll 包含所有标准权限。
var RightSetAll = RightSet("lrswipcda")

// RightsIdentifier 是一个 ACL 标识符。
type RightsIdentifier string

// RightsIdentifierAnyone 匹配所有人。
const RightsIdentifierAnyone = RightsIdentifier("anyone")

// NewRightsIdentifierUsername 返回引用用户名的标识符，拒绝保留值。
func NewRightsIdentifierUsername(username string) (RightsIdentifier, error) {
	if username == string(RightsIdentifierAnyone) || strings.HasPrefix(username, "-") {
		return "", fmt.Errorf("imap: 保留的权限标识符 %q", username)
	}
	return RightsIdentifier(username), nil
}

// RightModification 表示 SETACL 如何修改权限集。
type RightModification byte

const (
	RightModificationReplace = RightModification(0)
	RightModificationAdd     = RightModification('+')
	RightModificationRemove  = RightModification('-')
)

// RightSet 表示一组权限。
type RightSet []Right

func (r RightSet) String() string {
	return string(r)
}

// Has 报告集合中是否包含 right。
func (r RightSet) Has(right Right) bool {
	return strings.IndexByte(string(r), byte(right)) >= 0
}

// Format 返回 SETACL 使用的带修改前缀的权限文本。
func (r RightSet) Format(rm RightModification) string {
	if rm == RightModificationReplace {
		return string(r)
	}
	return string(rune(rm)) + string(r)
}

// Add 返回包含两个集合全部权限的新集合。
func (r RightSet) Add(rights RightSet) RightSet {
	out := make(RightSet, len(r), len(r)+len(rights))
	copy(out, r)
	for _, right := range rights {
		if !out.Has(right) {
			out = append(out, right)
		}
	}
	return out
}

// Remove 返回 r 中不属于 rights 的权限。
func (r RightSet) Remove(rights RightSet) RightSet {
	out := make(RightSet, 0, len(r))
	for _, right := range r {
		if !rights.Has(right) {
			out = append(out, right)
		}
	}
	return out
}

// Equal 报告两个集合是否包含完全相同的权限，忽略顺序。
func (r RightSet) Equal(other RightSet) bool {
	return len(r.Remove(other)) == 0 && len(other.Remove(r)) == 0
}

// ACLData 是 "* ACL" 响应的内容。
type ACLData struct {
	Mailbox string
	Rights  map[RightsIdentifier]RightSet
}

// ListRightsData 是 "* LISTRIGHTS" 响应的内容。
type ListRightsData struct {
	Mailbox    string
	Identifier RightsIdentifier
	Required   RightSet   // 总是授予的权限
	Optional   []RightSet // 可以授予的权限组
}

// MyRightsData 是 "* MYRIGHTS" 响应的内容。
type MyRightsData struct {
	Mailbox string
	Rights  RightSet
}
