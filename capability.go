package imap

import (
	"strings"
)

// Cap 表示 IMAP 的能力。
type Cap string

// 引擎关心的能力。
//
// 参见：https://www.iana.org/assignments/imap-capabilities/
const (
	CapIMAP4     Cap = "IMAP4"     // RFC 1730
	CapIMAP4rev1 Cap = "IMAP4rev1" // RFC 3501

	CapStartTLS      Cap = "STARTTLS"      // 支持 STARTTLS
	CapLoginDisabled Cap = "LOGINDISABLED" // 登录被禁用
	CapSASLIR        Cap = "SASL-IR"       // 支持 SASL-IR，RFC 4959

	CapACL              Cap = "ACL"               // 支持 ACL，RFC 2086
	CapQuota            Cap = "QUOTA"             // 支持 QUOTA，RFC 2087
	CapNamespace        Cap = "NAMESPACE"         // 支持 NAMESPACE，RFC 2342
	CapSort             Cap = "SORT"              // 支持 SORT，RFC 5256
	CapMultiAppend      Cap = "MULTIAPPEND"       // 支持 MULTIAPPEND，RFC 3502
	CapMailboxReferrals Cap = "MAILBOX-REFERRALS" // 支持 MAILBOX-REFERRALS，RFC 2193
	CapID               Cap = "ID"                // 支持 ID，RFC 2971
)

// AuthCap 返回 SASL 身份验证机制的能力名称。
func AuthCap(mechanism string) Cap {
	return Cap("AUTH=" + strings.ToUpper(mechanism))
}

// ThreadCap 返回线程算法的能力名称。
func ThreadCap(alg ThreadAlgorithm) Cap {
	return Cap("THREAD=" + strings.ToUpper(string(alg)))
}

// CapSet 是能力集合的类型。能力名统一保存为大写。
type CapSet map[Cap]struct{}

// NewCapSet 从服务器发来的能力名创建集合。
func NewCapSet(caps ...string) CapSet {
	set := make(CapSet, len(caps))
	for _, c := range caps {
		set[Cap(strings.ToUpper(c))] = struct{}{}
	}
	return set
}

// has 检查能力集合中是否包含某个能力。
func (set CapSet) has(c Cap) bool {
	_, ok := set[Cap(strings.ToUpper(string(c)))]
	return ok
}

// Has 检查能力集合是否支持某个能力。
//
// IMAP4rev1 隐含 IMAP4。
func (set CapSet) Has(c Cap) bool {
	if set.has(c) {
		return true
	}
	if strings.EqualFold(string(c), string(CapIMAP4)) && set.has(CapIMAP4rev1) {
		return true
	}
	return false
}

// AuthMechanisms 返回支持的 SASL 身份验证机制的列表。
func (set CapSet) AuthMechanisms() []string {
	var l []string
	for c := range set {
		if !strings.HasPrefix(string(c), "AUTH=") {
			continue
		}
		mech := strings.TrimPrefix(string(c), "AUTH=")
		l = append(l, mech)
	}
	return l
}

// QuotaResourceTypes 返回支持的 QUOTA 资源类型的列表。
func (set CapSet) QuotaResourceTypes() []QuotaResourceType {
	var l []QuotaResourceType
	for c := range set {
		if !strings.HasPrefix(string(c), "QUOTA=RES-") {
			continue
		}
		t := strings.TrimPrefix(string(c), "QUOTA=RES-")
		l = append(l, QuotaResourceType(t))
	}
	return l
}

// ThreadAlgorithms 返回支持的线程算法的列表。
func (set CapSet) ThreadAlgorithms() []ThreadAlgorithm {
	var l []ThreadAlgorithm
	for c := range set {
		if !strings.HasPrefix(string(c), "THREAD=") {
			continue
		}
		alg := strings.TrimPrefix(string(c), "THREAD=")
		l = append(l, ThreadAlgorithm(alg))
	}
	return l
}
