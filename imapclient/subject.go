package imapclient

import (
	"strings"
)

// BaseSubject 按 RFC 5256 第 2.1 节提取基本主题，用于 SUBJECT 排序和 ORDEREDSUBJECT 线程。
//
// 去掉 "Re:"、"Fw:"、"Fwd:"、"[list]" 之类的前缀，结尾的 "(fwd)"，以及
// "[Fwd: ...]" 包装。空白被压缩为单个空格，结果统一为小写。
func BaseSubject(subject string) string {
	s := strings.Join(strings.Fields(subject), " ")
	for {
		// 结尾的 "(fwd)"
		for {
			trimmed := strings.TrimRight(s, " ")
			lower := strings.ToLower(trimmed)
			if !strings.HasSuffix(lower, "(fwd)") {
				s = trimmed
				break
			}
			s = trimmed[:len(trimmed)-len("(fwd)")]
		}

		// 开头的 subj-leader 和 subj-blob
		for {
			prev := s
			s = strings.TrimLeft(s, " ")
			s = trimRefwd(s)
			if blob, rest, ok := cutBlob(s); ok && blob != "" && strings.TrimSpace(rest) != "" {
				s = rest
			}
			if s == prev {
				break
			}
		}

		lower := strings.ToLower(s)
		if strings.HasPrefix(lower, "[fwd:") && strings.HasSuffix(s, "]") {
			s = s[len("[fwd:") : len(s)-1]
			continue
		}
		return strings.ToLower(strings.TrimSpace(s))
	}
}

// trimRefwd 去掉一个 subj-refwd：*subj-blob ("re" / "fw" / "fwd") *WSP [subj-blob] ":"。
func trimRefwd(s string) string {
	rest := s
	for {
		_, after, ok := cutBlob(rest)
		if !ok {
			break
		}
		rest = after
	}

	lower := strings.ToLower(rest)
	switch {
	case strings.HasPrefix(lower, "re"):
		rest = rest[2:]
	case strings.HasPrefix(lower, "fwd"):
		rest = rest[3:]
	case strings.HasPrefix(lower, "fw"):
		rest = rest[2:]
	default:
		return s
	}
	rest = strings.TrimLeft(rest, " ")
	if _, after, ok := cutBlob(rest); ok {
		rest = after
	}
	if !strings.HasPrefix(rest, ":") {
		return s
	}
	return rest[1:]
}

// cutBlob 切出开头的 "[...]" 及其后的空白。blob 内不能再出现方括号。
func cutBlob(s string) (blob, rest string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", s, false
	}
	end := strings.IndexAny(s[1:], "[]")
	if end < 0 || s[1+end] != ']' {
		return "", s, false
	}
	return s[1 : 1+end], strings.TrimLeft(s[2+end:], " "), true
}
