package imapclient

import (
	"sort"
	"strings"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// ID 发送 ID 命令（RFC 2971），返回服务器的身份信息。
//
// clientID 为 nil 时发送 NIL。服务器以 NIL 回应时返回 nil, nil。例如：
//
//	ID ("name" "imapcli" "version" "1.0")
func (c *Client) ID(clientID *imap.IDData) (*imap.IDData, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.caps.Has(imap.CapID) {
		return nil, ErrNotSupported
	}

	var serverID *imap.IDData
	pd := &pendingData{id: func(d *imap.IDData) { serverID = d }}
	err := c.executeWith(pd, "ID", func(enc *imapwire.Encoder) {
		enc.SP()
		pairs := idPairs(clientID)
		if len(pairs) == 0 {
			enc.NIL()
			return
		}
		enc.List(len(pairs), func(i int) {
			enc.Quoted(pairs[i][0]).SP().Quoted(pairs[i][1])
		})
	})
	return serverID, err
}

// idPairs 把身份信息展开为键值对。常见字段在前，Extra 按键排序。
func idPairs(data *imap.IDData) [][2]string {
	if data == nil {
		return nil
	}
	var pairs [][2]string
	add := func(k, v string) {
		if v != "" {
			pairs = append(pairs, [2]string{k, v})
		}
	}
	add("name", data.Name)
	add("version", data.Version)
	add("os", data.OS)
	add("os-version", data.OSVersion)
	add("vendor", data.Vendor)
	add("support-url", data.SupportURL)

	keys := make([]string, 0, len(data.Extra))
	for k := range data.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, data.Extra[k])
	}
	return pairs
}

// readID 读取 "* ID NIL" 或 "* ID ("name" "Cyrus" ...)"。值为 NIL 的字段被忽略。
func readID(dec *imapwire.Decoder) (*imap.IDData, error) {
	if dec.NIL() {
		return nil, nil
	}

	var (
		data imap.IDData
		key  string
		half bool
	)
	err := dec.ExpectList(func() error {
		var s string
		if !dec.ExpectNString(&s) {
			return dec.Err()
		}
		if !half {
			key, half = s, true
			return nil
		}
		half = false
		switch strings.ToLower(key) {
		case "name":
			data.Name = s
		case "version":
			data.Version = s
		case "os":
			data.OS = s
		case "os-version":
			data.OSVersion = s
		case "vendor":
			data.Vendor = s
		case "support-url":
			data.SupportURL = s
		default:
			if s == "" {
				return nil
			}
			if data.Extra == nil {
				data.Extra = make(map[string]string)
			}
			data.Extra[strings.ToLower(key)] = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}
