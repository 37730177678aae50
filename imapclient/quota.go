package imapclient

import (
	"fmt"
	"sort"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// IMAP4 QUOTA 扩展 (RFC 2087)

// GetQuota 发送 GETQUOTA 命令。
func (c *Client) GetQuota(root string) (*imap.QuotaData, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.caps.Has(imap.CapQuota) {
		return nil, ErrNotSupported
	}
	var data *imap.QuotaData
	pd := &pendingData{quota: func(d *imap.QuotaData) { data = d }}
	err := c.executeWith(pd, "GETQUOTA", func(enc *imapwire.Encoder) {
		enc.SP().String(root)
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("imapclient: 服务器没有返回配额根 %v 的数据", root)
	}
	return data, nil
}

// GetQuotaRoot 发送 GETQUOTAROOT 命令，返回邮箱的配额根以及每个根的配额。
func (c *Client) GetQuotaRoot(mailbox string) (*imap.QuotaRootData, []*imap.QuotaData, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.caps.Has(imap.CapQuota) {
		return nil, nil, ErrNotSupported
	}
	var (
		root   *imap.QuotaRootData
		quotas []*imap.QuotaData
	)
	pd := &pendingData{
		quotaRoot: func(d *imap.QuotaRootData) { root = d },
		quota:     func(d *imap.QuotaData) { quotas = append(quotas, d) },
	}
	err := c.executeWith(pd, "GETQUOTAROOT", func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox)
	})
	if err != nil {
		return nil, nil, err
	}
	if root == nil {
		return nil, nil, fmt.Errorf("imapclient: 服务器没有返回 QUOTAROOT 数据")
	}
	return root, quotas, nil
}

// SetQuota 发送 SETQUOTA 命令。资源按名称排序后发送。
func (c *Client) SetQuota(root string, limits map[imap.QuotaResourceType]int64) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.caps.Has(imap.CapQuota) {
		return ErrNotSupported
	}
	types := make([]imap.QuotaResourceType, 0, len(limits))
	for typ := range limits {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return c.executeWith(&pendingData{quota: func(*imap.QuotaData) {}}, "SETQUOTA", func(enc *imapwire.Encoder) {
		enc.SP().String(root).SP().List(len(types), func(i int) {
			enc.Atom(string(types[i])).SP().Number64(limits[types[i]])
		})
	})
}

// readQuota 读取 "* QUOTA root (STORAGE 10 512 MESSAGE 3 100)"。
func readQuota(dec *imapwire.Decoder) (*imap.QuotaData, error) {
	data := &imap.QuotaData{Resources: make(map[imap.QuotaResourceType]imap.QuotaResource)}
	if !dec.ExpectAString(&data.Root) || !dec.ExpectSP() {
		return nil, dec.Err()
	}
	err := dec.ExpectList(func() error {
		var (
			name string
			res  imap.QuotaResource
		)
		if !dec.ExpectAtom(&name) || !dec.ExpectSP() || !dec.ExpectNumber64(&res.Usage) ||
			!dec.ExpectSP() || !dec.ExpectNumber64(&res.Limit) {
			return fmt.Errorf("在配额资源中: %v", dec.Err())
		}
		data.Resources[imap.QuotaResourceType(name)] = res
		return nil
	})
	return data, err
}

// readQuotaRoot 读取 "* QUOTAROOT mailbox *(SP root)"。
func readQuotaRoot(dec *imapwire.Decoder) (*imap.QuotaRootData, error) {
	var data imap.QuotaRootData
	if !dec.ExpectAString(&data.Mailbox) {
		return nil, dec.Err()
	}
	for dec.SP() {
		var root string
		if !dec.ExpectAString(&root) {
			return nil, dec.Err()
		}
		data.Roots = append(data.Roots, root)
	}
	return &data, nil
}
