package imapclient

import (
	"fmt"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// Namespace 发送 NAMESPACE 命令。
//
// 结果也会被保存在会话中，之后可以用 LastNamespace 取得。
func (c *Client) Namespace() (*imap.NamespaceData, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.caps.Has(imap.CapNamespace) {
		return nil, ErrNotSupported
	}

	var data *imap.NamespaceData
	pd := &pendingData{namespace: func(d *imap.NamespaceData) {
		data = d
	}}
	if err := c.executeWith(pd, "NAMESPACE", nil); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("imapclient: 服务器没有返回 NAMESPACE 数据")
	}
	return data, nil
}

// LastNamespace 返回最近一次收到的 NAMESPACE 数据。
func (c *Client) LastNamespace() *imap.NamespaceData {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.namespace
}

// readNamespace 读取三个命名空间：个人、其他用户和共享。
func readNamespace(dec *imapwire.Decoder) (*imap.NamespaceData, error) {
	var (
		data imap.NamespaceData
		err  error
	)
	lists := []struct {
		name string
		out  *[]imap.NamespaceDescriptor
	}{
		{"个人命名空间", &data.Personal},
		{"其他用户命名空间", &data.Other},
		{"共享命名空间", &data.Shared},
	}
	for i, l := range lists {
		if i > 0 && !dec.ExpectSP() {
			return nil, dec.Err()
		}
		*l.out, err = readNamespaceList(dec)
		if err != nil {
			return nil, fmt.Errorf("在%v中: %w", l.name, err)
		}
	}
	return &data, nil
}

// readNamespaceList 读取 NIL 或由描述符组成的列表。描述符之间可以没有空格。
func readNamespaceList(dec *imapwire.Decoder) ([]imap.NamespaceDescriptor, error) {
	if dec.NIL() {
		return nil, nil
	}
	if !dec.ExpectSpecial('(') {
		return nil, dec.Err()
	}
	var l []imap.NamespaceDescriptor
	for !dec.Special(')') {
		dec.SP()
		descr, err := readNamespaceDescr(dec)
		if err != nil {
			return nil, err
		}
		l = append(l, *descr)
	}
	return l, nil
}

// readNamespaceDescr 读取 (prefix delim *(SP ext-name SP (ext-value...)))。
func readNamespaceDescr(dec *imapwire.Decoder) (*imap.NamespaceDescriptor, error) {
	var descr imap.NamespaceDescriptor

	if !dec.ExpectSpecial('(') || !dec.ExpectString(&descr.Prefix) || !dec.ExpectSP() {
		return nil, dec.Err()
	}
	var err error
	descr.Delim, err = readDelim(dec)
	if err != nil {
		return nil, err
	}

	for dec.SP() {
		var name string
		if !dec.ExpectString(&name) || !dec.ExpectSP() {
			return nil, dec.Err()
		}
		var values []string
		err := dec.ExpectList(func() error {
			var v string
			if !dec.ExpectString(&v) {
				return dec.Err()
			}
			values = append(values, v)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("在命名空间扩展 %v 中: %w", name, err)
		}
		if descr.Extensions == nil {
			descr.Extensions = make(map[string][]string)
		}
		descr.Extensions[name] = values
	}

	if !dec.ExpectSpecial(')') {
		return nil, dec.Err()
	}
	return &descr, nil
}
