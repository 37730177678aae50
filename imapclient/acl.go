package imapclient

import (
	"fmt"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// IMAP4 ACL 扩展 (RFC 2086)

// SetACL 发送 SETACL 命令。
func (c *Client) SetACL(mailbox string, ri imap.RightsIdentifier, rm imap.RightModification, rights imap.RightSet) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.caps.Has(imap.CapACL) {
		return ErrNotSupported
	}
	return c.execute("SETACL", func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox).SP().String(string(ri)).SP().String(rights.Format(rm))
	})
}

// DeleteACL 发送 DELETEACL 命令。
func (c *Client) DeleteACL(mailbox string, ri imap.RightsIdentifier) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.caps.Has(imap.CapACL) {
		return ErrNotSupported
	}
	return c.execute("DELETEACL", func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox).SP().String(string(ri))
	})
}

// GetACL 发送 GETACL 命令。
func (c *Client) GetACL(mailbox string) (*imap.ACLData, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.caps.Has(imap.CapACL) {
		return nil, ErrNotSupported
	}
	var data *imap.ACLData
	pd := &pendingData{acl: func(d *imap.ACLData) { data = d }}
	err := c.executeWith(pd, "GETACL", func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox)
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("imapclient: 服务器没有返回 ACL 数据")
	}
	return data, nil
}

// ListRights 发送 LISTRIGHTS 命令。
func (c *Client) ListRights(mailbox string, ri imap.RightsIdentifier) (*imap.ListRightsData, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.caps.Has(imap.CapACL) {
		return nil, ErrNotSupported
	}
	var data *imap.ListRightsData
	pd := &pendingData{listRights: func(d *imap.ListRightsData) { data = d }}
	err := c.executeWith(pd, "LISTRIGHTS", func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox).SP().String(string(ri))
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("imapclient: 服务器没有返回 LISTRIGHTS 数据")
	}
	return data, nil
}

// MyRights 发送 MYRIGHTS 命令。
func (c *Client) MyRights(mailbox string) (*imap.MyRightsData, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if !c.caps.Has(imap.CapACL) {
		return nil, ErrNotSupported
	}
	var data *imap.MyRightsData
	pd := &pendingData{myRights: func(d *imap.MyRightsData) { data = d }}
	err := c.executeWith(pd, "MYRIGHTS", func(enc *imapwire.Encoder) {
		enc.SP().Mailbox(mailbox)
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("imapclient: 服务器没有返回 MYRIGHTS 数据")
	}
	return data, nil
}

// readACL 读取 "* ACL mailbox *(SP identifier SP rights)"。
func readACL(dec *imapwire.Decoder) (*imap.ACLData, error) {
	data := &imap.ACLData{Rights: make(map[imap.RightsIdentifier]imap.RightSet)}
	if !dec.ExpectAString(&data.Mailbox) {
		return nil, dec.Err()
	}
	for dec.SP() {
		var ri, rights string
		if !dec.ExpectAString(&ri) || !dec.ExpectSP() || !dec.ExpectAString(&rights) {
			return nil, dec.Err()
		}
		data.Rights[imap.RightsIdentifier(ri)] = imap.RightSet(rights)
	}
	return data, nil
}

// readListRights 读取 "* LISTRIGHTS mailbox identifier required *(SP optional)"。
func readListRights(dec *imapwire.Decoder) (*imap.ListRightsData, error) {
	var (
		data     imap.ListRightsData
		ri       string
		required string
	)
	if !dec.ExpectAString(&data.Mailbox) || !dec.ExpectSP() ||
		!dec.ExpectAString(&ri) || !dec.ExpectSP() || !dec.ExpectAString(&required) {
		return nil, dec.Err()
	}
	data.Identifier = imap.RightsIdentifier(ri)
	data.Required = imap.RightSet(required)
	for dec.SP() {
		var optional string
		if !dec.ExpectAString(&optional) {
			return nil, dec.Err()
		}
		data.Optional = append(data.Optional, imap.RightSet(optional))
	}
	return &data, nil
}

// readMyRights 读取 "* MYRIGHTS mailbox rights"。
func readMyRights(dec *imapwire.Decoder) (*imap.MyRightsData, error) {
	var (
		data   imap.MyRightsData
		rights string
	)
	if !dec.ExpectAString(&data.Mailbox) || !dec.ExpectSP() || !dec.ExpectAString(&rights) {
		return nil, dec.Err()
	}
	data.Rights = imap.RightSet(rights)
	return &data, nil
}
