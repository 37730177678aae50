package imapclient

import (
	"bufio"
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// readEnvelope 读取十个字段的信封：
// date subject from sender reply-to to cc bcc in-reply-to message-id。
//
// 服务器以 NIL 代替整个信封时返回 nil。
func readEnvelope(dec *imapwire.Decoder, options *Options) (*imap.Envelope, error) {
	if dec.NIL() {
		return nil, nil
	}
	if !dec.ExpectSpecial('(') {
		return nil, dec.Err()
	}

	var envelope imap.Envelope
	var subject string
	if !dec.ExpectNString(&envelope.RawDate) || !dec.ExpectSP() || !dec.ExpectNString(&subject) || !dec.ExpectSP() {
		return nil, dec.Err()
	}
	envelope.Date = parseSentDate(envelope.RawDate)
	envelope.Subject, _ = options.decodeText(subject)

	addrLists := []struct {
		name string
		out  *[]imap.Address
	}{
		{"发件人", &envelope.From},
		{"发送人", &envelope.Sender},
		{"回复地址", &envelope.ReplyTo},
		{"收件人", &envelope.To},
		{"抄送", &envelope.Cc},
		{"密送", &envelope.Bcc},
	}
	for _, addrList := range addrLists {
		l, err := readAddressList(dec, options)
		if err != nil {
			return nil, fmt.Errorf("解析%v时出错: %v", addrList.name, err)
		} else if !dec.ExpectSP() {
			return nil, dec.Err()
		}
		*addrList.out = l
	}

	if !dec.ExpectNString(&envelope.InReplyTo) || !dec.ExpectSP() || !dec.ExpectNString(&envelope.MessageID) {
		return nil, dec.Err()
	}

	// 有的服务器在信封末尾多带字段
	for dec.SP() {
		if !dec.DiscardValue() {
			return nil, dec.Err()
		}
	}
	if !dec.ExpectSpecial(')') {
		return nil, dec.Err()
	}
	return &envelope, nil
}

// parseSentDate 按 RFC 5322 解析发送日期，失败时返回零值。
func parseSentDate(s string) (t time.Time) {
	if s == "" {
		return t
	}
	var h mail.Header
	h.Set("Date", s)
	t, _ = h.Date()
	return t
}

// readAddressList 读取地址列表。地址之间缺少空格也能接受。
func readAddressList(dec *imapwire.Decoder, options *Options) ([]imap.Address, error) {
	if dec.NIL() {
		return nil, nil
	}
	if !dec.ExpectSpecial('(') {
		return nil, dec.Err()
	}
	var l []imap.Address
	for !dec.Special(')') {
		dec.SP()
		addr, err := readAddress(dec, options)
		if err != nil {
			return nil, err
		}
		l = append(l, *addr)
	}
	return l, nil
}

// readAddress 读取 (name adl mailbox host)。
func readAddress(dec *imapwire.Decoder, options *Options) (*imap.Address, error) {
	var (
		addr imap.Address
		name string
	)
	ok := dec.ExpectSpecial('(') &&
		dec.ExpectNString(&name) && dec.ExpectSP() &&
		dec.ExpectNString(&addr.ADL) && dec.ExpectSP() &&
		dec.ExpectNString(&addr.Mailbox) && dec.ExpectSP() &&
		dec.ExpectNString(&addr.Host) && dec.ExpectSpecial(')')
	if !ok {
		return nil, fmt.Errorf("解析地址时出错: %v", dec.Err())
	}
	addr.Name, _ = options.decodeText(name)
	return &addr, nil
}

// fillEnvelopeHeader 用单独获取的邮件头填充信封中 ENVELOPE 没有的字段。
func fillEnvelopeHeader(env *imap.Envelope, header []byte) error {
	h, err := parseHeader(header)
	if err != nil {
		return err
	}
	env.Newsgroups = h.Get("Newsgroups")
	env.FollowupTo = h.Get("Followup-To")
	env.References = h.Get("References")
	return nil
}

// parseHeader 解析 RFC 5322 邮件头。服务器返回的头部可能不带结尾的空行。
func parseHeader(b []byte) (mail.Header, error) {
	if !bytes.HasSuffix(b, []byte("\r\n\r\n")) {
		b = append(append([]byte(nil), b...), "\r\n\r\n"...)
	}
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(b)))
	if err != nil {
		return mail.Header{}, fmt.Errorf("imapclient: 无效的邮件头: %w", err)
	}
	return mail.Header{Header: message.Header{Header: h}}, nil
}
