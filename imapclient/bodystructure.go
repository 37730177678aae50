package imapclient

import (
	"fmt"
	"strings"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/internal/imapwire"
)

// unknownValue 代替体结构中格式错误的参数名或参数值。
const unknownValue = "UNKNOWN"

// readBody 解析 BODY 或 BODYSTRUCTURE 的值。
//
// 整个体结构为 NIL 时返回 imap.NilBody()；缺少子类型时使用该类型注册的默认子类型。
func readBody(dec *imapwire.Decoder, options *Options) (imap.BodyStructure, error) {
	if dec.NIL() {
		return imap.NilBody(), nil
	}
	if !dec.ExpectSpecial('(') {
		return nil, dec.Err()
	}

	var (
		mediaType string
		token     string
		bs        imap.BodyStructure
		err       error
	)
	if dec.String(&mediaType) {
		token = "单部分体结构"
		bs, err = readBodyType1part(dec, mediaType, options)
	} else {
		token = "多部分体结构"
		bs, err = readBodyTypeMpart(dec, options)
	}
	if err != nil {
		return nil, fmt.Errorf("在%v中: %v", token, err)
	}

	for dec.SP() {
		if !dec.DiscardValue() {
			return nil, dec.Err()
		}
	}
	if !dec.ExpectSpecial(')') {
		return nil, dec.Err()
	}
	return bs, nil
}

func readBodyType1part(dec *imapwire.Decoder, typ string, options *Options) (*imap.BodyStructureSinglePart, error) {
	bs := imap.BodyStructureSinglePart{Type: strings.ToUpper(typ)}

	if !dec.ExpectSP() || !dec.ExpectNString(&bs.Subtype) || !dec.ExpectSP() {
		return nil, dec.Err()
	}
	if bs.Subtype == "" {
		bs.Subtype = imap.DefaultSubtype(bs.Type)
	} else {
		bs.Subtype = strings.ToUpper(bs.Subtype)
	}

	var err error
	bs.Params, err = readBodyFldParam(dec, options)
	if err != nil {
		return nil, err
	}

	var description string
	if !dec.ExpectSP() || !dec.ExpectNString(&bs.ID) || !dec.ExpectSP() ||
		!dec.ExpectNString(&description) || !dec.ExpectSP() ||
		!dec.ExpectNString(&bs.Encoding) || !dec.ExpectSP() ||
		!dec.ExpectNumber(&bs.Size) {
		return nil, dec.Err()
	}
	if bs.Encoding == "" {
		bs.Encoding = "7BIT"
	} else {
		bs.Encoding = strings.ToUpper(bs.Encoding)
	}
	bs.Description, _ = options.decodeText(description)

	hasSP := dec.SP()
	if !hasSP {
		return &bs, nil
	}

	switch {
	case bs.Type == "MESSAGE" && bs.Subtype == "RFC822":
		var msg imap.BodyStructureMessageRFC822
		msg.Envelope, err = readEnvelope(dec, options)
		if err != nil {
			return nil, err
		}
		if !dec.ExpectSP() {
			return nil, dec.Err()
		}
		msg.BodyStructure, err = readBody(dec, options)
		if err != nil {
			return nil, err
		}
		if !dec.ExpectSP() || !dec.ExpectNumber64(&msg.NumLines) {
			return nil, dec.Err()
		}
		bs.MessageRFC822 = &msg
		hasSP = false
	case bs.Type == "TEXT":
		var text imap.BodyStructureText
		if !dec.ExpectNumber64(&text.NumLines) {
			return nil, dec.Err()
		}
		bs.Text = &text
		hasSP = false
	}

	if !hasSP {
		hasSP = dec.SP()
	}
	if hasSP {
		bs.Extended, err = readBodyExt1part(dec, options)
		if err != nil {
			return nil, fmt.Errorf("在单部分扩展数据中: %v", err)
		}
	}
	return &bs, nil
}

func readBodyExt1part(dec *imapwire.Decoder, options *Options) (*imap.BodyStructureSinglePartExt, error) {
	var ext imap.BodyStructureSinglePartExt
	if !dec.ExpectNString(&ext.MD5) {
		return nil, dec.Err()
	}
	if !dec.SP() {
		return &ext, nil
	}

	var err error
	ext.Disposition, err = readBodyFldDsp(dec, options)
	if err != nil {
		return nil, fmt.Errorf("在 body-fld-dsp 中: %v", err)
	}
	if !dec.SP() {
		return &ext, nil
	}

	ext.Language, err = readBodyFldLang(dec)
	if err != nil {
		return nil, fmt.Errorf("在 body-fld-lang 中: %v", err)
	}
	if !dec.SP() {
		return &ext, nil
	}

	if !dec.ExpectNString(&ext.Location) {
		return nil, dec.Err()
	}
	return &ext, nil
}

// readBodyTypeMpart 读取多部分体结构。子部分之间可以没有空格。
func readBodyTypeMpart(dec *imapwire.Decoder, options *Options) (*imap.BodyStructureMultiPart, error) {
	var bs imap.BodyStructureMultiPart

	for {
		child, err := readBody(dec, options)
		if err != nil {
			return nil, err
		}
		bs.Children = append(bs.Children, child)

		dec.SP()
		var subtype string
		if dec.String(&subtype) {
			bs.Subtype = strings.ToUpper(subtype)
			break
		}
		if dec.NIL() {
			bs.Subtype = imap.DefaultSubtype("MULTIPART")
			break
		}
	}

	if dec.SP() {
		var err error
		bs.Extended, err = readBodyExtMpart(dec, options)
		if err != nil {
			return nil, fmt.Errorf("在多部分扩展数据中: %v", err)
		}
	}
	return &bs, nil
}

func readBodyExtMpart(dec *imapwire.Decoder, options *Options) (*imap.BodyStructureMultiPartExt, error) {
	var ext imap.BodyStructureMultiPartExt

	var err error
	ext.Params, err = readBodyFldParam(dec, options)
	if err != nil {
		return nil, fmt.Errorf("在 body-fld-param 中: %v", err)
	}
	if !dec.SP() {
		return &ext, nil
	}

	ext.Disposition, err = readBodyFldDsp(dec, options)
	if err != nil {
		return nil, fmt.Errorf("在 body-fld-dsp 中: %v", err)
	}
	if !dec.SP() {
		return &ext, nil
	}

	ext.Language, err = readBodyFldLang(dec)
	if err != nil {
		return nil, fmt.Errorf("在 body-fld-lang 中: %v", err)
	}
	if !dec.SP() {
		return &ext, nil
	}

	if !dec.ExpectNString(&ext.Location) {
		return nil, dec.Err()
	}
	return &ext, nil
}

func readBodyFldDsp(dec *imapwire.Decoder, options *Options) (*imap.BodyStructureDisposition, error) {
	if !dec.Special('(') {
		if !dec.ExpectNIL() {
			return nil, dec.Err()
		}
		return nil, nil
	}

	var disp imap.BodyStructureDisposition
	if !dec.ExpectString(&disp.Value) || !dec.ExpectSP() {
		return nil, dec.Err()
	}

	var err error
	disp.Params, err = readBodyFldParam(dec, options)
	if err != nil {
		return nil, err
	}
	if !dec.ExpectSpecial(')') {
		return nil, dec.Err()
	}
	return &disp, nil
}

// readBodyFldParam 读取参数列表。NIL 的参数名或值记为 "UNKNOWN"，
// 缺少值的最后一个参数也一样。参数名统一为小写。
func readBodyFldParam(dec *imapwire.Decoder, options *Options) (map[string]string, error) {
	var (
		params map[string]string
		k      string
		hasKey bool
	)
	err := dec.ExpectNList(func() error {
		var s string
		if !dec.ExpectNString(&s) {
			return dec.Err()
		}
		if s == "" {
			s = unknownValue
		}

		if !hasKey {
			k, hasKey = s, true
			return nil
		}
		if params == nil {
			params = make(map[string]string)
		}
		decoded, _ := options.decodeText(s)
		params[strings.ToLower(k)] = decoded
		hasKey = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	if hasKey {
		if params == nil {
			params = make(map[string]string)
		}
		params[strings.ToLower(k)] = unknownValue
	}
	return params, nil
}

func readBodyFldLang(dec *imapwire.Decoder) ([]string, error) {
	var l []string
	isList, err := dec.List(func() error {
		var s string
		if !dec.ExpectString(&s) {
			return dec.Err()
		}
		l = append(l, s)
		return nil
	})
	if err != nil || isList {
		return l, err
	}

	var s string
	if !dec.ExpectNString(&s) {
		return nil, dec.Err()
	}
	if s == "" {
		return nil, nil
	}
	return []string{s}, nil
}
