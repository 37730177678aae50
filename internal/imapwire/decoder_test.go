package imapwire

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDecoder 用 text 作为第一行，next 作为后续的线路数据。
func newTestDecoder(text, next string) *Decoder {
	return NewDecoder(NewLineReader(strings.NewReader(next)), text)
}

func TestDecoderAtomsAndNumbers(t *testing.T) {
	dec := newTestDecoder(`FLAGS 42 NIL nil`, "")
	var atom string
	var num uint32
	require.True(t, dec.ExpectAtom(&atom))
	assert.Equal(t, "FLAGS", atom)
	require.True(t, dec.ExpectSP())
	require.True(t, dec.ExpectNumber(&num))
	assert.Equal(t, uint32(42), num)
	require.True(t, dec.ExpectSP())
	assert.True(t, dec.NIL())
	require.True(t, dec.ExpectSP())
	assert.True(t, dec.NIL())
	assert.True(t, dec.EOL())
	assert.NoError(t, dec.Err())
}

func TestDecoderNILPrefix(t *testing.T) {
	dec := newTestDecoder(`NILS`, "")
	assert.False(t, dec.NIL())
	var s string
	assert.True(t, dec.AString(&s))
	assert.Equal(t, "NILS", s)
}

func TestDecoderQuoted(t *testing.T) {
	dec := newTestDecoder(`"a \"b\" \\c"`, "")
	var s string
	require.True(t, dec.ExpectString(&s))
	assert.Equal(t, `a "b" \c`, s)

	dec = newTestDecoder(`"unterminated`, "")
	assert.False(t, dec.String(&s))
	assert.Error(t, dec.Err())
}

func TestDecoderLiteralResumesOnNextLine(t *testing.T) {
	dec := newTestDecoder(`BODY[TEXT] {11}`, "Hello world)\r\n")
	var name, body string
	require.True(t, dec.Func(&name, func(ch byte) bool { return ch != ' ' }))
	require.True(t, dec.ExpectSP())
	require.True(t, dec.ExpectString(&body))
	assert.Equal(t, "Hello world", body)
	require.True(t, dec.ExpectSpecial(')'))
	assert.True(t, dec.EOL())
}

func TestDecoderLiteralAcrossReads(t *testing.T) {
	payload := strings.Repeat("0123456789", 50) + "\r\n(tail)"
	wire := payload + " rest\r\n"
	for _, r := range []io.Reader{
		iotest.OneByteReader(strings.NewReader(wire)),
		iotest.HalfReader(strings.NewReader(wire)),
		strings.NewReader(wire),
	} {
		dec := NewDecoder(NewLineReader(r), fmt.Sprintf("{%d}", len(payload)))
		var buf bytes.Buffer
		n, ok := dec.LiteralTo(&buf)
		require.True(t, ok)
		assert.Equal(t, int64(len(payload)), n)
		assert.Equal(t, payload, buf.String())
		assert.Equal(t, " rest", dec.Rest())
	}
}

func TestDecoderLiteralShortRead(t *testing.T) {
	dec := newTestDecoder("{10}", "abc")
	var s string
	assert.False(t, dec.String(&s))
	assert.ErrorIs(t, dec.Err(), io.ErrUnexpectedEOF)
}

func TestDecoderNStringTo(t *testing.T) {
	var buf bytes.Buffer
	dec := newTestDecoder(`NIL "x"`, "")
	isNil, ok := dec.NStringTo(&buf)
	assert.True(t, ok)
	assert.True(t, isNil)
	dec.SP()
	isNil, ok = dec.NStringTo(&buf)
	assert.True(t, ok)
	assert.False(t, isNil)
	assert.Equal(t, "x", buf.String())
}

func TestDecoderList(t *testing.T) {
	dec := newTestDecoder(`(\Seen \Answered $Junk) ()`, "")
	var flags []string
	require.NoError(t, dec.ExpectList(func() error {
		var f string
		if !dec.ExpectFlag(&f) {
			return dec.Err()
		}
		flags = append(flags, f)
		return nil
	}))
	assert.Equal(t, []string{`\Seen`, `\Answered`, "$Junk"}, flags)

	require.True(t, dec.ExpectSP())
	calls := 0
	require.NoError(t, dec.ExpectList(func() error { calls++; return nil }))
	assert.Zero(t, calls)
}

func TestDecoderDiscardValue(t *testing.T) {
	dec := newTestDecoder(`(("a" NIL 12 {3}`, "x\")) (b)(c)) after\r\n")
	require.True(t, dec.DiscardValue())
	assert.Equal(t, " after", dec.Rest())
	assert.NoError(t, dec.Err())
}

func TestDecoderDrain(t *testing.T) {
	dec := newTestDecoder(`XUNKNOWN {5}`, "abcde {2}\r\nxy done\r\nnext\r\n")
	require.NoError(t, dec.Drain())
	assert.True(t, dec.EOL())

	line, err := dec.src.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "next", string(line))
}

func TestDecoderUntil(t *testing.T) {
	dec := newTestDecoder(`HEADER.FIELDS (FROM TO)]<0> x`, "")
	var section string
	require.True(t, dec.Until(']', &section))
	assert.Equal(t, "HEADER.FIELDS (FROM TO)", section)
	assert.True(t, dec.Special(']'))
}
