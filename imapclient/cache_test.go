package imapclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhaoyun888/go-imapdriver"
)

func TestMemCacheExpunge(t *testing.T) {
	mc := NewMemCache(false)
	for i := uint32(1); i <= 4; i++ {
		mc.Entry(i).UID = imap.UID(10 * i)
	}
	require.Equal(t, uint32(4), mc.Len())

	mc.Expunge(2)
	assert.Equal(t, uint32(3), mc.Len())
	assert.Equal(t, imap.UID(30), mc.Lookup(2).UID)
	assert.Equal(t, uint32(2), mc.Lookup(2).SeqNum)
	assert.Equal(t, uint32(3), mc.FindUID(40))
	assert.Zero(t, mc.FindUID(20))

	mc.Expunge(9)
	assert.Equal(t, uint32(3), mc.Len())
}

func TestMemCacheResize(t *testing.T) {
	mc := NewMemCache(false)
	mc.Resize(3)
	assert.Nil(t, mc.Lookup(3))
	assert.NotNil(t, mc.Entry(3))

	mc.Resize(1)
	assert.Nil(t, mc.Lookup(2))
	assert.Nil(t, mc.Entry(0))

	mc.Resize(3)
	assert.Nil(t, mc.Lookup(3), "缩小后丢弃的记录不应再出现")

	mc.Reset()
	assert.Zero(t, mc.Len())
}

func TestMemCacheShort(t *testing.T) {
	env := &imap.Envelope{Subject: "hello"}
	body := imap.NilBody()

	tests := []struct {
		name      string
		short     bool
		wantFirst bool
	}{
		{"普通模式", false, true},
		{"短缓存模式", true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mc := NewMemCache(tc.short)
			mc.SetEnvelope(1, env)
			mc.SetBody(1, body)
			mc.Entry(1).UID = 7
			mc.SetEnvelope(2, env)

			first := mc.Lookup(1)
			assert.Equal(t, tc.wantFirst, first.Envelope != nil)
			assert.Equal(t, tc.wantFirst, first.Body != nil)
			assert.Equal(t, imap.UID(7), first.UID)
			assert.Same(t, env, mc.Lookup(2).Envelope)
		})
	}
}

func TestMemCacheShortExpunge(t *testing.T) {
	mc := NewMemCache(true)
	mc.SetEnvelope(3, &imap.Envelope{})
	mc.Expunge(1)
	mc.SetEnvelope(1, &imap.Envelope{})
	assert.Nil(t, mc.Lookup(2).Envelope)
	assert.NotNil(t, mc.Lookup(1).Envelope)
}
