package imapwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		line string
		want Reply
	}{
		{"* 5 EXISTS", Reply{Tag: "*", Key: "5", Text: "EXISTS"}},
		{"* ok [ALERT] hi", Reply{Tag: "*", Key: "OK", Text: "[ALERT] hi"}},
		{"00000001 OK [READ-WRITE] SELECT completed", Reply{Tag: "00000001", Key: "OK", Text: "[READ-WRITE] SELECT completed"}},
		{"+ Ready", Reply{Tag: "+", Key: "BAD", Text: "Ready"}},
		{"+", Reply{Tag: "+", Key: "BAD"}},
		{"* BYE", Reply{Tag: "*", Key: "BYE"}},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			reply, err := ParseReply(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, *reply)
		})
	}
}

func TestParseReplyBogon(t *testing.T) {
	for _, line := range []string{"", " leading", "tagonly"} {
		_, err := ParseReply(line)
		assert.ErrorIs(t, err, ErrBogon, "%q", line)
	}
}
