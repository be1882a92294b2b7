package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callbell/host/config"
	"callbell/host/responder"
	"callbell/sim"
)

func TestParseCode(t *testing.T) {
	r := responder.New(sim.NewLink(), responder.DefaultOptions())

	code, err := parseCode(r, "2")
	require.NoError(t, err)
	assert.Equal(t, byte(2), code)

	code, err = parseCode(r, "coming now")
	require.NoError(t, err)
	assert.Equal(t, byte(1), code)

	_, err = parseCode(r, "later")
	assert.ErrorIs(t, err, responder.ErrUnknownCode)
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "no calls yet\ncalls=0 replies=0 stray=0", formatStatus(responder.Status{}))

	st := responder.Status{
		Waiting:   true,
		Remaining: 12345 * time.Millisecond,
		Calls:     1,
		Last:      &responder.Call{Seq: 1},
	}
	assert.Equal(t, "call 1 waiting, 12.3s left\ncalls=1 replies=0 stray=0", formatStatus(st))

	st = responder.Status{Calls: 2, Replies: 1, Last: &responder.Call{Seq: 2, Answered: true, Code: 1}}
	assert.Equal(t, "call 2 answered with 1\ncalls=2 replies=1 stray=0", formatStatus(st))
}

func TestOptionsFrom(t *testing.T) {
	cfg, err := config.Parse([]byte("responder:\n  auto_reply: 2\n  auto_reply_delay_ms: 1500\n"))
	require.NoError(t, err)

	opts := optionsFrom(cfg)
	assert.Equal(t, byte(0x01), opts.CallByte)
	assert.Equal(t, 20*time.Second, opts.Window)
	assert.Equal(t, "PLEASE WAIT", opts.Codes[2])
	require.NotNil(t, opts.AutoReply)
	assert.Equal(t, byte(2), *opts.AutoReply)
	assert.Equal(t, 1500*time.Millisecond, opts.AutoReplyDelay)
}
