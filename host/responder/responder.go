// Package responder is the remote end of the call bell link: it watches for the call
// byte and answers with a one-byte reply code.
package responder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"

	"callbell/core"
)

var (
	ErrNoCall       = errors.New("no call waiting for a reply")
	ErrCallExpired  = errors.New("call reply window has passed")
	ErrUnknownCode  = errors.New("reply code is not configured")
	ErrAlreadyReply = errors.New("call already answered")
)

// Options configures a Responder.
type Options struct {
	CallByte byte
	Window   time.Duration
	Codes    map[byte]string

	// AutoReply answers every call with the code after AutoReplyDelay.
	AutoReply      *byte
	AutoReplyDelay time.Duration

	// PollInterval is slept between link polls in Run.
	PollInterval time.Duration
}

// DefaultOptions matches the appliance defaults.
func DefaultOptions() Options {
	return Options{
		CallByte:     0x01,
		Window:       20 * time.Second,
		Codes:        map[byte]string{1: "COMING NOW", 2: "PLEASE WAIT"},
		PollInterval: 10 * time.Millisecond,
	}
}

// Call is one received call.
type Call struct {
	Seq      int
	At       time.Time
	Answered bool
	Code     byte
}

// Status is a snapshot of the responder.
type Status struct {
	Waiting   bool
	Remaining time.Duration
	Calls     int
	Replies   int
	Stray     int
	Last      *Call
}

// Responder answers calls over a core.SerialLink.
type Responder struct {
	link core.SerialLink
	opts Options

	mu      sync.Mutex
	now     func() time.Time
	current *Call
	calls   int
	replies int
	stray   int
	onCall  func(Call)
	onReply func(Call)
}

// New creates a responder.
func New(link core.SerialLink, opts Options) *Responder {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	return &Responder{
		link: link,
		opts: opts,
		now:  time.Now,
	}
}

// SetClock replaces the time source.
func (r *Responder) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// OnCall registers fn to run for every received call, outside the responder lock.
func (r *Responder) OnCall(fn func(Call)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCall = fn
}

// OnReply registers fn to run after every reply sent, outside the responder lock.
func (r *Responder) OnReply(fn func(Call)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReply = fn
}

// Run reads the link until ctx is cancelled or the link fails.
func (r *Responder) Run(ctx context.Context) error {
	glog.Infof("responder listening, call byte 0x%02x, window %v", r.opts.CallByte, r.opts.Window)
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()
	for {
		for r.link.ByteAvailable() {
			b, err := r.link.ReceiveByte()
			if err != nil {
				return fmt.Errorf("receive: %w", err)
			}
			r.HandleByte(b)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// HandleByte processes one received byte.
func (r *Responder) HandleByte(b byte) {
	r.mu.Lock()
	if b != r.opts.CallByte {
		r.stray++
		r.mu.Unlock()
		glog.Warningf("ignoring stray byte 0x%02x", b)
		return
	}
	r.calls++
	call := &Call{Seq: r.calls, At: r.now()}
	if r.current != nil && !r.current.Answered {
		glog.V(1).Infof("call %d superseded unanswered", r.current.Seq)
	}
	r.current = call
	hook := r.onCall
	snapshot := *call
	r.mu.Unlock()

	glog.Infof("call %d received", snapshot.Seq)
	if hook != nil {
		hook(snapshot)
	}

	if r.opts.AutoReply != nil {
		code := *r.opts.AutoReply
		time.AfterFunc(r.opts.AutoReplyDelay, func() {
			if err := r.Reply(code); err != nil {
				glog.Errorf("auto reply to call %d failed: %v", snapshot.Seq, err)
			}
		})
	}
}

// Reply answers the current call with code.
func (r *Responder) Reply(code byte) error {
	call, hook, err := r.reply(code)
	if err != nil {
		return err
	}
	if hook != nil {
		hook(call)
	}
	return nil
}

func (r *Responder) reply(code byte) (Call, func(Call), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return Call{}, nil, ErrNoCall
	}
	if r.current.Answered {
		return Call{}, nil, ErrAlreadyReply
	}
	if r.now().Sub(r.current.At) > r.opts.Window {
		return Call{}, nil, ErrCallExpired
	}
	if _, ok := r.opts.Codes[code]; !ok {
		return Call{}, nil, fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}

	if err := r.link.SendByte(code); err != nil {
		return Call{}, nil, fmt.Errorf("send reply: %w", err)
	}
	r.current.Answered = true
	r.current.Code = code
	r.replies++
	if glog.V(2) {
		glog.Infof("call %d answered with %d (%s)", r.current.Seq, code, r.opts.Codes[code])
	}
	return *r.current, r.onReply, nil
}

// Status returns a snapshot.
func (r *Responder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{Calls: r.calls, Replies: r.replies, Stray: r.stray}
	if r.current != nil {
		last := *r.current
		st.Last = &last
		if !last.Answered {
			if left := r.opts.Window - r.now().Sub(last.At); left > 0 {
				st.Waiting = true
				st.Remaining = left
			}
		}
	}
	return st
}

// Codes returns the configured reply codes in ascending order.
func (r *Responder) Codes() []byte {
	codes := make([]byte, 0, len(r.opts.Codes))
	for c := range r.opts.Codes {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Label returns the label of code.
func (r *Responder) Label(code byte) string {
	return r.opts.Codes[code]
}
