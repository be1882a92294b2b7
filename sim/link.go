package sim

import "sync"

type scheduledByte struct {
	atPoll int
	b      byte
}

// Link is a scripted core.SerialLink. Bytes become receivable either immediately
// (Inject) or after a number of availability polls (ReplyAfter).
type Link struct {
	mu   sync.Mutex
	cond *sync.Cond

	rx        []byte
	sent      []byte
	polls     int
	scheduled []scheduledByte

	sendErr error
	recvErr error

	onSend func(b byte)
}

// NewLink creates an idle link.
func NewLink() *Link {
	l := &Link{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// OnSend registers fn to run after every successfully sent byte.
func (l *Link) OnSend(fn func(b byte)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSend = fn
}

// SendByte records b as transmitted.
func (l *Link) SendByte(b byte) error {
	l.mu.Lock()
	if l.sendErr != nil {
		err := l.sendErr
		l.mu.Unlock()
		return err
	}
	l.sent = append(l.sent, b)
	hook := l.onSend
	l.mu.Unlock()

	if hook != nil {
		hook(b)
	}
	return nil
}

// ByteAvailable counts a poll and reports whether a byte is waiting.
func (l *Link) ByteAvailable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.polls++
	l.releaseScheduled()
	return len(l.rx) > 0
}

// releaseScheduled moves due scheduled bytes into the receive queue. Caller holds l.mu.
func (l *Link) releaseScheduled() {
	kept := l.scheduled[:0]
	for _, s := range l.scheduled {
		if s.atPoll <= l.polls {
			l.rx = append(l.rx, s.b)
		} else {
			kept = append(kept, s)
		}
	}
	l.scheduled = kept
}

// ReceiveByte blocks until a byte is queued and returns it.
func (l *Link) ReceiveByte() (byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.rx) == 0 && l.recvErr == nil {
		l.cond.Wait()
	}
	if l.recvErr != nil {
		return 0, l.recvErr
	}
	b := l.rx[0]
	l.rx = l.rx[1:]
	return b, nil
}

// Inject queues bytes for immediate reception.
func (l *Link) Inject(bs ...byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rx = append(l.rx, bs...)
	l.cond.Broadcast()
}

// ReplyAfter makes b receivable on the n-th availability poll from now (n >= 1).
func (l *Link) ReplyAfter(n int, b byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scheduled = append(l.scheduled, scheduledByte{atPoll: l.polls + n, b: b})
}

// FailSend makes every following SendByte return err. Nil restores normal operation.
func (l *Link) FailSend(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErr = err
}

// FailReceive makes every following ReceiveByte return err. Nil restores normal operation.
func (l *Link) FailReceive(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recvErr = err
	l.cond.Broadcast()
}

// Sent returns every byte transmitted so far.
func (l *Link) Sent() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]byte, len(l.sent))
	copy(out, l.sent)
	return out
}

// Polls returns how many times ByteAvailable has been called.
func (l *Link) Polls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.polls
}

// Queued returns how many bytes are waiting to be received.
func (l *Link) Queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rx)
}
