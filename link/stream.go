package link

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrClosed is returned by a Stream after Close.
var ErrClosed = errors.New("link: stream closed")

// rxQueue is the receive backlog of a Stream.
const rxQueue = 64

// Stream is a core.SerialLink over an io.ReadWriter such as a serial port or a pipe.
//
// A reader goroutine moves received bytes into a bounded queue so ByteAvailable never
// blocks. Reads that return io.EOF with no data are treated as read timeouts, which is
// how serial ports opened with a read timeout report an idle line.
type Stream struct {
	rw io.ReadWriter

	rx   chan byte
	done chan struct{}
	exit chan struct{}
	once sync.Once

	wmu sync.Mutex

	emu sync.Mutex
	err error

	eofBackoff time.Duration
}

// NewStream starts reading rw.
func NewStream(rw io.ReadWriter) *Stream {
	return newStream(rw, 10*time.Millisecond)
}

func newStream(rw io.ReadWriter, eofBackoff time.Duration) *Stream {
	s := &Stream{
		rw:         rw,
		rx:         make(chan byte, rxQueue),
		done:       make(chan struct{}),
		exit:       make(chan struct{}),
		eofBackoff: eofBackoff,
	}
	go s.readLoop()
	return s
}

func (s *Stream) readLoop() {
	defer close(s.exit)
	buf := make([]byte, rxQueue)
	for {
		n, err := s.rw.Read(buf)
		for _, b := range buf[:n] {
			select {
			case s.rx <- b:
			case <-s.done:
				return
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF) && n == 0:
			select {
			case <-s.done:
				return
			case <-time.After(s.eofBackoff):
			}
		case errors.Is(err, io.EOF):
		default:
			s.setErr(err)
			return
		}
		select {
		case <-s.done:
			return
		default:
		}
	}
}

func (s *Stream) setErr(err error) {
	s.emu.Lock()
	defer s.emu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the error that stopped the reader, if any.
func (s *Stream) Err() error {
	s.emu.Lock()
	defer s.emu.Unlock()
	return s.err
}

// SendByte writes b.
func (s *Stream) SendByte(b byte) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.rw.Write([]byte{b})
	return err
}

// ByteAvailable reports whether a received byte is queued.
func (s *Stream) ByteAvailable() bool {
	return len(s.rx) > 0
}

// ReceiveByte returns the next queued byte, waiting for one if necessary. Once the
// reader has failed, queued bytes are still delivered before the error.
func (s *Stream) ReceiveByte() (byte, error) {
	select {
	case b := <-s.rx:
		return b, nil
	default:
	}
	select {
	case b := <-s.rx:
		return b, nil
	case <-s.done:
		return 0, ErrClosed
	case <-s.exit:
		select {
		case b := <-s.rx:
			return b, nil
		default:
		}
		if err := s.Err(); err != nil {
			return 0, err
		}
		return 0, ErrClosed
	}
}

// Close stops the reader and closes rw if it is an io.Closer.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if c, ok := s.rw.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
