// Package devicetest provides a scripted in-memory Device for protocol tests.
package devicetest

import (
	"sync"
	"time"

	"tellolink/internal/device"
)

// Fake is a scripted device.Device. Every ReadLine pops the next queued
// reply; an empty queue (or a queued "") behaves like an elapsed deadline.
type Fake struct {
	mu sync.Mutex

	replies [][]byte

	// OnWrite, when set, is called after each write and may queue replies.
	OnWrite func(f *Fake, p []byte)

	Writes   []string
	Timeouts []time.Duration
	Reads    int
	Flushes  int
	Closed   bool
	WriteErr error
}

// New returns a Fake with replies queued in order.
func New(replies ...string) *Fake {
	f := &Fake{}
	f.Queue(replies...)
	return f
}

// Queue appends replies to the read queue.
func (f *Fake) Queue(replies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range replies {
		f.replies = append(f.replies, []byte(r))
	}
}

func (f *Fake) Write(p []byte) error {
	f.mu.Lock()
	if f.WriteErr != nil {
		err := f.WriteErr
		f.mu.Unlock()
		return &device.IOError{Op: "write", Err: err}
	}
	f.Writes = append(f.Writes, string(p))
	hook := f.OnWrite
	f.mu.Unlock()
	if hook != nil {
		hook(f, p)
	}
	return nil
}

func (f *Fake) ReadLine(timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Closed {
		return nil, device.ErrNotOpen
	}
	f.Reads++
	f.Timeouts = append(f.Timeouts, timeout)
	if len(f.replies) == 0 {
		return nil, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

// Flush counts the call and drops nothing; queued replies model bytes that
// arrive after the flush.
func (f *Fake) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Flushes++
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Pending returns the number of replies not read yet.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}
