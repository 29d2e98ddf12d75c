package device

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkPort returns one queued chunk per Read and (0, nil) once drained,
// which is how go.bug.st/serial reports an elapsed read timeout.
type chunkPort struct {
	chunks   [][]byte
	written  []byte
	timeouts []time.Duration
	resetIn  int
	resetOut int
	closed   int
	readErr  error
}

func (p *chunkPort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.chunks) == 0 {
		return 0, nil
	}
	n := copy(b, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func (p *chunkPort) Write(b []byte) (int, error) {
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *chunkPort) SetReadTimeout(t time.Duration) error {
	p.timeouts = append(p.timeouts, t)
	return nil
}

func (p *chunkPort) ResetInputBuffer() error  { p.resetIn++; return nil }
func (p *chunkPort) ResetOutputBuffer() error { p.resetOut++; return nil }
func (p *chunkPort) Close() error             { p.closed++; return nil }

func newTestDevice(chunks ...string) (*SerialDevice, *chunkPort) {
	p := &chunkPort{}
	for _, c := range chunks {
		p.chunks = append(p.chunks, []byte(c))
	}
	return NewSerialDevice(p, "/dev/test", DefaultBaud), p
}

func TestReadLineJoinsChunks(t *testing.T) {
	s, p := newTestDevice("o", "k\r\nba", "d\n")

	line, err := s.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok\r\n", string(line))

	line, err = s.ReadLine(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "bad\n", string(line))
	assert.NotEmpty(t, p.timeouts)
}

func TestReadLineTimeoutReturnsPartial(t *testing.T) {
	s, _ := newTestDevice("!conn")

	line, err := s.ReadLine(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "!conn", string(line))

	line, err = s.ReadLine(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, line)
}

func TestReadLineError(t *testing.T) {
	s, p := newTestDevice()
	p.readErr = errors.New("device disconnected")

	_, err := s.ReadLine(time.Second)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
}

func TestWriteIsRaw(t *testing.T) {
	s, p := newTestDevice()
	require.NoError(t, s.Write([]byte("takeoff")))
	assert.Equal(t, "takeoff", string(p.written))
}

func TestFlushDropsPending(t *testing.T) {
	s, p := newTestDevice("ok\nstale\n")
	_, err := s.ReadLine(time.Second)
	require.NoError(t, err)

	require.NoError(t, s.Flush())
	assert.Equal(t, 1, p.resetIn)
	assert.Equal(t, 1, p.resetOut)

	line, err := s.ReadLine(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, line)
}

func TestCloseIdempotent(t *testing.T) {
	s, p := newTestDevice()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, p.closed)

	assert.ErrorIs(t, s.Write([]byte("land")), ErrNotOpen)
	_, err := s.ReadLine(time.Second)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestOpenMissingEndpoint(t *testing.T) {
	_, err := Open("/dev/does-not-exist-tello", 0)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "/dev/does-not-exist-tello", connErr.Endpoint)
}
