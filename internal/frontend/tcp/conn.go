// Package tcp accepts newline-delimited protocol connections and hands each
// one to a SessionHandler on its own goroutine.
package tcp

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxLineBytes caps a single inbound line. Longer lines end the connection.
const MaxLineBytes = 64 * 1024

// ErrLineTooLong is returned by ReadLine when a line exceeds MaxLineBytes.
var ErrLineTooLong = errors.New("line exceeds maximum length")

// Conn is one client connection. Reads belong to the connection's own
// goroutine; writes may come from any goroutine and are serialized.
type Conn struct {
	id     string
	raw    net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps raw. A zero timeout disables the corresponding deadline.
//
// Precondition: raw must be a valid, open network connection.
// Postcondition: Returns a Conn with a fresh unique ID.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		id:           uuid.NewString(),
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// ReadLine blocks until a full line arrives and returns it without the
// trailing "\n" or "\r\n". A final unterminated line before EOF is returned
// with a nil error; the following call returns io.EOF.
//
// Postcondition: Returns the next line, or an error (including io.EOF).
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var sb strings.Builder
	for {
		chunk, err := c.reader.ReadSlice('\n')
		if sb.Len()+len(chunk) > MaxLineBytes {
			return "", ErrLineTooLong
		}
		sb.Write(chunk)

		switch {
		case err == nil:
			return trimEOL(sb.String()), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && sb.Len() > 0:
			return trimEOL(sb.String()), nil
		default:
			return "", err
		}
	}
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// WriteLine sends line followed by "\n".
//
// Precondition: line should not contain newline characters.
// Postcondition: line + "\n" is written, or an error is returned.
func (c *Conn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := io.WriteString(c.raw, line+"\n")
	return err
}

// Close closes the underlying connection. Safe to call more than once and
// from several goroutines; later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
