package tcp

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// pipeConn returns a server-side Conn and the raw client end of an in-memory pipe.
func pipeConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return NewConn(server, 0, time.Second), client
}

func writeAsync(w io.Writer, data string) {
	go func() { _, _ = io.WriteString(w, data) }()
}

func TestReadLine_StripsLineEndings(t *testing.T) {
	conn, client := pipeConn(t)
	writeAsync(client, "JOIN:Anna\r\nGUESS:кот\n")

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "JOIN:Anna", line)

	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "GUESS:кот", line)
}

func TestReadLine_UnterminatedLineBeforeEOF(t *testing.T) {
	conn, client := pipeConn(t)
	go func() {
		_, _ = io.WriteString(client, "CLEAR:")
		client.Close()
	}()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "CLEAR:", line)

	_, err = conn.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadLine_LongLineAcrossBuffers(t *testing.T) {
	conn, client := pipeConn(t)
	long := "CHAT:" + strings.Repeat("x", 10000)
	writeAsync(client, long+"\n")

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, long, line)
}

func TestReadLine_TooLong(t *testing.T) {
	conn, client := pipeConn(t)
	writeAsync(client, strings.Repeat("x", MaxLineBytes+10)+"\n")

	_, err := conn.ReadLine()
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestWriteLine_AppendsNewline(t *testing.T) {
	conn, client := pipeConn(t)
	go func() { _ = conn.WriteLine("SCORE:Anna=0") }()

	got, err := bufio.NewReader(client).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "SCORE:Anna=0\n", got)
}

func TestWriteLine_ConcurrentWritesDoNotInterleave(t *testing.T) {
	conn, client := pipeConn(t)
	const writers, perWriter = 4, 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			line := "CHAT:" + strings.Repeat(string(rune('a'+w)), 300)
			for i := 0; i < perWriter; i++ {
				_ = conn.WriteLine(line)
			}
		}(w)
	}

	r := bufio.NewReader(client)
	for i := 0; i < writers*perWriter; i++ {
		got, err := r.ReadString('\n')
		require.NoError(t, err)
		body := strings.TrimSuffix(strings.TrimPrefix(got, "CHAT:"), "\n")
		require.Len(t, body, 300)
		assert.Equal(t, strings.Repeat(body[:1], 300), body, "line %d was interleaved", i)
	}
	wg.Wait()
}

func TestClose_Idempotent(t *testing.T) {
	conn, _ := pipeConn(t)
	first := conn.Close()
	assert.NoError(t, first)
	assert.Equal(t, first, conn.Close())

	_, err := conn.ReadLine()
	assert.Error(t, err)
	assert.Error(t, conn.WriteLine("x"))
}

func TestNewConn_UniqueIDs(t *testing.T) {
	a, _ := pipeConn(t)
	b, _ := pipeConn(t)
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

// Property: any newline-free line written by the client is read back unchanged.
func TestPropertyReadLineRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		line := rapid.StringMatching(`[^\r\n]{0,200}`).Draw(rt, "line")
		eol := rapid.SampledFrom([]string{"\n", "\r\n"}).Draw(rt, "eol")

		server, client := net.Pipe()
		defer server.Close()
		defer client.Close()
		conn := NewConn(server, 0, 0)
		writeAsync(client, line+eol)

		got, err := conn.ReadLine()
		if err != nil {
			rt.Fatalf("ReadLine: %v", err)
		}
		if got != line {
			rt.Fatalf("got %q, want %q", got, line)
		}
	})
}
