// Package logging mirrors log output to a Logstash TCP input without ever
// blocking the caller. While Logstash is unreachable, writes are dropped
// and reconnects are rate limited by a cool-down window.
package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// Writer streams log lines to Logstash over a single TCP connection.
// Safe for concurrent use.
type Writer struct {
	addr string
	opts Options

	mu        sync.Mutex
	conn      net.Conn
	nextRetry time.Time
	closed    bool
}

// Options tune the writer's timeouts. Zero values get defaults.
type Options struct {
	DialTimeout   time.Duration // default 2s
	WriteTimeout  time.Duration // default 1s
	RetryInterval time.Duration // cool-down after a failure, default 5s
}

// NewLogstashWriter builds a writer for the given TCP address. The
// connection is dialed lazily on the first write.
func NewLogstashWriter(addr string, opts ...Options) (*Writer, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}
	w := &Writer{addr: addr}
	if len(opts) > 0 {
		w.opts = opts[0]
	}
	if w.opts.DialTimeout <= 0 {
		w.opts.DialTimeout = 2 * time.Second
	}
	if w.opts.WriteTimeout <= 0 {
		w.opts.WriteTimeout = time.Second
	}
	if w.opts.RetryInterval <= 0 {
		w.opts.RetryInterval = 5 * time.Second
	}
	return w, nil
}

// Write implements io.Writer. It always reports full success to keep the
// log package moving; undeliverable lines are dropped, not queued.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	line := make([]byte, len(p), len(p)+1)
	copy(line, p)
	if line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}
	if !w.connectLocked() {
		return len(p), nil
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(w.opts.WriteTimeout))
	if _, err := w.conn.Write(line); err != nil {
		w.dropConnLocked()
	}
	return len(p), nil
}

// Close tears down the connection; later writes fail with ErrClosedPipe.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

func (w *Writer) connectLocked() bool {
	if w.conn != nil {
		return true
	}
	if time.Now().Before(w.nextRetry) {
		return false
	}
	conn, err := net.DialTimeout("tcp", w.addr, w.opts.DialTimeout)
	if err != nil {
		w.nextRetry = time.Now().Add(w.opts.RetryInterval)
		return false
	}
	w.conn = conn
	w.nextRetry = time.Time{}
	return true
}

func (w *Writer) dropConnLocked() {
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.nextRetry = time.Now().Add(w.opts.RetryInterval)
}
