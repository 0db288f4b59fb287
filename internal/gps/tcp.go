package gps

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// lineClient connects to a TCP endpoint and delivers newline-delimited
// lines, reconnecting with backoff until ctx is done.
type lineClient struct {
	addr         string
	dialTimeout  time.Duration
	minBackoff   time.Duration
	maxBackoff   time.Duration
	maxLineBytes int

	// onConnect runs once per connection before reading (gpsd WATCH).
	onConnect func(conn net.Conn) error
	onLine    func(line string)
	onState   func(state string, err error)
}

func (c *lineClient) setState(state string, err error) {
	if c.onState != nil {
		c.onState(state, err)
	}
}

func (c *lineClient) run(ctx context.Context) {
	if c.dialTimeout <= 0 {
		c.dialTimeout = 2 * time.Second
	}
	if c.minBackoff <= 0 {
		c.minBackoff = 250 * time.Millisecond
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = 10 * time.Second
	}
	if c.maxLineBytes <= 0 {
		c.maxLineBytes = 256 * 1024
	}
	dialer := &net.Dialer{Timeout: c.dialTimeout}
	backoff := c.minBackoff

	for {
		if ctx.Err() != nil {
			c.setState("stopped", nil)
			return
		}

		c.setState("connecting", nil)
		conn, err := dialer.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			c.setState("error", fmt.Errorf("dial %s: %w", c.addr, err))
			if !sleepCtx(ctx, backoff) {
				c.setState("stopped", nil)
				return
			}
			if backoff < c.maxBackoff {
				backoff *= 2
				if backoff > c.maxBackoff {
					backoff = c.maxBackoff
				}
			}
			continue
		}
		backoff = c.minBackoff

		err = c.serve(ctx, conn)
		if ctx.Err() != nil {
			c.setState("stopped", nil)
			return
		}
		c.setState("disconnected", err)
		if !sleepCtx(ctx, c.minBackoff) {
			c.setState("stopped", nil)
			return
		}
	}
}

func (c *lineClient) serve(ctx context.Context, conn net.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	if c.onConnect != nil {
		if err := c.onConnect(conn); err != nil {
			return err
		}
	}
	c.setState("connected", nil)

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > c.maxLineBytes {
			c.setState("error", fmt.Errorf("line too large (%d bytes)", len(line)))
			line = nil
		}
		if line = bytes.TrimSpace(line); len(line) > 0 {
			c.onLine(string(line))
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
