package gps

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestLineClient_ReconnectsAfterDisconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for _, payload := range []string{"$A,1\n", "$B,2\r\n"} {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte(payload))
			_ = conn.Close()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lines := make(chan string, 4)
	connects := 0
	c := &lineClient{
		addr:       ln.Addr().String(),
		minBackoff: 10 * time.Millisecond,
		onConnect: func(net.Conn) error {
			connects++
			return nil
		},
		onLine: func(l string) { lines <- l },
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(ctx)
	}()

	for _, want := range []string{"$A,1", "$B,2"} {
		select {
		case got := <-lines:
			if got != want {
				t.Fatalf("line=%q want %q", got, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
	cancel()
	<-done
	if connects < 2 {
		t.Fatalf("connects=%d want >= 2", connects)
	}
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, time.Hour) {
		t.Fatalf("sleepCtx ignored cancellation")
	}
	if !sleepCtx(context.Background(), 0) {
		t.Fatalf("zero sleep should return true")
	}
}
