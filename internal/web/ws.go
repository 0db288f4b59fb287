package web

import (
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is one websocket message. Type is "fix" or "satellites".
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// stream pushes every published fix and satellite list to websocket
// clients. Slow clients miss intermediate values.
type stream struct {
	feed  Feed
	count atomic.Int64
}

func newStream(feed Feed) *stream {
	return &stream{feed: feed}
}

func (s *stream) clients() int {
	return int(s.count.Load())
}

func (s *stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.count.Add(1)
	defer s.count.Add(-1)

	fixes := s.feed.Fixes()
	sats := s.feed.Satellites()
	fixID, fixCh := fixes.Subscribe(4)
	defer fixes.Unsubscribe(fixID)
	satID, satCh := sats.Subscribe(4)
	defer sats.Unsubscribe(satID)

	// Reader: only control frames are expected; an error ends the session.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("web ws read error: %v", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	write := func(f Frame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(f) == nil
	}

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-fixCh:
			if !ok {
				s.closeConn(conn)
				return
			}
			if !write(Frame{Type: "fix", Data: newFixResponse(snap)}) {
				return
			}
		case list, ok := <-satCh:
			if !ok {
				s.closeConn(conn)
				return
			}
			if !write(Frame{Type: "satellites", Data: newSatellitesResponse(list)}) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeConn tells the client the feed has shut down.
func (s *stream) closeConn(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
