package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/powerpit/backend/internal/physics"
	"github.com/powerpit/backend/internal/runs"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by middleware.WebSocketCORSCheck
	},
}

// Message types sent to stream clients.
const (
	TypeFrame = "frame"
	TypeDone  = "done"
	TypeError = "error"
)

// Message is one JSON text frame on the stream.
type Message struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// DoneData accompanies the final "done" message.
type DoneData struct {
	Frames int `json:"frames"`
}

var (
	ErrFeedClosed  = errors.New("live feed closed before the run finished")
	ErrFeedStalled = errors.New("live feed stalled")
)

// Client is one connected stream consumer.
type Client struct {
	conn *websocket.Conn
	name string
	send chan []byte
}

// Streamer upgrades requests and pushes snapshots to the client.
type Streamer struct {
	bufferFrames int
	idleTimeout  time.Duration
}

// NewStreamer buffers up to bufferFrames encoded messages per client. A live
// feed that stays silent for idleTimeout fails the stream; zero disables
// the limit.
func NewStreamer(bufferFrames int, idleTimeout time.Duration) *Streamer {
	return &Streamer{bufferFrames: max(bufferFrames, 1), idleTimeout: idleTimeout}
}

// producer emits messages until the stream is complete.
type producer func(ctx context.Context, emit func(Message) error) error

// Replay simulates scene from scratch, sending one frame per tick of the
// scene's frame rate, then a done message.
func (s *Streamer) Replay(w http.ResponseWriter, r *http.Request, name string, scene physics.Scene) {
	s.serve(w, r, name, func(ctx context.Context, emit func(Message) error) error {
		var pace <-chan time.Time
		if scene.FrameRate > 0 {
			if interval := time.Second / time.Duration(scene.FrameRate); interval > 0 {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				pace = ticker.C
			}
		}

		sampler := physics.SimulateFrames(scene)
		sent := 0
		for sampler.Next() {
			if err := emit(Message{Type: TypeFrame, Data: sampler.Snapshot()}); err != nil {
				return err
			}
			sent++
			if pace == nil {
				if err := ctx.Err(); err != nil {
					return err
				}
				continue
			}
			select {
			case <-pace:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := sampler.Err(); err != nil {
			return err
		}
		return emit(Message{Type: TypeDone, Data: DoneData{Frames: sent}})
	})
}

// Follow forwards a live run. latest, when set, is sent first so a late
// joiner sees the current state; feed frames at or before it are skipped.
// The stream ends with done after frame total-1 or the run's Done message,
// and with an error when the run failed or the feed breaks off.
func (s *Streamer) Follow(w http.ResponseWriter, r *http.Request, name string, feed <-chan runs.FrameMessage, latest *physics.Snapshot, total int) {
	s.serve(w, r, name, func(ctx context.Context, emit func(Message) error) error {
		sent, next := 0, 0
		forward := func(snap physics.Snapshot) (bool, error) {
			if snap.FrameIndex < next {
				return false, nil
			}
			if err := emit(Message{Type: TypeFrame, Data: snap}); err != nil {
				return false, err
			}
			sent++
			next = snap.FrameIndex + 1
			return next >= total, nil
		}
		done := func() error {
			return emit(Message{Type: TypeDone, Data: DoneData{Frames: sent}})
		}

		if latest != nil {
			last, err := forward(*latest)
			if err != nil {
				return err
			}
			if last {
				return done()
			}
		}

		var idle <-chan time.Time
		var timer *time.Timer
		if s.idleTimeout > 0 {
			timer = time.NewTimer(s.idleTimeout)
			defer timer.Stop()
			idle = timer.C
		}

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-idle:
				return fmt.Errorf("%w: no frame for %v", ErrFeedStalled, s.idleTimeout)
			case m, ok := <-feed:
				if !ok {
					return ErrFeedClosed
				}
				if timer != nil {
					timer.Reset(s.idleTimeout)
				}
				if m.Done {
					if m.Error != "" {
						return fmt.Errorf("run failed: %s", m.Error)
					}
					return done()
				}
				last, err := forward(m.Snapshot)
				if err != nil {
					return err
				}
				if last {
					return done()
				}
			}
		}
	})
}

func (s *Streamer) serve(w http.ResponseWriter, r *http.Request, name string, produce producer) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed for %s: %v", name, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &Client{conn: conn, name: name, send: make(chan []byte, s.bufferFrames)}
	go client.readPump(cancel)

	go func() {
		defer close(client.send)
		err := produce(ctx, client.emitter(ctx))
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[WS] Stream %s failed: %v", name, err)
			client.emitter(ctx)(Message{Type: TypeError, Message: err.Error()})
		}
	}()

	log.Printf("[WS] Streaming %s", name)
	client.writePump()
}

func (c *Client) emitter(ctx context.Context) func(Message) error {
	return func(m Message) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		select {
		case c.send <- data:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readPump discards client messages and cancels the stream when the
// connection goes away.
func (c *Client) readPump(cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for %s: %v", c.name, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for %s: %v", c.name, err)
				return
			}
		}
	}
}
