package render

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

//go:embed static
var staticFS embed.FS

// frame is one message broadcast to WebGL clients.
type frame struct {
	Type     string       `json:"type"` // "config", "add", "remove", "update", "bulk"
	Step     int64        `json:"step,omitempty"`
	Entity   *EntityView  `json:"entity,omitempty"`
	ID       uint32       `json:"id,omitempty"`
	Entities []EntityView `json:"entities,omitempty"`
}

// wsClient is one connected browser with a serialized write path.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// WebSocket broadcasts entity views to browser clients over a websocket
// and serves the embedded three.js page. Notifications are queued on a
// buffered channel and dropped on overflow so a slow client can never
// stall the simulation clock.
type WebSocket struct {
	addr          string
	fps           int
	stepsPerFrame int
	log           *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}

	frames chan frame
}

// NewWebSocket creates a websocket renderer listening on the given port.
func NewWebSocket(port, fps, stepsPerFrame int, log *slog.Logger) *WebSocket {
	if fps <= 0 {
		fps = 30
	}
	if stepsPerFrame <= 0 {
		stepsPerFrame = 1
	}
	return &WebSocket{
		addr:          fmt.Sprintf(":%d", port),
		fps:           fps,
		stepsPerFrame: stepsPerFrame,
		log:           log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
		frames:  make(chan frame, 4096),
	}
}

// Add implements Renderer.
func (s *WebSocket) Add(v EntityView) {
	s.enqueue(frame{Type: "add", Entity: &v})
}

// Remove implements Renderer.
func (s *WebSocket) Remove(id uint32) {
	s.enqueue(frame{Type: "remove", ID: id})
}

// Update implements Renderer.
func (s *WebSocket) Update(v EntityView) {
	s.enqueue(frame{Type: "update", Entity: &v})
}

// enqueue never blocks; stale frames are dropped under pressure because
// the periodic bulk frame resynchronizes clients anyway.
func (s *WebSocket) enqueue(f frame) {
	select {
	case s.frames <- f:
	default:
	}
}

// Run implements Renderer: serves HTTP, broadcasts queued frames, and
// drives the simulation at the configured frame rate until canceled.
func (s *WebSocket) Run(ctx context.Context, lp Loop) error {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.handleClient(w, r, lp)
	})

	srv := &http.Server{Addr: s.addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("webgl renderer listening", "addr", s.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Broadcast pump: frames to all clients, dead clients dropped.
	go func() {
		for f := range s.frames {
			s.broadcast(f)
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		case err := <-errCh:
			return fmt.Errorf("webgl renderer: %w", err)
		case <-ticker.C:
			for i := 0; i < s.stepsPerFrame; i++ {
				lp.Step()
			}
			s.enqueue(frame{Type: "bulk", Step: lp.StepCount(), Entities: lp.Views()})
		}
	}
}

func (s *WebSocket) handleClient(w http.ResponseWriter, r *http.Request, lp Loop) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := &wsClient{conn: conn}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	s.log.Info("webgl client connected", "clients", n)

	// Full state so a late joiner does not wait for the next bulk frame.
	_ = client.send(frame{Type: "bulk", Step: lp.StepCount(), Entities: lp.Views()})

	// Reader: clients send nothing we act on; the read loop exists to
	// detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		s.mu.Lock()
		delete(s.clients, client)
		remaining := len(s.clients)
		s.mu.Unlock()
		conn.Close()
		s.log.Info("webgl client disconnected", "clients", remaining)
	}()
}

func (s *WebSocket) broadcast(f frame) {
	s.mu.Lock()
	list := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		list = append(list, c)
	}
	s.mu.Unlock()

	for _, c := range list {
		if err := c.send(f); err != nil {
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
			c.conn.Close()
		}
	}
}
