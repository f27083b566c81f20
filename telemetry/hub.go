package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/marssim/lander"
)

const (
	writeWait      = 5 * time.Second
	maxCommandSize = 4096
	sendBuffer     = 64
)

// client is a single websocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of connected clients, broadcasts snapshots to them and collects
// the commands they send. Commands are applied by the simulation loop, never by the hub.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	commands   chan lander.Command
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     kitlog.Logger
}

// NewHub creates a new Hub. Run must be started for clients to be served.
func NewHub(logger kitlog.Logger) *Hub {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		commands:   make(chan lander.Command, sendBuffer),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: kitlog.With(logger, "subsys", "hub"),
	}
}

// Drain merges every pending command without blocking.
func (h *Hub) Drain() lander.Command {
	var cmd lander.Command
	for {
		select {
		case c := <-h.commands:
			cmd = cmd.Merge(c)
		default:
			return cmd
		}
	}
}

// Run is the main event loop of the hub. It blocks until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			level.Debug(h.logger).Log("status", "client registered", "remote", c.conn.RemoteAddr())
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client.
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// Publish broadcasts the snapshot of res. It never blocks the caller: the snapshot is dropped
// when the broadcast queue is full.
func (h *Hub) Publish(res lander.TickResult) error {
	msg, err := json.Marshal(NewSnapshot(res))
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- msg:
	default:
		level.Debug(h.logger).Log("status", "snapshot dropped", "t", res.State.Time)
	}
	return nil
}

// ServeHTTP upgrades the request to a websocket connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		level.Warn(h.logger).Log("status", "upgrade failed", "err", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// readPump decodes the commands sent by the client.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxCommandSize)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				level.Warn(c.hub.logger).Log("status", "read failed", "err", err)
			}
			return
		}
		var cmd lander.Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			level.Warn(c.hub.logger).Log("status", "invalid command", "err", err)
			continue
		}
		select {
		case c.hub.commands <- cmd:
		default:
			level.Warn(c.hub.logger).Log("status", "command dropped")
		}
	}
}

// writePump writes the hub's snapshots to the connection. It exits when send is closed.
func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
