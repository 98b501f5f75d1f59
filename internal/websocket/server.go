package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yegors/wmo-decoder/internal/session"
	"github.com/yegors/wmo-decoder/pkg/logger"
)

// Message types
const (
	MessageTypeState        = "state"         // Server pushes the rendered state
	MessageTypeStateRequest = "state_request" // Client asks for the current state
	MessageTypeSetLocale    = "set_locale"    // Client switches its locale
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message represents a WebSocket message
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Renderer turns a snapshot into the payload of a state message for one locale
type Renderer interface {
	RenderState(snap session.Snapshot, locale string) (map[string]any, error)
}

// Source returns the current snapshot for newly connected clients
type Source func() session.Snapshot

// LocaleMatcher picks a supported locale from an explicit choice or an
// Accept-Language header
type LocaleMatcher func(lang, acceptLanguage string) string

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan *Message
	server *Server
	mu     sync.Mutex
	closed bool
	locale string
}

// Server fans session snapshots out to connected clients
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan session.Snapshot
	done       chan struct{}
	stopOnce   sync.Once
	upgrader   websocket.Upgrader
	renderer   Renderer
	source     Source
	matchLang  LocaleMatcher
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewServer creates a new WebSocket server
func NewServer(renderer Renderer, source Source, matchLang LocaleMatcher, log *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan session.Snapshot, 16),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		renderer:  renderer,
		source:    source,
		matchLang: matchLang,
		logger:    log.Named("web-socket"),
	}
}

// Run starts the WebSocket server loop. It returns after Stop.
func (s *Server) Run() {
	s.logger.Info("Starting WebSocket server")

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client registered", logger.Int("client_count", clientCount))

		case client := <-s.unregister:
			s.mu.Lock()
			s.removeLocked(client)
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", logger.Int("client_count", clientCount))

		case snap := <-s.broadcast:
			s.fanOut(snap)

		case <-s.done:
			s.mu.Lock()
			for client := range s.clients {
				s.removeLocked(client)
			}
			s.mu.Unlock()
			s.logger.Info("WebSocket server stopped")
			return
		}
	}
}

// fanOut renders snap once per locale in use and queues it on every client
func (s *Server) fanOut(snap session.Snapshot) {
	rendered := make(map[string]*Message)

	s.mu.RLock()
	clientsToRemove := make([]*Client, 0)
	for client := range s.clients {
		client.mu.Lock()
		closed, locale := client.closed, client.locale
		client.mu.Unlock()
		if closed {
			clientsToRemove = append(clientsToRemove, client)
			continue
		}

		msg, ok := rendered[locale]
		if !ok {
			var err error
			msg, err = s.stateMessage(snap, locale)
			if err != nil {
				s.logger.Error("Failed to render state", logger.String("locale", locale), logger.Error(err))
			}
			rendered[locale] = msg
		}
		if msg == nil {
			continue
		}

		select {
		case client.send <- msg:
		default:
			// Channel is full, mark for removal
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	s.mu.RUnlock()

	if len(clientsToRemove) > 0 {
		s.mu.Lock()
		for _, client := range clientsToRemove {
			s.removeLocked(client)
		}
		s.mu.Unlock()
	}
}

func (s *Server) removeLocked(client *Client) {
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	client.mu.Lock()
	client.closed = true
	close(client.send)
	client.mu.Unlock()
}

func (s *Server) stateMessage(snap session.Snapshot, locale string) (*Message, error) {
	data, err := s.renderer.RenderState(snap, locale)
	if err != nil {
		return nil, err
	}
	return &Message{Type: MessageTypeState, Data: data}, nil
}

// Publish queues snap for every client. It is a session observer and never
// blocks once the server is stopped.
func (s *Server) Publish(snap session.Snapshot) {
	select {
	case s.broadcast <- snap:
	case <-s.done:
	}
}

// Stop ends Run and closes every client
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// ClientCount returns the number of registered clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleConnection handles a WebSocket connection
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Handling new WebSocket connection request",
		logger.String("remote_addr", r.RemoteAddr),
		logger.String("user_agent", r.UserAgent()))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: s,
		locale: s.matchLang(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language")),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()

	// Push the current state so the client never waits for the next transition
	client.sendCurrent()
}

func (c *Client) sendCurrent() {
	if c.server.source == nil {
		return
	}
	msg, err := c.server.stateMessage(c.server.source(), c.Locale())
	if err != nil {
		c.server.logger.Error("Failed to render state", logger.Error(err))
		return
	}
	c.SendMessage(msg)
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", logger.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.server.logger.Error("Failed to parse WebSocket message", logger.Error(err))
			continue
		}

		c.server.logger.Debug("Received WebSocket message",
			logger.String("type", message.Type),
			logger.String("client", c.conn.RemoteAddr().String()))

		c.handle(message)
	}
}

func (c *Client) handle(message Message) {
	switch message.Type {
	case MessageTypeStateRequest:
		c.sendCurrent()
	case MessageTypeSetLocale:
		lang, _ := message.Data["locale"].(string)
		locale := c.server.matchLang(lang, "")
		c.mu.Lock()
		c.locale = locale
		c.mu.Unlock()
		c.sendCurrent()
	default:
		c.server.logger.Debug("Ignoring unknown message type", logger.String("type", message.Type))
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.server.logger.Debug("Failed to write message", logger.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Locale returns the client's current locale
func (c *Client) Locale() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locale
}

// SendMessage sends a message to this specific client
func (c *Client) SendMessage(message *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		// Channel is full, drop message
		return false
	}
}
