package websocket

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/auth"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/config"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// Unique client ID
	id string

	// The hub this client belongs to
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Configuration
	config *config.Config

	// Logger
	logger zerolog.Logger

	// User claims for per-interviewer access filtering
	claims *auth.Claims

	// Interviewers the client subscribed to, lower case. Empty means all.
	interviewers map[string]bool
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, cfg *config.Config, logger zerolog.Logger, claims *auth.Claims, interviewers []string) *Client {
	clientID := uuid.New().String()
	subscribed := make(map[string]bool, len(interviewers))
	for _, name := range interviewers {
		if name = strings.TrimSpace(name); name != "" {
			subscribed[strings.ToLower(name)] = true
		}
	}
	return &Client{
		id:           clientID,
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, 256),
		config:       cfg,
		logger:       logger.With().Str("client_id", clientID).Logger(),
		claims:       claims,
		interviewers: subscribed,
	}
}

// readPump pumps messages from the websocket connection to the hub
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("websocket read error")
			}
			break
		}
		c.logger.Debug().Str("message", string(message)).Msg("received message from client")
	}
}

// writePump pumps messages from the hub to the websocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Accepts reports whether the event should be delivered to this client.
// Events without an interviewer go to everyone.
func (c *Client) Accepts(event *types.ReportEvent) bool {
	if event.Interviewer == "" {
		return true
	}
	if c.claims != nil && !c.claims.CanViewInterviewer(event.Interviewer) {
		return false
	}
	if len(c.interviewers) > 0 && !c.interviewers[strings.ToLower(event.Interviewer)] {
		return false
	}
	return true
}
