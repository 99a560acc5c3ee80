// FilePath: internal/gateway/client.go
package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	nuts "github.com/vaudience/go-nuts"
)

// Role tags a connection as a telemetry source or a dashboard consumer
type Role string

const (
	RoleDevice    Role = "device"
	RoleDashboard Role = "dashboard"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one live connection. Device connections are unauthenticated at
// the transport layer (identity is per-message via deviceCode); dashboard
// connections carry the userID their socket token was issued for.
type Client struct {
	gw     *Gateway
	conn   *websocket.Conn
	send   chan []byte
	role   Role
	userID string
}

// enqueue hands a frame to the client's writer without ever blocking the
// event loop. A full buffer means the client misses this update.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
	}
}

// ServeWS upgrades an HTTP request to a gateway connection. Role is selected
// with the `role` query parameter; dashboard connections must present a valid
// `token`.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	role := Role(r.URL.Query().Get("role"))
	if role == "" {
		role = RoleDevice
	}

	var userID string
	switch role {
	case RoleDevice:
	case RoleDashboard:
		verified, err := g.verifier.Verify(r.URL.Query().Get("token"))
		if err != nil {
			nuts.L.Warnf("[Gateway] Rejected dashboard connection: %v", err)
			http.Error(w, "invalid socket token", http.StatusUnauthorized)
			return
		}
		userID = verified
	default:
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Devices send no Origin header; browsers must match the
			// configured dashboard origin.
			return origin == "" || origin == g.origin
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		nuts.L.Warnf("[Gateway] Upgrade failed: %v", err)
		return
	}

	client := &Client{
		gw:     g,
		conn:   conn,
		send:   make(chan []byte, g.cfg.SendBuffer),
		role:   role,
		userID: userID,
	}

	g.register <- client
	go client.writePump()
	go client.readPump()
}

// readPump relays inbound frames to the event loop. A transport error tears
// down this connection only.
func (c *Client) readPump() {
	defer func() {
		c.gw.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				nuts.L.Warnf("[Gateway] Connection error (role: %s): %v", c.role, err)
			}
			return
		}
		c.gw.inbound <- inboundMessage{client: c, data: data}
	}
}

// writePump delivers frames from the send channel and keeps the connection
// alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
