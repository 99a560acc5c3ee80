// FilePath: internal/gateway/gateway.go

// Package gateway terminates the persistent connections from devices and
// dashboard viewers, applies incoming readings to the in-memory device state
// and fans the resulting updates out to connected clients.
//
// All state mutation happens on a single event loop goroutine (Run): a
// reading is looked up, applied and broadcast before the next event is
// processed, so per-device ordering is preserved without locks.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/FajarFE/Waterm-sub001/internal/config"
	"github.com/FajarFE/Waterm-sub001/internal/models"
	"github.com/FajarFE/Waterm-sub001/internal/persistence"
	nuts "github.com/vaudience/go-nuts"
)

// Gateway event names, emitted through the internal event emitter
const (
	EventClientConnected    = "gateway.client.connected"
	EventClientDisconnected = "gateway.client.disconnected"
	EventReadingDropped     = "gateway.reading.dropped"
	EventUpdateBroadcast    = "gateway.update.broadcast"
	EventPersistScheduled   = "gateway.persist.scheduled"
)

// TokenVerifier checks a dashboard socket token and returns the user id it
// was issued for
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Gateway is the ingestion hub. All fields below register/unregister/inbound
// are owned by the Run loop.
type Gateway struct {
	cfg      config.GatewayConfig
	verifier TokenVerifier
	origin   string

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage

	clients map[*Client]bool
	states  *StateStore
	bridge  *persistence.Bridge
	events  *nuts.EventEmitter
}

type inboundMessage struct {
	client *Client
	data   []byte
}

// New creates a gateway around an injected state store and persistence
// bridge. The store must not be shared with another gateway instance.
func New(cfg config.GatewayConfig, states *StateStore, bridge *persistence.Bridge, verifier TokenVerifier, allowedOrigin string) *Gateway {
	return &Gateway{
		cfg:        cfg,
		verifier:   verifier,
		origin:     allowedOrigin,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundMessage, 256),
		clients:    make(map[*Client]bool),
		states:     states,
		bridge:     bridge,
		events:     nuts.NewEventEmitter(),
	}
}

// Run processes all connection events until the context is cancelled
func (g *Gateway) Run(ctx context.Context) {
	nuts.L.Infof("[Gateway] Event loop started (broadcast scope: %s)", g.cfg.BroadcastScope)
	for {
		select {
		case client := <-g.register:
			g.handleConnect(client)
		case client := <-g.unregister:
			g.handleDisconnect(client)
		case msg := <-g.inbound:
			g.handleMessage(msg)
		case <-ctx.Done():
			for client := range g.clients {
				close(client.send)
				delete(g.clients, client)
			}
			nuts.L.Infof("[Gateway] Event loop stopped")
			return
		}
	}
}

func (g *Gateway) handleConnect(client *Client) {
	g.clients[client] = true
	g.events.Emit(EventClientConnected, string(client.role))
	nuts.L.Infof("[Gateway] Client connected (role: %s, clients: %d)", client.role, len(g.clients))

	// Late joiners get the latest-per-device snapshot
	if client.role == RoleDashboard {
		for _, update := range g.states.Snapshot() {
			if !g.inScope(client, update.UserID) {
				continue
			}
			if encoded, err := encodeUpdate(update); err == nil {
				client.enqueue(encoded)
			}
		}
	}
}

func (g *Gateway) handleDisconnect(client *Client) {
	if _, ok := g.clients[client]; !ok {
		return
	}
	delete(g.clients, client)
	close(client.send)
	g.events.Emit(EventClientDisconnected, string(client.role))
	nuts.L.Infof("[Gateway] Client disconnected (role: %s, clients: %d)", client.role, len(g.clients))
}

func (g *Gateway) handleMessage(msg inboundMessage) {
	var envelope models.Envelope
	if err := json.Unmarshal(msg.data, &envelope); err != nil {
		g.dropReading("unparseable message")
		return
	}

	switch envelope.Event {
	case models.EventDeviceReading:
		if msg.client.role != RoleDevice {
			g.dropReading("reading from non-device connection")
			return
		}
		g.handleReading(envelope.Payload)
	default:
		g.dropReading("unknown event " + envelope.Event)
	}
}

// handleReading validates and applies one device reading, then broadcasts the
// fresh state and hands it to the persistence bridge. Runs to completion on
// the event loop.
func (g *Gateway) handleReading(payload json.RawMessage) {
	var reading models.DeviceReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		g.dropReading("unparseable reading payload")
		return
	}
	if !reading.Valid() {
		g.dropReading("missing userId, deviceCode or dataSensor")
		return
	}

	state := g.states.Apply(reading.UserID, reading.DeviceCode, *reading.DataSensor, time.Now())

	update := models.DeviceUpdate{
		UserID:     reading.UserID,
		DeviceCode: reading.DeviceCode,
		Data:       state,
	}
	g.broadcast(update)

	if g.bridge != nil && g.bridge.MaybePersist(reading.UserID, reading.DeviceCode, state) {
		g.events.Emit(EventPersistScheduled, reading.DeviceCode)
	}
}

// broadcast marshals the update once and fans the identical bytes out to
// every connection in scope. A client whose send buffer is full misses the
// update; delivery is at-most-once per connection.
func (g *Gateway) broadcast(update models.DeviceUpdate) {
	encoded, err := encodeUpdate(update)
	if err != nil {
		nuts.L.Errorf("[Gateway] Failed to encode update for %s: %v", update.DeviceCode, err)
		return
	}

	for client := range g.clients {
		if !g.inScope(client, update.UserID) {
			continue
		}
		client.enqueue(encoded)
	}
	g.events.Emit(EventUpdateBroadcast, update.DeviceCode)
}

// inScope reports whether a client should receive updates for ownerID. With
// global scope every connection gets every update; with owner scope only the
// owner's authenticated dashboard connections do.
func (g *Gateway) inScope(client *Client, ownerID string) bool {
	if g.cfg.BroadcastScope == config.BroadcastScopeOwner {
		return client.role == RoleDashboard && client.userID == ownerID
	}
	return true
}

func (g *Gateway) dropReading(reason string) {
	g.events.Emit(EventReadingDropped, reason)
	nuts.L.Warnf("[Gateway] Dropped reading: %s", reason)
}

// OnEvent registers a callback for gateway events
func (g *Gateway) OnEvent(event string, handler func(detail string)) {
	g.events.On(event, "gateway_handler", func(args ...interface{}) {
		if len(args) > 0 {
			if detail, ok := args[0].(string); ok {
				handler(detail)
			}
		}
	})
}

func encodeUpdate(update models.DeviceUpdate) ([]byte, error) {
	payload, err := json.Marshal(update)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Envelope{
		Event:   models.EventDeviceUpdate,
		Payload: payload,
	})
}
