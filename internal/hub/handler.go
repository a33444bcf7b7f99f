// internal/hub/handler.go
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	gosync "sync"
	"time"

	"pos-service/internal/auth"
	"pos-service/internal/middleware"
	"pos-service/internal/sync"
	"pos-service/pkg/models"

	"github.com/gofiber/contrib/websocket"
	"gorm.io/gorm"
)

// Remote-invocable operation names.
const (
	MethodStartSync         = "StartSync"
	MethodSendChanges       = "SendChanges"
	MethodCompleteSyncBatch = "CompleteSyncBatch"
	MethodRequestClientSync = "RequestClientSync"
)

// Invocation is one client request frame on the realtime channel.
type Invocation struct {
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload"`
}

// resultFrame answers one invocation.
type resultFrame struct {
	Type   string      `json:"type"` // "result"
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Data   interface{} `json:"data"`
}

// errorFrame is the typed channel-level error. A failed invocation
// surfaces here and the connection stays open.
type errorFrame struct {
	Type    string `json:"type"` // "error"
	ID      string `json:"id"`
	Method  string `json:"method"`
	Message string `json:"message"`
}

// Pusher wakes offline devices up (FCM). May be absent.
type Pusher interface {
	SendToMultipleTokens(ctx context.Context, tokens []string, title, body string, data map[string]interface{}) error
}

// Handler serves the realtime sync channel.
type Handler struct {
	hub     *Hub
	syncSvc *sync.Service
	db      *gorm.DB
	push    Pusher
}

func NewHandler(h *Hub, syncSvc *sync.Service, db *gorm.DB, push Pusher) *Handler {
	return &Handler{hub: h, syncSvc: syncSvc, db: db, push: push}
}

// client is one connected device. Writes are serialized with a mutex
// because broadcasts arrive from other goroutines.
type client struct {
	conn    *websocket.Conn
	writeMu gosync.Mutex
}

func (c *client) writeJSON(v interface{}) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(v); err != nil {
		log.Printf("⚠️ [HUB] Write failed: %v", err)
	}
}

// Deliver implements Subscriber.
func (c *client) Deliver(event Event) {
	c.writeJSON(event)
}

// Serve runs one connection: joins the caller's store group, then loops on
// invocations until the client disconnects. Disconnection is logged only;
// an InProgress batch whose device drops stays InProgress until a client
// or admin later completes it.
func (h *Handler) Serve(conn *websocket.Conn) {
	claims, ok := conn.Locals(middleware.ClaimsContextKey).(*auth.Claims)
	if !ok {
		log.Printf("❌ [HUB] Connection without claims, closing")
		_ = conn.Close()
		return
	}
	deviceID, _ := conn.Locals(middleware.WSDeviceContextKey).(string)

	cl := &client{conn: conn}
	h.hub.Register(claims.StoreID, cl)
	defer func() {
		h.hub.Unregister(claims.StoreID, cl)
		log.Printf("📡 [HUB] Client disconnected (user=%s device=%s store=%d)",
			claims.Username, deviceID, claims.StoreID)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var inv Invocation
		if err := json.Unmarshal(raw, &inv); err != nil {
			cl.writeJSON(errorFrame{Type: "error", Message: "malformed invocation frame"})
			continue
		}

		data, err := h.dispatch(claims, deviceID, inv)
		if err != nil {
			cl.writeJSON(errorFrame{Type: "error", ID: inv.ID, Method: inv.Method, Message: err.Error()})
			continue
		}
		cl.writeJSON(resultFrame{Type: "result", ID: inv.ID, Method: inv.Method, Data: data})
	}
}

// dispatch runs one invocation. Panics are wrapped into the typed channel
// error instead of tearing the connection down.
func (h *Handler) dispatch(claims *auth.Claims, deviceID string, inv Invocation) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 [HUB] %s panicked: %v", inv.Method, r)
			err = fmt.Errorf("%s failed: %v", inv.Method, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !auth.Allowed(claims.Permissions, auth.PermSyncExecute) {
		return nil, fmt.Errorf("missing permission %s", auth.PermSyncExecute)
	}

	switch inv.Method {
	case MethodStartSync:
		var req struct {
			StoreID      uint `json:"storeId"`
			TotalRecords int  `json:"totalRecords"`
		}
		if err := json.Unmarshal(inv.Payload, &req); err != nil {
			return nil, fmt.Errorf("invalid StartSync payload: %w", err)
		}
		if !claims.CanAccessStore(req.StoreID) {
			return nil, fmt.Errorf("not authorized for store %d", req.StoreID)
		}
		batch, err := h.syncSvc.CreateBatch(ctx, deviceID, claims.UserID, req.StoreID, req.TotalRecords, claims.IsAdmin())
		if err != nil {
			return nil, fmt.Errorf("StartSync failed: %w", err)
		}
		return batch, nil

	case MethodSendChanges:
		var req sync.ChangeRequest
		if err := json.Unmarshal(inv.Payload, &req); err != nil {
			return nil, fmt.Errorf("invalid SendChanges payload: %w", err)
		}
		if req.DeviceID == "" {
			req.DeviceID = deviceID
		}
		result, err := h.syncSvc.RecordChange(ctx, req, claims.StoreID, claims.IsAdmin())
		if err != nil {
			return nil, fmt.Errorf("SendChanges failed: %w", err)
		}
		return result, nil

	case MethodCompleteSyncBatch:
		var req struct {
			BatchID uint `json:"batchId"`
		}
		if err := json.Unmarshal(inv.Payload, &req); err != nil {
			return nil, fmt.Errorf("invalid CompleteSyncBatch payload: %w", err)
		}
		batch, err := h.syncSvc.GetBatch(ctx, req.BatchID)
		if err != nil {
			return nil, fmt.Errorf("CompleteSyncBatch failed: %w", err)
		}
		if !claims.CanAccessStore(batch.StoreID) {
			return nil, fmt.Errorf("not authorized for store %d", batch.StoreID)
		}
		batch, err = h.syncSvc.CompleteBatch(ctx, req.BatchID)
		if err != nil {
			return nil, fmt.Errorf("CompleteSyncBatch failed: %w", err)
		}
		return batch, nil

	case MethodRequestClientSync:
		var req struct {
			StoreID uint `json:"storeId"`
		}
		if err := json.Unmarshal(inv.Payload, &req); err != nil {
			return nil, fmt.Errorf("invalid RequestClientSync payload: %w", err)
		}
		if !claims.CanAccessStore(req.StoreID) {
			return nil, fmt.Errorf("not authorized for store %d", req.StoreID)
		}
		h.hub.Publish(req.StoreID, EventSyncRequested, map[string]interface{}{
			"storeId":     req.StoreID,
			"requestedBy": claims.Username,
			"requestedAt": time.Now().UTC(),
		})
		h.pushSyncRequest(ctx, req.StoreID)
		return map[string]interface{}{"requested": true, "clients": h.hub.ClientCount(req.StoreID)}, nil

	default:
		return nil, fmt.Errorf("unknown method %q", inv.Method)
	}
}

// pushSyncRequest fires FCM wakeups at the store's registered devices so
// clients that are not connected still learn a sync was requested.
// Best-effort: failures are logged, never surfaced.
func (h *Handler) pushSyncRequest(ctx context.Context, storeID uint) {
	if h.push == nil {
		return
	}
	var tokens []string
	if err := h.db.WithContext(ctx).Model(&models.DeviceToken{}).
		Where("store_id = ?", storeID).
		Pluck("token", &tokens).Error; err != nil {
		log.Printf("⚠️ [HUB] Failed to load device tokens for store %d: %v", storeID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.push.SendToMultipleTokens(ctx, tokens, "Sync requested",
			"Your store requested a data sync", map[string]interface{}{
				"event":   EventSyncRequested,
				"storeId": storeID,
			}); err != nil {
			log.Printf("⚠️ [HUB] FCM push failed for store %d: %v", storeID, err)
		}
	}()
}
