// internal/hub/hub.go
package hub

import (
	"encoding/json"
	"log"
	gosync "sync"

	"pos-service/internal/sync"
)

// Event is one server-pushed sync lifecycle notification, scoped to a
// store's broadcast group.
type Event struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data"`
	StoreID uint        `json:"storeId"`
}

// Server-to-client event types, shared with the sync service that
// publishes them.
const (
	EventBatchCreated  = sync.EventBatchCreated
	EventBatchUpdated  = sync.EventBatchUpdated
	EventLogUpdated    = sync.EventLogUpdated
	EventSyncRequested = sync.EventSyncRequested
)

// subscriberBuffer is how many undelivered events a client may lag
// behind before broadcasts start dropping for it.
const subscriberBuffer = 16

// Subscriber receives events for the store group it joined. Delivery is
// fire-and-forget; a subscriber that cannot keep up misses events rather
// than blocking the broadcast.
type Subscriber interface {
	Deliver(Event)
}

// Hub manages store-scoped broadcast groups for connected sync clients.
// Each subscriber drains its own buffered queue, so one stalled client
// never holds up publishers or the other members of its group.
type Hub struct {
	groups map[uint]map[Subscriber]chan Event
	mu     gosync.RWMutex
}

func New() *Hub {
	return &Hub{
		groups: make(map[uint]map[Subscriber]chan Event),
	}
}

// Register adds a subscriber to a store's broadcast group and starts the
// goroutine that drains its queue.
func (h *Hub) Register(storeID uint, sub Subscriber) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if _, ok := h.groups[storeID]; !ok {
		h.groups[storeID] = make(map[Subscriber]chan Event)
	}
	h.groups[storeID][sub] = ch
	total := len(h.groups[storeID])
	h.mu.Unlock()

	go func() {
		for event := range ch {
			sub.Deliver(event)
		}
	}()

	log.Printf("📡 [HUB] Registered client for store %d (total clients: %d)",
		storeID, total)
}

// Unregister removes a subscriber from a store's broadcast group and
// stops its drain goroutine.
func (h *Hub) Unregister(storeID uint, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[storeID]
	if !ok {
		return
	}
	ch, ok := group[sub]
	if !ok {
		return
	}
	delete(group, sub)
	close(ch)
	if len(group) == 0 {
		delete(h.groups, storeID)
	}
	log.Printf("📡 [HUB] Unregistered client for store %d (remaining: %d)",
		storeID, len(group))
}

// Publish broadcasts an event to every subscriber in the store's group.
// Data is marshaled once so all subscribers see the same frame. Sends are
// non-blocking: a subscriber whose queue is full is skipped.
func (h *Hub) Publish(storeID uint, eventType string, data interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	group, ok := h.groups[storeID]
	if !ok || len(group) == 0 {
		log.Printf("📡 [HUB] No clients to broadcast %s to for store %d", eventType, storeID)
		return
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		log.Printf("❌ [HUB] Failed to marshal event data: %v", err)
		return
	}
	event := Event{
		Type:    eventType,
		Data:    json.RawMessage(dataJSON),
		StoreID: storeID,
	}

	dropped := 0
	for _, ch := range group {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("⚠️ [HUB] Dropped %s for %d slow clients in store %d", eventType, dropped, storeID)
	}
	log.Printf("📡 [HUB] Broadcast %s to %d clients for store %d",
		eventType, len(group)-dropped, storeID)
}

// ClientCount returns the number of connected clients for a store.
func (h *Hub) ClientCount(storeID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[storeID])
}

// TotalClientCount returns the number of connected clients across stores.
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, group := range h.groups {
		total += len(group)
	}
	return total
}
