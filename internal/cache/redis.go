// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"pos-service/internal/hub"

	"github.com/redis/go-redis/v9"
)

const eventChannel = "pos:sync:events"

// EventBus fans sync lifecycle events out across service instances over a
// redis pub/sub channel. Every instance subscribes to the channel and
// delivers received events to its local hub, so a broadcast reaches
// clients no matter which instance they are connected to.
//
// Publish is fire-and-forget: a redis failure is logged and the event is
// delivered locally anyway so single-instance behavior survives outages.
type EventBus struct {
	client   *redis.Client
	local    *hub.Hub
	stop     chan struct{}
	stopOnce sync.Once
}

type busEnvelope struct {
	StoreID uint            `json:"storeId"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

// BusConfig holds connection settings for the event bus.
type BusConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewEventBus connects to redis and starts the subscriber loop.
func NewEventBus(cfg BusConfig, local *hub.Hub) (*EventBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	b := &EventBus{
		client: client,
		local:  local,
		stop:   make(chan struct{}),
	}
	go b.subscribeLoop()

	log.Printf("[EventBus] Started - addr:%s db:%d channel:%s", cfg.Addr, cfg.DB, eventChannel)
	return b, nil
}

// Publish implements sync.Notifier.
func (b *EventBus) Publish(storeID uint, eventType string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("[EventBus] Marshal error: %v", err)
		return
	}
	payload, err := json.Marshal(busEnvelope{StoreID: storeID, Type: eventType, Data: raw})
	if err != nil {
		log.Printf("[EventBus] Envelope marshal error: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.client.Publish(ctx, eventChannel, payload).Err(); err != nil {
		log.Printf("[EventBus] Publish error, delivering locally only: %v", err)
		b.local.Publish(storeID, eventType, json.RawMessage(raw))
	}
}

func (b *EventBus) subscribeLoop() {
	sub := b.client.Subscribe(context.Background(), eventChannel)
	defer sub.Close()
	ch := sub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env busEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("[EventBus] Bad envelope: %v", err)
				continue
			}
			b.local.Publish(env.StoreID, env.Type, env.Data)
		case <-b.stop:
			return
		}
	}
}

// Close stops the subscriber loop and releases the client.
func (b *EventBus) Close() error {
	b.stopOnce.Do(func() {
		close(b.stop)
	})
	return b.client.Close()
}
