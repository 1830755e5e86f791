package websocket

import (
	"context"
	"eventops/models"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// TopicGlobal carries system-wide messages (status, shutdown alert).
	TopicGlobal = "global"

	eventTopicPrefix = "event:"
)

// EventTopic returns the topic name for a single event.
func EventTopic(eventID string) string {
	return eventTopicPrefix + eventID
}

// topicFor routes a message: event-scoped messages go to the event topic,
// everything else to the global topic.
func topicFor(message models.WSMessage) string {
	if message.EventID == "" {
		return TopicGlobal
	}
	return EventTopic(message.EventID)
}

// Forwarder receives every locally published message for delivery to other
// instances.
type Forwarder interface {
	Forward(message models.WSMessage)
}

// Hub is the realtime registry: subscriptions keyed by handle, grouped by
// topic, each with its own delivery queue.
type Hub struct {
	mutex       sync.RWMutex
	subscribers map[uint64]*Subscriber
	topics      map[string]map[uint64]*Subscriber
	nextID      uint64

	forwarder Forwarder

	stats     hubStats
	startTime time.Time
}

type hubStats struct {
	messagesSent  atomic.Int64
	messagesStale atomic.Int64
	lastPublishAt atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uint64]*Subscriber),
		topics:      make(map[string]map[uint64]*Subscriber),
		startTime:   time.Now(),
	}
}

// SetForwarder attaches a cross-instance relay. Must be called before Publish.
func (h *Hub) SetForwarder(f Forwarder) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.forwarder = f
}

// Run logs hub metrics until ctx is cancelled, then closes every subscription.
func (h *Hub) Run(ctx context.Context) {
	logrus.Info("Realtime hub starting...")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := h.Stats()
			logrus.WithFields(logrus.Fields{
				"subscribers":   stats.Subscribers,
				"topics":        stats.Topics,
				"messagesSent":  stats.MessagesSent,
				"messagesStale": stats.MessagesStale,
			}).Debug("Realtime hub metrics")

		case <-ctx.Done():
			logrus.Info("Realtime hub shutting down...")
			h.closeAll()
			return
		}
	}
}

// SubscribeEmergencyState registers handler for updates of one event.
func (h *Hub) SubscribeEmergencyState(eventID string, handler Handler) *Subscription {
	return h.subscribe(EventTopic(eventID), handler)
}

// SubscribeSystemStatus registers handler for system-wide updates.
func (h *Hub) SubscribeSystemStatus(handler Handler) *Subscription {
	return h.subscribe(TopicGlobal, handler)
}

func (h *Hub) subscribe(topic string, handler Handler) *Subscription {
	h.mutex.Lock()
	h.nextID++
	sub := newSubscriber(h.nextID, topic, handler, h)
	h.subscribers[sub.id] = sub
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[uint64]*Subscriber)
	}
	h.topics[topic][sub.id] = sub
	h.mutex.Unlock()

	go sub.run()

	logrus.WithFields(logrus.Fields{
		"subscriptionId": sub.id,
		"topic":          topic,
	}).Debug("Realtime subscription added")

	return &Subscription{hub: h, subscriber: sub}
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	h.mutex.Lock()
	if _, ok := h.subscribers[sub.id]; ok {
		delete(h.subscribers, sub.id)
		if members := h.topics[sub.topic]; members != nil {
			delete(members, sub.id)
			if len(members) == 0 {
				delete(h.topics, sub.topic)
			}
		}
	}
	h.mutex.Unlock()

	sub.close()
}

// Publish delivers message to every current subscriber of its topic and
// hands it to the forwarder. It never blocks on slow subscribers.
func (h *Hub) Publish(message models.WSMessage) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	h.deliver(message)

	h.mutex.RLock()
	forwarder := h.forwarder
	h.mutex.RUnlock()
	if forwarder != nil {
		forwarder.Forward(message)
	}
}

// PublishLocal delivers message to local subscribers only. Used for messages
// that arrived from another instance.
func (h *Hub) PublishLocal(message models.WSMessage) {
	h.deliver(message)
}

func (h *Hub) deliver(message models.WSMessage) {
	topic := topicFor(message)

	h.mutex.RLock()
	targets := make([]*Subscriber, 0, len(h.topics[topic]))
	for _, sub := range h.topics[topic] {
		targets = append(targets, sub)
	}
	h.mutex.RUnlock()

	for _, sub := range targets {
		sub.enqueue(message)
	}

	h.stats.lastPublishAt.Store(time.Now().UnixNano())
}

// Stats returns a point-in-time view of the hub counters.
func (h *Hub) Stats() models.WSHubStats {
	h.mutex.RLock()
	subscribers := len(h.subscribers)
	topics := len(h.topics)
	h.mutex.RUnlock()

	stats := models.WSHubStats{
		Subscribers:   subscribers,
		Topics:        topics,
		MessagesSent:  h.stats.messagesSent.Load(),
		MessagesStale: h.stats.messagesStale.Load(),
		Uptime:        time.Since(h.startTime),
	}
	if last := h.stats.lastPublishAt.Load(); last > 0 {
		stats.LastPublishAt = time.Unix(0, last).UTC()
	}
	return stats
}

// SubscriberCount returns the number of subscribers on topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.subscribers = make(map[uint64]*Subscriber)
	h.topics = make(map[string]map[uint64]*Subscriber)
	h.mutex.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
