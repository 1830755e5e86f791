package websocket

import (
	"eventops/models"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Handler is invoked once per delivered message, always from the
// subscriber's own goroutine.
type Handler func(message models.WSMessage)

// Subscription is the handle returned by the Subscribe calls.
type Subscription struct {
	hub        *Hub
	subscriber *Subscriber
	once       sync.Once
}

// Unsubscribe removes the subscription and discards its pending queue.
// Safe to call more than once and concurrently with Publish.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.unsubscribe(s.subscriber)
	})
}

// Send queues message for this subscriber only, through the same ordered
// queue as published messages. Used to push the current state on subscribe.
// The timestamp should be the version of the state being sent; a zero
// timestamp never causes later updates to be dropped.
func (s *Subscription) Send(message models.WSMessage) {
	s.subscriber.enqueue(message)
}

// ID returns the subscription handle.
func (s *Subscription) ID() uint64 {
	return s.subscriber.id
}

// Subscriber owns an unbounded FIFO queue drained by one goroutine.
type Subscriber struct {
	id      uint64
	topic   string
	handler Handler
	hub     *Hub

	mutex  sync.Mutex
	queue  []models.WSMessage
	closed bool

	signal chan struct{}
	done   chan struct{}

	// last delivered timestamp per event; "" keys global messages.
	lastSeen map[string]time.Time
}

func newSubscriber(id uint64, topic string, handler Handler, hub *Hub) *Subscriber {
	return &Subscriber{
		id:       id,
		topic:    topic,
		handler:  handler,
		hub:      hub,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
}

func (s *Subscriber) enqueue(message models.WSMessage) {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return
	}
	s.queue = append(s.queue, message)
	s.mutex.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscriber) close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
}

func (s *Subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
			for {
				message, ok := s.next()
				if !ok {
					break
				}
				s.dispatch(message)
			}
		}
	}
}

func (s *Subscriber) next() (models.WSMessage, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed || len(s.queue) == 0 {
		return models.WSMessage{}, false
	}
	message := s.queue[0]
	s.queue[0] = models.WSMessage{}
	s.queue = s.queue[1:]
	return message, true
}

func (s *Subscriber) dispatch(message models.WSMessage) {
	if last, ok := s.lastSeen[message.EventID]; ok && message.Timestamp.Before(last) {
		s.hub.stats.messagesStale.Add(1)
		logrus.WithFields(logrus.Fields{
			"subscriptionId": s.id,
			"eventId":        message.EventID,
			"type":           message.Type,
		}).Debug("Dropping out-of-order realtime update")
		return
	}
	s.lastSeen[message.EventID] = message.Timestamp

	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("subscriptionId", s.id).Errorf("Recovered from panic in realtime handler: %v", r)
		}
	}()

	s.handler(message)
	s.hub.stats.messagesSent.Add(1)
}
