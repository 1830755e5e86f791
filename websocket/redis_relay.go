package websocket

import (
	"context"
	"encoding/json"
	"eventops/models"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRelayChannel = "eventops:realtime"

	relayBufferSize   = 256
	relayPublishWait  = 2 * time.Second
	relayRetryBackoff = 2 * time.Second
)

type relayEnvelope struct {
	Origin  string           `json:"origin"`
	Message models.WSMessage `json:"message"`
}

// RedisRelay mirrors hub publications across instances over Redis pub/sub.
// Messages carry the origin instance ID so an instance skips its own echo.
type RedisRelay struct {
	client     *redis.Client
	hub        *Hub
	channel    string
	instanceID string
	outbound   chan models.WSMessage
}

func NewRedisRelay(client *redis.Client, hub *Hub, channel, instanceID string) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		client:     client,
		hub:        hub,
		channel:    channel,
		instanceID: instanceID,
		outbound:   make(chan models.WSMessage, relayBufferSize),
	}
}

// Forward queues message for publication. A full buffer drops the message
// for remote instances only; local subscribers already received it.
func (rr *RedisRelay) Forward(message models.WSMessage) {
	select {
	case rr.outbound <- message:
	default:
		logrus.WithField("type", message.Type).Warn("Realtime relay buffer full, dropping remote copy")
	}
}

// Run publishes forwarded messages and delivers remote ones until ctx ends.
func (rr *RedisRelay) Run(ctx context.Context) {
	go rr.publishLoop(ctx)

	for {
		if err := rr.subscribeLoop(ctx); err != nil {
			logrus.WithError(err).Warn("Realtime relay subscription lost, retrying")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(relayRetryBackoff):
		}
	}
}

func (rr *RedisRelay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-rr.outbound:
			payload, err := json.Marshal(relayEnvelope{Origin: rr.instanceID, Message: message})
			if err != nil {
				logrus.WithError(err).Error("Failed to encode relay message")
				continue
			}

			publishCtx, cancel := context.WithTimeout(ctx, relayPublishWait)
			err = rr.client.Publish(publishCtx, rr.channel, payload).Err()
			cancel()
			if err != nil {
				logrus.WithError(err).Warn("Failed to publish relay message")
			}
		}
	}
}

func (rr *RedisRelay) subscribeLoop(ctx context.Context) error {
	pubsub := rr.client.Subscribe(ctx, rr.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"channel":    rr.channel,
		"instanceId": rr.instanceID,
	}).Info("Realtime relay subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			rr.handle(msg.Payload)
		}
	}
}

func (rr *RedisRelay) handle(payload string) {
	var envelope relayEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		logrus.WithError(err).Warn("Ignoring malformed relay message")
		return
	}
	if envelope.Origin == rr.instanceID {
		return
	}
	rr.hub.PublishLocal(envelope.Message)
}
