package services

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
)

// PushService delivers alert notifications to staff devices over FCM.
type PushService struct {
	client *messaging.Client
}

func NewPushService(client *messaging.Client) *PushService {
	return &PushService{client: client}
}

func (ps *PushService) Enabled() bool {
	return ps != nil && ps.client != nil
}

func (ps *PushService) Send(ctx context.Context, deviceToken, title, body, priority string, data map[string]string) error {
	if !ps.Enabled() {
		return fmt.Errorf("push notifications not configured")
	}

	androidPriority := "normal"
	if priority == "high" || priority == "urgent" {
		androidPriority = "high"
	}

	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				ChannelID: "emergency_alerts",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	messageID, err := ps.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}

	logrus.WithField("messageId", messageID).Debug("Push notification sent")
	return nil
}
