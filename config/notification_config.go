package config

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	"google.golang.org/api/option"
)

// InitFirebaseMessaging returns an FCM client, or nil when push is not
// configured or initialization fails. Push is an optional delivery leg.
func InitFirebaseMessaging(ctx context.Context, cfg *Config) *messaging.Client {
	if cfg.FirebaseCredentials == "" {
		logrus.Info("Firebase credentials not configured, push delivery disabled")
		return nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.FirebaseCredentials))
	if err != nil {
		logrus.Errorf("Failed to initialize Firebase: %v", err)
		return nil
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		logrus.Errorf("Failed to get FCM client: %v", err)
		return nil
	}

	logrus.Info("Firebase messaging initialized")
	return client
}

// InitTwilio returns a Twilio REST client, or nil when SMS is not configured.
func InitTwilio(cfg *Config) *twilio.RestClient {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		logrus.Info("Twilio credentials not configured, SMS delivery disabled")
		return nil
	}

	return twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
}
