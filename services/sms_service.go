package services

import (
	"context"
	"eventops/utils"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const maxSMSLength = 160

// SMSService sends urgent alerts as text messages through Twilio.
type SMSService struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewSMSService(client *twilio.RestClient, fromNumber string) *SMSService {
	return &SMSService{
		client:     client,
		fromNumber: fromNumber,
	}
}

func (ss *SMSService) Enabled() bool {
	return ss != nil && ss.client != nil && ss.fromNumber != ""
}

func (ss *SMSService) Send(ctx context.Context, to, body string) error {
	if !ss.Enabled() {
		return fmt.Errorf("SMS not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(ss.fromNumber)
	params.SetBody(formatSMSBody(body))

	resp, err := ss.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	if resp.Sid != nil {
		logrus.WithField("sid", *resp.Sid).Debug("SMS sent")
	}
	return nil
}

func formatSMSBody(body string) string {
	return utils.TruncateString(strings.TrimSpace(body), maxSMSLength)
}
