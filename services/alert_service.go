package services

import (
	"context"
	"eventops/interfaces"
	"eventops/models"
	"eventops/utils"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type AlertServiceConfig struct {
	Workers         int
	DeliveryTimeout time.Duration
}

// AlertService fans an alert out to the active staff roster of an event.
type AlertService struct {
	staff   interfaces.StaffDirectory
	mailbox interfaces.Mailbox
	config  AlertServiceConfig
}

func NewAlertService(staff interfaces.StaffDirectory, mailbox interfaces.Mailbox, config AlertServiceConfig) *AlertService {
	if config.Workers <= 0 {
		config.Workers = 8
	}
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = 10 * time.Second
	}
	return &AlertService{
		staff:   staff,
		mailbox: mailbox,
		config:  config,
	}
}

// Broadcast delivers alert to every active staff member. Individual delivery
// failures are counted in the result and never abort the broadcast; an error
// is returned only when the roster itself cannot be read.
func (as *AlertService) Broadcast(ctx context.Context, alert models.Alert) (*models.BroadcastResult, error) {
	if strings.TrimSpace(alert.Body) == "" {
		return nil, utils.NewInvalidArgumentError("Alert message is required")
	}
	if alert.Priority == "" {
		alert.Priority = models.AlertPriorityNormal
	}
	if !models.IsValidAlertPriority(alert.Priority) {
		return nil, utils.NewInvalidArgumentError("Invalid alert priority")
	}
	if alert.Subject == "" {
		alert.Subject = defaultAlertSubject(alert.Priority)
	}

	roster, err := as.staff.ActiveStaff(ctx, alert.EventID)
	if err != nil {
		return nil, utils.WrapDatabaseError(err, "list active staff")
	}

	result := &models.BroadcastResult{
		EventID:   alert.EventID,
		Attempted: len(roster),
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, as.config.Workers)
	)

	for _, member := range roster {
		sem <- struct{}{}
		wg.Add(1)
		go func(member models.StaffMember) {
			defer wg.Done()
			defer func() { <-sem }()

			err := as.deliver(ctx, alert, member)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, models.DeliveryFailure{
					StaffID: member.ID,
					UserID:  member.UserID,
					Error:   err.Error(),
				})
				return
			}
			result.Delivered++
		}(member)
	}

	wg.Wait()

	logrus.WithFields(logrus.Fields{
		"eventId":   alert.EventID,
		"attempted": result.Attempted,
		"delivered": result.Delivered,
		"failed":    result.Failed,
	}).Info("Alert broadcast completed")

	return result, nil
}

func (as *AlertService) deliver(ctx context.Context, alert models.Alert, member models.StaffMember) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panicked: %v", r)
			logrus.WithField("staffId", member.ID).Errorf("Recovered from panic during alert delivery: %v", r)
		}
	}()

	deliveryCtx, cancel := context.WithTimeout(ctx, as.config.DeliveryTimeout)
	defer cancel()

	if err := as.mailbox.Deliver(deliveryCtx, alert.From, member, alert.Subject, alert.Body, alert.Priority); err != nil {
		logrus.WithFields(logrus.Fields{
			"eventId": alert.EventID,
			"staffId": member.ID,
		}).WithError(err).Warn("Alert delivery failed")
		return err
	}
	return nil
}

func defaultAlertSubject(priority string) string {
	switch priority {
	case models.AlertPriorityUrgent:
		return "URGENT: Event emergency alert"
	case models.AlertPriorityHigh:
		return "Event emergency alert"
	default:
		return "Event alert"
	}
}
