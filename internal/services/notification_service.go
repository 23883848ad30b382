package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"poholowani/internal/domain/entities"
	"poholowani/internal/geo"
	"poholowani/internal/notify"
)

// NotificationService turns marketplace events into operator alerts. Alerts
// are delivered in the background with their own timeout so a slow webhook
// never delays the request that triggered it.
type NotificationService struct {
	notifier notify.Notifier
	timeout  time.Duration
}

func NewNotificationService(notifier notify.Notifier) *NotificationService {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &NotificationService{notifier: notifier, timeout: 10 * time.Second}
}

// NotifyUrgentRequest announces a new call for help together with the
// providers found near it.
func (s *NotificationService) NotifyUrgentRequest(req *entities.UrgentRequest, nearby []geo.Hit[entities.Profile]) {
	alert := notify.Alert{
		Title: fmt.Sprintf("Urgent request: %s near %s", req.VehicleType, req.OriginLabel),
		Body:  req.Problem,
		Fields: []notify.Field{
			{Name: "Location", Value: fmt.Sprintf("%.4f, %.4f", req.OriginLat, req.OriginLng)},
			{Name: "Providers nearby", Value: fmt.Sprintf("%d", len(nearby))},
		},
	}
	if req.DestinationLabel != nil {
		alert.Fields = append(alert.Fields, notify.Field{Name: "Destination", Value: *req.DestinationLabel})
	}
	if req.Phone != nil && req.PhoneConsent {
		alert.Fields = append(alert.Fields, notify.Field{Name: "Phone", Value: *req.Phone})
	}
	s.send(alert)
}

// NotifyCleanupFailed reports a failed scheduled cleanup.
func (s *NotificationService) NotifyCleanupFailed(err error) {
	s.send(notify.Alert{Title: "Route cleanup failed", Body: err.Error()})
}

func (s *NotificationService) send(alert notify.Alert) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, alert); err != nil {
			log.Printf("[NOTIFICATION] %q not delivered: %v", alert.Title, err)
		}
	}()
}
