package email

import (
	"context"

	"github.com/kmateo04/travelmarket/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender turns request events into customer/business notifications.
// Delivery is a log line for now; a real mail gateway slots in behind
// the same Send signature.
type Sender struct {
	logger *logrus.Logger
}

func NewSender(logger *logrus.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.RequestEvent) error {
	s.logger.WithFields(logrus.Fields{
		"type":        event.Type,
		"request_id":  event.RequestID,
		"schedule_id": event.ScheduleID,
		"customer_id": event.CustomerID,
		"business_id": event.BusinessID,
		"status":      event.Status,
	}).Info("sending booking notification")
	return nil
}
