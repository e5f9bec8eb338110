// internal/notify/notifier.go

// Package notify reports harvest run outcomes to operators over email
// and SMS. Notification failures never fail a run; they are logged and
// surfaced as a single notification error.
package notify

import (
	"context"
	"fmt"
	"time"

	"resto-harvester/internal/common/config"
	"resto-harvester/internal/common/errors"
	"resto-harvester/internal/common/logger"
)

// EmailSender sends one plain-text email.
type EmailSender interface {
	SendText(ctx context.Context, from string, to []string, subject, body string) error
}

// SMSSender sends one text message.
type SMSSender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// RunSummary is the outcome of one harvest run for one location.
type RunSummary struct {
	Location          string
	Businesses        int
	ReviewsHarvested  int
	RangesOutstanding int
	MenusHarvested    int
	Failures          int
	Duration          time.Duration
}

// Notifier fans a run summary out to every configured channel.
type Notifier struct {
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
	cfg    config.NotificationConfig
}

func NewNotifier(email EmailSender, sms SMSSender, log logger.Logger, cfg config.NotificationConfig) *Notifier {
	return &Notifier{email: email, sms: sms, logger: log, cfg: cfg}
}

// NotifyRunComplete sends the summary to every enabled channel. All
// channels are attempted; the first failure is returned after the
// rest have run.
func (n *Notifier) NotifyRunComplete(ctx context.Context, summary RunSummary) error {
	var firstErr error

	if n.cfg.Email.Enabled && n.email != nil {
		subject := fmt.Sprintf("Harvest run finished: %s", summary.Location)
		if err := n.email.SendText(ctx, n.cfg.Email.FromEmail, n.cfg.Email.ToEmails, subject, n.body(summary)); err != nil {
			n.logger.Error("Run summary email failed", map[string]interface{}{
				"location": summary.Location,
				"error":    err.Error(),
			})
			firstErr = errors.NewNotificationSendFailedError("email", err)
		}
	}

	if n.cfg.SMS.Enabled && n.sms != nil {
		message := n.shortBody(summary)
		for _, phoneNumber := range n.cfg.SMS.PhoneNumbers {
			if err := n.sms.SendSMS(ctx, phoneNumber, message); err != nil {
				n.logger.Error("Run summary SMS failed", map[string]interface{}{
					"location":    summary.Location,
					"phoneNumber": phoneNumber,
					"error":       err.Error(),
				})
				if firstErr == nil {
					firstErr = errors.NewNotificationSendFailedError("sms", err)
				}
			}
		}
	}

	return firstErr
}

func (n *Notifier) body(summary RunSummary) string {
	return fmt.Sprintf(
		"Location: %s\n"+
			"Businesses processed: %d\n"+
			"Reviews harvested: %d\n"+
			"Ranges still outstanding: %d\n"+
			"Menus harvested: %d\n"+
			"Failures: %d\n"+
			"Duration: %s\n",
		summary.Location,
		summary.Businesses,
		summary.ReviewsHarvested,
		summary.RangesOutstanding,
		summary.MenusHarvested,
		summary.Failures,
		summary.Duration.Round(time.Second))
}

func (n *Notifier) shortBody(summary RunSummary) string {
	return fmt.Sprintf("Harvest %s: %d reviews, %d outstanding ranges, %d failures",
		summary.Location, summary.ReviewsHarvested, summary.RangesOutstanding, summary.Failures)
}
