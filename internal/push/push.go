package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dukerupert/fairshare/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired is returned when the push service no longer knows the
// subscription (404 or 410). The caller should forget it.
var ErrExpired = errors.New("push subscription expired")

// reminderTTL bounds how long a push service holds an undelivered reminder.
// Anything older is superseded by the next reminder for the assignment.
const reminderTTL = 12 * time.Hour

// Payload is the reminder notification the service worker renders.
type Payload struct {
	Kind         model.ReminderType `json:"kind"`
	AssignmentID int64              `json:"assignment_id"`
	TaskName     string             `json:"task_name"`
	Title        string             `json:"title"`
	Body         string             `json:"body"`
	URL          string             `json:"url,omitempty"`
	Tag          string             `json:"tag,omitempty"`
}

// Sender delivers one reminder payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

// Service sends task reminders through Web Push, signed with the
// household server's VAPID key pair.
type Service struct {
	publicKey  string
	privateKey string
	subject    string
}

var _ Sender = (*Service)(nil)

// NewService creates a reminder sender. subject is the contact URI
// (mailto: or https:) push services use to reach the operator.
func NewService(publicKey, privateKey, subject string) *Service {
	if subject == "" {
		subject = "mailto:noreply@fairshare.local"
	}
	return &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    subject,
	}
}

// VAPIDPublicKey returns the key browsers need to subscribe.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send pushes one reminder. Reminders for the same assignment share a
// topic, so a newer one replaces an undelivered older one.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reminder payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subject,
		TTL:             int(reminderTTL.Seconds()),
		Topic:           payload.Tag,
		Urgency:         urgencyFor(payload.Kind),
	})
	if err != nil {
		return fmt.Errorf("send reminder %d: %w", payload.AssignmentID, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp.StatusCode)
}

// urgencyFor lets overdue reminders wake the device; the rest wait for a
// convenient moment.
func urgencyFor(kind model.ReminderType) webpush.Urgency {
	if kind == model.ReminderOverdue {
		return webpush.UrgencyHigh
	}
	return webpush.UrgencyNormal
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusNotFound, code == http.StatusGone:
		return ErrExpired
	case code >= 400:
		return fmt.Errorf("push service returned %d", code)
	default:
		return nil
	}
}

// GenerateVAPIDKeys creates a key pair for FAIRSHARE_VAPID_*.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate VAPID keys: %w", err)
	}
	return publicKey, privateKey, nil
}
