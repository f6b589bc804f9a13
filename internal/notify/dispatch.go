package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/swimcast/swimcast/internal/models"
)

// ErrSubscriptionGone signals the push service no longer knows the
// identity; the caller should prune the subscription.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Dispatcher delivers a notification to one subscriber. Implementations
// share the message shape: {title, body, icon, badge}.
type Dispatcher interface {
	Dispatch(ctx context.Context, id models.PushIdentity, n models.Notification) error
}

// WebPushDispatcher delivers via VAPID-signed Web Push with the
// JSON-serialized notification as payload.
type WebPushDispatcher struct {
	vapidPublicKey  string
	vapidPrivateKey string
	subscriber      string
	ttl             int
}

// NewWebPushDispatcher creates a dispatcher. subscriber is the VAPID
// contact (mailto: or https: URL).
func NewWebPushDispatcher(vapidPublicKey, vapidPrivateKey, subscriber string) (*WebPushDispatcher, error) {
	if vapidPublicKey == "" || vapidPrivateKey == "" {
		return nil, fmt.Errorf("web push: VAPID key pair is required")
	}
	return &WebPushDispatcher{
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		subscriber:      subscriber,
		ttl:             12 * 60 * 60,
	}, nil
}

// Dispatch sends the notification. 404/410 from the push service map to
// ErrSubscriptionGone.
func (d *WebPushDispatcher) Dispatch(ctx context.Context, id models.PushIdentity, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	sub := &webpush.Subscription{
		Endpoint: id.Endpoint,
		Keys: webpush.Keys{
			P256dh: id.Keys.P256dh,
			Auth:   id.Keys.Auth,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		Subscriber:      d.subscriber,
		VAPIDPublicKey:  d.vapidPublicKey,
		VAPIDPrivateKey: d.vapidPrivateKey,
		TTL:             d.ttl,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: HTTP %d", ErrSubscriptionGone, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("push rejected: HTTP %d", resp.StatusCode)
	}
	return nil
}

// DisplayDispatcher is the in-process display call used by the local
// agent: the notification surfaces as a structured log line.
type DisplayDispatcher struct {
	logger *zap.Logger
}

func NewDisplayDispatcher(logger *zap.Logger) *DisplayDispatcher {
	return &DisplayDispatcher{logger: logger}
}

func (d *DisplayDispatcher) Dispatch(ctx context.Context, _ models.PushIdentity, n models.Notification) error {
	d.logger.Info("notification",
		zap.String("title", n.Title),
		zap.String("body", n.Body))
	return nil
}
