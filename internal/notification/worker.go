package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"sorti-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans fill alerts out to push subscribers. The ingest
// path dispatches a bin id whenever an accepted event pushes the bin
// past the alert threshold; workers look up the subscriptions and
// send.
type WorkerPool struct {
	size    int
	jobs    chan string
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// SetSender swaps the Sender; used by tests.
func (wp *WorkerPool) SetSender(s Sender) {
	wp.sender = s
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Alert worker %d started", id)
	for {
		select {
		case binID := <-wp.jobs:
			wp.sendAlertsForBin(ctx, binID)
		case <-ctx.Done():
			log.Printf("Alert worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a fill alert for a bin. Alerts are best-effort:
// when every worker is busy and the queue is full, the alert is
// dropped rather than stalling the ingest path.
func (wp *WorkerPool) Dispatch(binID string) {
	select {
	case wp.jobs <- binID:
	default:
		log.Printf("Alert queue full, dropping alert for bin %s", binID)
	}
}

// sendAlertsForBin fetches subscriptions for a bin and notifies them.
func (wp *WorkerPool) sendAlertsForBin(ctx context.Context, binID string) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_bin_mapping sbm ON sbm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sbm.bin_bin_id = ?", binID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for bin %s: %v", binID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	var bin model.Bin
	message := fmt.Sprintf("Bin %s is nearly full", binID)
	if err := wp.db.WithContext(ctx).First(&bin, "bin_id = ?", binID).Error; err != nil {
		log.Printf("Error fetching bin %s: %v", binID, err)
	} else {
		message = fmt.Sprintf("Bin %s is %.0f%% full", binID, bin.FillPercent())
	}

	log.Printf("Sending %d fill alerts for bin %s", len(subscriptions), binID)
	for _, sub := range subscriptions {
		wp.sendAlert(ctx, sub, []byte(message))
	}
}

// sendAlert sends a single web push notification.
func (wp *WorkerPool) sendAlert(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending alert to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions.
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
