package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"hostel-sync-backend/internal/model"
	"hostel-sync-backend/internal/snapshot"
)

// EventKind classifies a push-worthy change observed during a refresh.
type EventKind string

const (
	EventRoomAvailable   EventKind = "room_available"
	EventNoticePublished EventKind = "notice_published"
)

// Event is a single notification job.
type Event struct {
	Kind EventKind
	ID   string
}

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Event
	store   snapshot.Store
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, store snapshot.Store, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size), // Buffered channel
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case ev := <-wp.jobs:
			log.Printf("Worker %d processing %s %s", id, ev.Kind, ev.ID)
			wp.process(ctx, ev)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(ev Event) {
	wp.jobs <- ev
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

// RoomAvailable queues a push for everyone watching the room. Implements the
// syncer's Notifier contract.
func (wp *WorkerPool) RoomAvailable(roomID string) {
	wp.Dispatch(Event{Kind: EventRoomAvailable, ID: roomID})
}

// NoticePublished queues a push for notice subscribers.
func (wp *WorkerPool) NoticePublished(noticeID string) {
	wp.Dispatch(Event{Kind: EventNoticePublished, ID: noticeID})
}

func (wp *WorkerPool) process(ctx context.Context, ev Event) {
	var (
		subs    []model.PushSubscription
		message string
		err     error
	)

	switch ev.Kind {
	case EventRoomAvailable:
		subs, err = wp.store.SubscriptionsForRoom(ctx, ev.ID)
		if err != nil {
			log.Printf("Error fetching subscriptions for room %s: %v", ev.ID, err)
			return
		}
		label := ev.ID
		if room, roomErr := wp.store.RoomByID(ctx, ev.ID); roomErr == nil {
			label = fmt.Sprintf("%s-%s", room.Block, room.Number)
		}
		message = fmt.Sprintf("Room %s now has a free bed", label)
	case EventNoticePublished:
		subs, err = wp.store.SubscriptionsForNotices(ctx)
		if err != nil {
			log.Printf("Error fetching notice subscriptions: %v", err)
			return
		}
		message = "A new hostel notice was published"
		if notice, noticeErr := wp.store.NoticeByID(ctx, ev.ID); noticeErr == nil {
			message = fmt.Sprintf("New notice: %s", notice.Title)
		}
	default:
		log.Printf("Unknown notification event kind %q", ev.Kind)
		return
	}

	if len(subs) == 0 {
		return
	}
	log.Printf("Sending %d notifications for %s %s", len(subs), ev.Kind, ev.ID)
	for _, sub := range subs {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
