package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iho/campuswallet/internal/adapter/http/dto"
	"github.com/iho/campuswallet/internal/domain"
	"github.com/iho/campuswallet/internal/infrastructure/notify"
)

const defaultHeartbeat = 25 * time.Second

// Subscriber registers connected recipients.
type Subscriber interface {
	Register(externalID string) *notify.Subscription
	Unregister(sub *notify.Subscription)
}

// NotificationHandler streams completion events to the caller as server-sent events.
type NotificationHandler struct {
	hub       Subscriber
	heartbeat time.Duration
}

// NewNotificationHandler creates a new NotificationHandler. A non-positive
// heartbeat uses the default.
func NewNotificationHandler(hub Subscriber, heartbeat time.Duration) *NotificationHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &NotificationHandler{hub: hub, heartbeat: heartbeat}
}

// NotificationEvent is the payload of one "transaction" event.
type NotificationEvent struct {
	CreatedAt     time.Time `json:"created_at"`
	BatchID       *string   `json:"batch_id,omitempty"`
	TransactionID string    `json:"transaction_id"`
	Type          string    `json:"type"`
	SenderName    string    `json:"sender_name"`
	SenderID      string    `json:"sender_id"`
	Amount        string    `json:"amount"`
	Note          string    `json:"note,omitempty"`
}

func notificationFromEvent(ev domain.TransactionEvent) NotificationEvent {
	return NotificationEvent{
		CreatedAt:     ev.CreatedAt,
		BatchID:       ev.BatchID,
		TransactionID: ev.TransactionID,
		Type:          string(ev.Type),
		SenderName:    ev.SenderName,
		SenderID:      ev.SenderExternalID,
		Amount:        dto.Money(ev.Amount),
		Note:          ev.Note,
	}
}

// Stream holds the connection open until the client leaves or a newer
// connection for the same account replaces it.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		log.Warn().Err(err).Msg("notification stream cannot flush")
		return
	}

	sub := h.hub.Register(p.ExternalID)
	defer h.hub.Unregister(sub)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	_ = rc.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			data, err := json.Marshal(notificationFromEvent(ev))
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: transaction\ndata: %s\n\n", ev.TransactionID, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
