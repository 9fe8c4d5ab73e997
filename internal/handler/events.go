package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/model"
)

const (
	// eventBuffer bounds the events queued for one slow subscriber.
	eventBuffer = 32

	keepAliveInterval = 30 * time.Second
)

type serverEvent struct {
	name string
	data any
}

// lockEvent reports a custom design lock transition.
type lockEvent struct {
	ProductID string `json:"product_id"`
	Locked    bool   `json:"locked"`
}

// handleEvents streams cart and lock changes as server-sent events.
// The first event is the current cart.
// GET /events
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	events := make(chan serverEvent, eventBuffer)
	publish := func(e serverEvent) {
		select {
		case events <- e:
		default:
			h.logger.Warn("event subscriber lagging, dropping event", slog.String("event", e.name))
		}
	}

	unsubscribeCart := h.cart.OnCartChanged(func(p model.Projection) {
		publish(serverEvent{name: "cart", data: h.newCartResponse(p)})
	})
	defer unsubscribeCart()
	unsubscribeLocks := h.locks.OnLockChanged(func(productID string, locked bool) {
		publish(serverEvent{name: "lock", data: lockEvent{ProductID: productID, Locked: locked}})
	})
	defer unsubscribeLocks()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, rc, serverEvent{name: "cart", data: h.newCartResponse(h.cart.Projection())}); err != nil {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := writeEvent(w, rc, e); err != nil {
				h.logger.Debug("event stream closed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// writeEvent writes one event in text/event-stream framing and flushes it.
func writeEvent(w http.ResponseWriter, rc *http.ResponseController, e serverEvent) error {
	data, err := json.Marshal(e.data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", e.name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, data); err != nil {
		return err
	}
	return rc.Flush()
}
