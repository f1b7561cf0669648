package shutdown

import (
	"context"
	"os"
	"syscall"
)

// Handler cancels a context the first time SIGINT or SIGTERM arrives.
type Handler struct {
	notifier Notifier
}

// NewHandler constructs a Handler around the given Notifier.
func NewHandler(notifier Notifier) *Handler {
	return &Handler{notifier: notifier}
}

// Handle returns a context derived from parent that is cancelled when a
// shutdown signal arrives, and a stop function the caller should defer
// to release the signal channel.
func (h *Handler) Handle(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	h.notifier.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	stop := func() {
		h.notifier.Stop(ch)
		cancel()
	}
	return ctx, stop
}
