package shutdown

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type mockNotifier struct {
	notifyCalled int32
	stopCalled   int32
	notifyChan   chan<- os.Signal
}

func (m *mockNotifier) Notify(c chan<- os.Signal, sig ...os.Signal) {
	atomic.AddInt32(&m.notifyCalled, 1)
	m.notifyChan = c
}

func (m *mockNotifier) Stop(c chan<- os.Signal) {
	atomic.AddInt32(&m.stopCalled, 1)
}

func TestHandler_Handle_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		trigger func(notifier *mockNotifier, baseCancel context.CancelFunc)
	}{
		{
			name: "signal cancels context",
			trigger: func(notifier *mockNotifier, _ context.CancelFunc) {
				notifier.notifyChan <- os.Interrupt
			},
		},
		{
			name: "SIGTERM cancels context",
			trigger: func(notifier *mockNotifier, _ context.CancelFunc) {
				notifier.notifyChan <- syscall.SIGTERM
			},
		},
		{
			name: "parent cancellation also ends the goroutine",
			trigger: func(_ *mockNotifier, baseCancel context.CancelFunc) {
				baseCancel()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &mockNotifier{}
			h := NewHandler(notifier)

			parent, baseCancel := context.WithCancel(context.Background())
			defer baseCancel()

			ctx, stop := h.Handle(parent)
			defer stop()

			if atomic.LoadInt32(&notifier.notifyCalled) != 1 {
				t.Fatalf("Notify called %d times, want 1", notifier.notifyCalled)
			}

			tt.trigger(notifier, baseCancel)

			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
				t.Fatal("context was not cancelled")
			}
		})
	}
}

func TestHandler_Stop_CallsNotifierStop(t *testing.T) {
	notifier := &mockNotifier{}
	h := NewHandler(notifier)

	_, stop := h.Handle(context.Background())
	stop()

	if atomic.LoadInt32(&notifier.stopCalled) != 1 {
		t.Fatalf("Stop called %d times, want 1", notifier.stopCalled)
	}
}
