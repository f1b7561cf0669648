package shutdown

import (
	"os"
	"os/signal"
)

// osNotifier is the production Notifier backed by os/signal.
type osNotifier struct{}

// NewOSNotifier returns the production Notifier.
func NewOSNotifier() Notifier {
	return osNotifier{}
}

func (osNotifier) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (osNotifier) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}
