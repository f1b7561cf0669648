// Package shutdown wires OS signals to context cancellation, grounded
// on the teacher's presentation/signals/shutdown package (its Notifier
// interface shape inferred from notifier_test.go/handler_test.go, the
// non-test implementation of which was not present in the retrieved
// pack — see DESIGN.md).
package shutdown

import "os"

// Notifier abstracts os/signal.Notify and Stop so Handler is testable
// without sending real process signals.
type Notifier interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}
