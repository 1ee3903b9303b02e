package notify

import "context"

// Notifier delivers a rendered notification. Implementations are best-effort
// sinks: the monitor never fails a check over a delivery error.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans one notification out to several sinks, reporting the first
// delivery error after trying all of them.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, title, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
