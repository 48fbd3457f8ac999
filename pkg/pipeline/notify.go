package pipeline

import (
	"context"
	"fmt"
)

// Notifier is the progress/result channel toward the requester.
type Notifier interface {
	// Update replaces the job's status line.
	Update(ctx context.Context, status string) error
	// Finish publishes the terminal textual summary.
	Finish(ctx context.Context, summary string) error
	// Dismiss removes the status line once the result was delivered elsewhere.
	Dismiss(ctx context.Context) error
}

// tryNotifier never lets a notification failure, or panic, reach the job.
type tryNotifier struct {
	notifier Notifier
	logger   Logger
}

func (t tryNotifier) update(ctx context.Context, status string) {
	t.try("update", func() error { return t.notifier.Update(ctx, status) })
}

func (t tryNotifier) finish(ctx context.Context, summary string) {
	t.try("finish", func() error { return t.notifier.Finish(ctx, summary) })
}

func (t tryNotifier) dismiss(ctx context.Context) {
	t.try("dismiss", func() error { return t.notifier.Dismiss(ctx) })
}

func (t tryNotifier) try(op string, fn func() error) {
	if t.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("Notifier panicked", String("op", op), String("panic", fmt.Sprint(r)))
		}
	}()
	if err := fn(); err != nil {
		t.logger.Warn("Failed to notify requester", String("op", op), Error(err))
	}
}
