package login

import (
	"context"
	"fmt"
	"time"

	"github.com/tendant/loginapp/pkg/queue"
)

// StatsRecorder persists the time and address of a successful login.
type StatsRecorder interface {
	RecordLogin(ctx context.Context, id string, at time.Time, ip string) error
}

// StatsWriter records login stats on a deferred queue. Record never blocks
// and never reports the write's outcome to the caller.
type StatsWriter struct {
	queue    *queue.Queue
	recorder StatsRecorder
}

func NewStatsWriter(q *queue.Queue, recorder StatsRecorder) *StatsWriter {
	return &StatsWriter{queue: q, recorder: recorder}
}

// Record schedules the write. It reports false if the queue is shut down.
func (w *StatsWriter) Record(id string, at time.Time, ip string) bool {
	return w.queue.Enqueue(queue.Task{
		Name: fmt.Sprintf("login-stats:%s", id),
		Run: func(ctx context.Context) error {
			return w.recorder.RecordLogin(ctx, id, at, ip)
		},
	})
}
