package notification

import (
	"context"
	"log/slog"
)

// Worker consumes queued email jobs and hands them to the sender. Delivery
// failures are logged and dropped; they never reach the lifecycle operation
// that enqueued the job.
type Worker struct {
	sender EmailSender
	inbox  <-chan EmailJob
	logger *slog.Logger
}

func NewWorker(sender EmailSender, inbox <-chan EmailJob, logger *slog.Logger) *Worker {
	return &Worker{sender: sender, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-w.inbox:
			if err := w.sender.Send(ctx, job.Recipients, job.Subject, job.Body); err != nil {
				w.logger.Error("email delivery failed",
					"subject", job.Subject,
					"recipients", len(job.Recipients),
					"error", err)
			}
		}
	}
}
