package port

import "context"

// Task is one background job. Payload encoding belongs to whoever registers
// the handler for Type.
type Task struct {
	Type    string
	Payload []byte
}

// Handler runs a task. A non-nil error schedules a retry unless the adapter
// is told otherwise; handlers may run more than once for the same task.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption selects the queue and retry budget. Zero values use the
// adapter defaults.
type EnqueueOption struct {
	Queue    string
	MaxRetry int
}

type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server dispatches tasks to registered handlers. Run blocks until ctx is
// done and then drains in-flight work.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
}
