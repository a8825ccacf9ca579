package adapter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/queue/port"
)

// defaultQueues is consumed when ServerConfig.Queues is empty or unparsable.
var defaultQueues = map[string]int{"default": 1, "chat": 1}

func redisOpt(redisURL string) (asynq.RedisConnOpt, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("asynq: redis url is empty")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return opt, nil
}

// AsynqClient enqueues tasks into Redis for the worker pool.
type AsynqClient struct {
	client *asynq.Client
}

var _ port.Client = (*AsynqClient)(nil)

func NewAsynqClient(redisURL string) (*AsynqClient, error) {
	opt, err := redisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	return &AsynqClient{client: asynq.NewClient(opt)}, nil
}

func (a *AsynqClient) Enqueue(ctx context.Context, t port.Task, opts ...port.EnqueueOption) (string, error) {
	if t.Type == "" {
		return "", errors.New("asynq: task type is required")
	}
	info, err := a.client.EnqueueContext(ctx, asynq.NewTask(t.Type, t.Payload), enqueueOptions(opts)...)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (a *AsynqClient) Close() error {
	return a.client.Close()
}

// enqueueOptions folds opts into asynq options; later values win.
func enqueueOptions(opts []port.EnqueueOption) []asynq.Option {
	var queue string
	var retry int
	for _, op := range opts {
		if op.Queue != "" {
			queue = op.Queue
		}
		if op.MaxRetry > 0 {
			retry = op.MaxRetry
		}
	}
	var out []asynq.Option
	if queue != "" {
		out = append(out, asynq.Queue(queue))
	}
	if retry > 0 {
		out = append(out, asynq.MaxRetry(retry))
	}
	return out
}

// ServerConfig tunes the worker pool. Queues is a weight list such as
// "critical=6,default=3,low=1".
type ServerConfig struct {
	RedisURL    string
	Concurrency int
	Queues      string
}

// AsynqServer runs the registered task handlers against Redis.
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

var _ port.Server = (*AsynqServer)(nil)

// NewAsynqServer builds the worker pool. Failed attempts are logged; asynq
// owns the retry schedule.
func NewAsynqServer(cfg ServerConfig, log zerolog.Logger) (*AsynqServer, error) {
	opt, err := redisOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	queues := parseQueueWeights(cfg.Queues)
	if len(queues) == 0 {
		queues = defaultQueues
	}

	log = log.With().Str("component", "worker").Logger()
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			log.Warn().Err(err).Str("task", task.Type()).Int("retried", retried).Msg("task failed")
		}),
	})
	return &AsynqServer{server: srv, mux: asynq.NewServeMux()}, nil
}

func (s *AsynqServer) Register(taskType string, h port.Handler) {
	s.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return h(ctx, port.Task{Type: t.Type(), Payload: t.Payload()})
	})
}

// Run starts the workers and blocks until ctx is done, then waits for
// in-flight tasks before returning.
func (s *AsynqServer) Run(ctx context.Context) error {
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	s.server.Shutdown()
	return nil
}

// parseQueueWeights reads "name=weight" pairs. A missing or non-positive
// weight counts as 1; empty names are skipped.
func parseQueueWeights(s string) map[string]int {
	res := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		name, weight, _ := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		w, err := strconv.Atoi(strings.TrimSpace(weight))
		if err != nil || w <= 0 {
			w = 1
		}
		res[name] = w
	}
	return res
}
