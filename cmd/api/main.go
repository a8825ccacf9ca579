package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "github.com/LingwalAnkit/NavShiksha-Chat/cmd/api/router/v1"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/config"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/auth"
	busadapter "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/bus/adapter"
	busport "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/bus/port"
	cacheadapter "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/cache/adapter"
	cacheport "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/cache/port"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/logging"
	queueadapter "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/queue/adapter"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/realtime"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/task"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"
	httpHandler "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/presentation/http"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/presence"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.EnvFileErr != nil {
		log.Warn().Err(cfg.EnvFileErr).Msg(".env file not found or could not be loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	// Connect to the database on startup
	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := openStores(startCtx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	var (
		bus     busport.Bus
		cache   cacheport.Cache
		rdb     *redis.Client
		workers *queueadapter.AsynqServer
		queue   *queueadapter.AsynqClient
	)
	if cfg.RedisURL != "" {
		rdb, err = cacheadapter.Dial(startCtx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		bus = busadapter.NewRedisBus(rdb, log)
		cache = cacheadapter.NewRedisCache(rdb, "chat:cache:")
		if queue, err = queueadapter.NewAsynqClient(cfg.RedisURL); err != nil {
			return err
		}
		defer queue.Close()
		workers, err = queueadapter.NewAsynqServer(queueadapter.ServerConfig{
			RedisURL:    cfg.RedisURL,
			Concurrency: cfg.AsynqConcurrency,
			Queues:      cfg.AsynqQueues,
		}, log)
		if err != nil {
			return err
		}
		log.Info().Msg("redis bus, cache and task queue enabled")
	} else {
		bus = busadapter.NewMemoryBus(log)
		cache = cacheadapter.NewMemoryCache()
		log.Warn().Msg("no REDIS_URL, realtime events stay on this node")
	}
	defer bus.Close()

	events := usecase.NewEmitter(bus, log)
	users := usecase.NewUserDirectory(st.users, cache, cfg.UserCacheTTL, log)

	var lastSeen usecase.LastSeenRecorder = usecase.NewRecordLastSeenUseCase(users)
	if queue != nil {
		lastSeen = task.NewQueuedLastSeen(queue, lastSeen, log)
	}

	tracker := presence.NewInProcess(events, usecase.NewListConversationsUseCase(st.chat, nil, cfg.ReadRetries), presence.Options{
		Timeout:       cfg.PresenceTimeout,
		SweepInterval: cfg.PresenceSweepInterval,
		SyncInterval:  cfg.PresenceSyncInterval,
		OnOffline: func(ctx context.Context, userID string, at time.Time) {
			if err := lastSeen.RecordLastSeen(ctx, userID, at); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("record last seen")
			}
		},
	}, log)

	rt := realtime.NewRouter(bus, log)
	defer rt.Close()

	services := httpHandler.Services{
		Verifier: auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Realtime: rt,
		Presence: tracker,
		Log:      log,

		FindOrCreateDirect: usecase.NewFindOrCreateDirectUseCase(st.chat, users, events, tracker, cfg.ReadRetries),
		CreateGroup:        usecase.NewCreateGroupUseCase(st.chat, users, events, tracker),
		ListConversations:  usecase.NewListConversationsUseCase(st.chat, tracker, cfg.ReadRetries),
		GetConversation:    usecase.NewGetConversationUseCase(st.chat, tracker, cfg.ReadRetries),
		DeleteConversation: usecase.NewDeleteConversationUseCase(st.chat, events, tracker, cfg.ReadRetries),
		SendMessage:        usecase.NewSendMessageUseCase(st.chat, events, cfg.ReadRetries),
		ListMessages:       usecase.NewListMessagesUseCase(st.chat, cfg.MessagePageSize, cfg.MessagePageMax, cfg.ReadRetries),
		MarkSeen:           usecase.NewMarkSeenUseCase(st.chat, events, cfg.ReadRetries),
		ListUsers:          usecase.NewListUsersUseCase(users, tracker, cfg.ReadRetries),
		JoinChannel:        usecase.NewJoinChannelUseCase(st.chat, cfg.ReadRetries),
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger(log))
	v1.RegisterRoutes(r, services)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 2)
	go tracker.Run(ctx)
	if workers != nil {
		task.RegisterLastSeenTask(workers, usecase.NewRecordLastSeenUseCase(users))
		task.RegisterSyncUserTask(workers, usecase.NewSyncUserUseCase(users))
		go func() { errc <- workers.Run(ctx) }()
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", string(cfg.Store())).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			return err
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancelShutdown()
	// Hijacked websocket connections are not tracked by Shutdown; rt.Close
	// (deferred) ends them.
	return srv.Shutdown(shutdownCtx)
}
