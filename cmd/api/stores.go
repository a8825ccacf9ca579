package main

import (
	"context"
	"fmt"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/config"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/database"
	chatstore "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/adapter"
	chatport "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
	userstore "github.com/LingwalAnkit/NavShiksha-Chat/internal/repository/adapter"
	userport "github.com/LingwalAnkit/NavShiksha-Chat/internal/repository/port"

	"github.com/rs/zerolog"
)

type stores struct {
	chat  chatport.ChatRepository
	users userport.UserRepository
	close func()
}

// openStores picks Postgres, SQLite or memory from the configuration and
// brings the schema up to date.
func openStores(ctx context.Context, cfg config.Config, log zerolog.Logger) (stores, error) {
	switch cfg.Store() {
	case config.StorePostgres:
		pool, err := database.OpenPostgres(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return stores{}, err
		}
		log.Info().Msg("using postgres store")
		return stores{
			chat:  chatstore.NewPgChatRepository(pool),
			users: userstore.NewPgUserRepository(pool),
			close: pool.Close,
		}, nil

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return stores{}, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite store")
		repo := chatstore.NewSqliteChatRepository(db)
		return stores{chat: repo, users: repo, close: func() { _ = db.Close() }}, nil

	default:
		log.Warn().Msg("no DB_URL or SQLITE_PATH, using in-memory store")
		repo := chatstore.NewMemoryChatRepository()
		return stores{chat: repo, users: repo, close: func() {}}, nil
	}
}
