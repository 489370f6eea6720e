package dbstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"LoaDamageMeter/internal/encounter"
)

// schema 遭遇战归档表；data为完整会话JSON
const schema = `
CREATE TABLE IF NOT EXISTS encounters (
    id          TEXT PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    boss        TEXT NOT NULL DEFAULT '',
    duration_ms BIGINT NOT NULL DEFAULT 0,
    data        JSONB NOT NULL
)`

// Store PostgreSQL遭遇战归档（可选，配置了DSN才启用）
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// Connect 建立连接池并确保归档表存在
func Connect(ctx context.Context, dsn string, log zerolog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config failed: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema failed: %w", err)
	}

	log.Info().Msg("encounter database connected")
	return &Store{pool: pool, log: log}, nil
}

// Save 写入一份结算会话
func (s *Store) Save(ctx context.Context, session *encounter.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}

	bossName := ""
	if boss := encounter.CurrentBoss(session.Entities); boss != nil {
		bossName = boss.Name
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO encounters (id, boss, duration_ms, data)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (id) DO NOTHING`,
		session.ID, bossName, session.LastPacket-session.FirstPacket, data)
	if err != nil {
		return fmt.Errorf("insert encounter failed: %w", err)
	}
	return nil
}

// Close 关闭连接池
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
