// Package storage opens the repositories of the configured backend.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/villagegrid/outage-alerts/internal/core/ports"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/config"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/db/memory"
	mongodb "github.com/villagegrid/outage-alerts/internal/infrastructure/db/mongo"
	redisdb "github.com/villagegrid/outage-alerts/internal/infrastructure/db/redis"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe names a dependency for readiness reporting.
type Probe struct {
	Name   string
	Pinger Pinger
}

// Storage bundles the repositories of one backend.
type Storage struct {
	Users       ports.UserRepository
	Villages    ports.VillageRepository
	Outages     ports.OutageRepository
	Sessions    ports.SessionStore
	Idempotency ports.IdempotencyStore
	Deliveries  ports.DeliveryRecorder
	Probes      []Probe

	close func(context.Context)
}

// Close releases backend connections.
func (s *Storage) Close(ctx context.Context) {
	if s.close != nil {
		s.close(ctx)
	}
}

// Open connects the backend selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	switch cfg.StorageBackend {
	case BackendMemory:
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		return Memory(), nil
	case BackendMongo:
		return openMongoRedis(ctx, cfg, log)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// Memory returns a fresh in-process backend.
func Memory() *Storage {
	return &Storage{
		Users:       memory.NewUserStore(),
		Villages:    memory.NewVillageStore(),
		Outages:     memory.NewOutageStore(),
		Sessions:    memory.NewSessionStore(),
		Idempotency: memory.NewIdempotencyStore(),
		Deliveries:  memory.NewDeliveryLog(),
	}
}

func openMongoRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	return &Storage{
		Users:       mongodb.NewUserRepository(db),
		Villages:    mongodb.NewVillageRepository(db),
		Outages:     mongodb.NewOutageRepository(db),
		Sessions:    redisdb.NewSessionStore(rdb),
		Idempotency: redisdb.NewIdempotencyStore(rdb),
		Deliveries:  mongodb.NewDeliveryRepository(db),
		Probes: []Probe{
			{Name: "mongodb", Pinger: mongodb.Pinger{Client: client}},
			{Name: "redis", Pinger: redisdb.Pinger{Client: rdb}},
		},
		close: func(ctx context.Context) {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close")
			}
			if err := client.Disconnect(ctx); err != nil {
				log.Warn().Err(err).Msg("mongodb disconnect")
			}
		},
	}, nil
}
