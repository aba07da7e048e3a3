// Package authstore assembles a configured OAuth2 authorization-record
// store: the record codec and store logic from the store package wired to a
// MongoDB, Redis or in-memory backend and a registered client catalog.
package authstore

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"go.pilab.hu/authstore/cache"
	"go.pilab.hu/authstore/config"
	"go.pilab.hu/authstore/domain"
	"go.pilab.hu/authstore/inmem"
	"go.pilab.hu/authstore/mongodb"
	redisrepo "go.pilab.hu/authstore/redis"
	"go.pilab.hu/authstore/store"
)

// Provider owns the backend connections behind an AuthorizationStore and the
// client catalog it resolves against.
type Provider struct {
	Store   *store.AuthorizationStore
	Clients domain.RegisteredClientRepository

	mongoClient *mongo.Client
	redisClient *goredis.Client
	clientCache *cache.ClientRepository
}

// NewProvider wires the record repository and client catalog selected by the
// configuration into an AuthorizationStore. The redis backend keeps its
// records in Redis while the client catalog stays in MongoDB; the memory
// backend needs no external services at all.
func NewProvider(ctx context.Context, cfg *config.StoreConfig) (*Provider, error) {
	p := &Provider{}

	var records domain.AuthorizationRecordRepository
	var clients domain.RegisteredClientRepository

	switch cfg.Backend {
	case config.BackendMongoDB, config.BackendRedis:
		mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		p.mongoClient = mongoClient
		db := mongoClient.Database(cfg.MongoDBName)

		clientRepo, err := mongodb.NewClientRepository(ctx, db)
		if err != nil {
			p.Close(ctx)
			return nil, err
		}
		clients = clientRepo

		if cfg.Backend == config.BackendRedis {
			p.redisClient = goredis.NewClient(&goredis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			records = redisrepo.NewAuthorizationRepository(p.redisClient, cfg.RedisKeyPrefix)
		} else {
			recordRepo, err := mongodb.NewAuthorizationRepository(ctx, db)
			if err != nil {
				p.Close(ctx)
				return nil, err
			}
			records = recordRepo
		}

	case config.BackendMemory:
		records = inmem.NewAuthorizationRecordStore()
		clients = inmem.NewRegisteredClientStore()

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.ClientCacheTTLSec > 0 {
		p.clientCache = cache.NewClientRepository(clients, time.Duration(cfg.ClientCacheTTLSec)*time.Second)
		clients = p.clientCache
	}

	p.Clients = clients
	p.Store = store.NewAuthorizationStore(records, clients)

	log.Info().Str("backend", cfg.Backend).Msg("Authorization store initialized")
	return p, nil
}

// Close releases the backend connections. Safe to call on a partially
// constructed provider.
func (p *Provider) Close(ctx context.Context) {
	if p.clientCache != nil {
		p.clientCache.Stop()
	}
	if p.redisClient != nil {
		if err := p.redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis client")
		}
	}
	if p.mongoClient != nil {
		if err := p.mongoClient.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("Error closing MongoDB connection")
		}
	}
}
