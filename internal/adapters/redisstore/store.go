// Package redisstore keeps session credentials in Redis so several dashboard
// instances behind a load balancer share logins.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/csg33k/visits-dashboard/internal/ports"
)

// KeyPrefix namespaces credential keys:
//
//	SET dashboard:session:<id>  <authorization>  EX <ttl>
const KeyPrefix = "dashboard:session:"

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.CredentialStore = (*Store)(nil)

// New connects to Redis and pings it once.
func New(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &Store{client: client, ttl: opts.TTL}, nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (string, error) {
	v, err := s.client.Get(ctx, KeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ports.ErrNoCredentials
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *Store) Put(ctx context.Context, sessionID, authorization string) error {
	if err := s.client.Set(ctx, KeyPrefix+sessionID, authorization, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, KeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }
