package redis

import (
	"context"
	"time"

	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
	goredis "github.com/redis/go-redis/v9"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Metrics interface {
		Observe(operation string, network model.Network, err error, started time.Time)
	}
	// Client is the part of *redis.Client the store relies on.
	Client interface {
		Get(ctx context.Context, key string) *goredis.StringCmd
		HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
		Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
	}
)
