package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodnatureofminers/stealthwatch-backend/internal/metrics"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/keystore"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/notify"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/repository/clickhouse"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/repository/redis"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/service/scanner"
	"go.uber.org/zap"
)

type owner struct {
	name string
	keys []model.StealthKeys
}

// loadOwners decrypts every keystore and groups key sets by owner, keeping
// the order in which owners first appear.
func loadOwners(paths []string, configured string, network model.Network) ([]owner, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no keystores configured for %s", network)
	}
	password, err := keystore.ResolvePassword(configured, false)
	if err != nil {
		return nil, err
	}
	defer clear(password)

	index := make(map[string]int)
	owners := make([]owner, 0, len(paths))
	for _, path := range paths {
		file, keys, err := keystore.Load(path, password)
		if err != nil {
			return nil, err
		}
		i, ok := index[file.Owner]
		if !ok {
			i = len(owners)
			index[file.Owner] = i
			owners = append(owners, owner{name: file.Owner})
		}
		owners[i].keys = append(owners[i].keys, keys)
	}
	return owners, nil
}

func newStore(ctx context.Context, cfg config) (scanner.Store, func() error, error) {
	switch cfg.Store {
	case "redis":
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("init redis: %w", err)
		}
		return redis.NewStore(client, metrics.NewRedisRepository()), client.Close, nil
	case "clickhouse", "":
		if cfg.ClickhouseDSN == "" {
			return nil, nil, errors.New("ClickHouse DSN is required for the clickhouse store")
		}
		repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return nil, nil, fmt.Errorf("init repository: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func newNotifier(cfg config, ownerName string, logger *zap.Logger) (scanner.Notifier, error) {
	notifiers := notify.Fanout{
		notify.NewLog(logger.With(zap.String("owner", ownerName)), metrics.NewNotifier("log")),
	}
	if cfg.SMTPAddr == "" {
		return notifiers, nil
	}

	mailer, err := notify.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword)
	if err != nil {
		return nil, err
	}
	mail, err := notify.NewEmail(mailer, notify.EmailConfig{
		From:    cfg.MailFrom,
		To:      cfg.MailTo,
		Network: cfg.Network,
		Owner:   ownerName,
	}, metrics.NewNotifier("email"))
	if err != nil {
		return nil, err
	}
	return append(notifiers, mail), nil
}
