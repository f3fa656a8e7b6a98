package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/address"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/keystore"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

type config struct {
	Owner       string `long:"owner" env:"STEALTH_KEYGEN_OWNER" description:"owner label stored in the keystore" required:"true"`
	Out         string `long:"out" env:"STEALTH_KEYGEN_OUT" description:"keystore path (default <owner>.keystore.json)"`
	Password    string `long:"password" env:"STEALTH_KEYSTORE_PASSWORD" description:"keystore password, prompted when empty"`
	ScryptLight bool   `long:"scrypt-light" env:"STEALTH_KEYGEN_SCRYPT_LIGHT" description:"use cheap scrypt parameters"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("keygen failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	if cfg.Out == "" {
		cfg.Out = cfg.Owner + ".keystore.json"
	}
	keys, err := address.GenerateKeys()
	if err != nil {
		return fmt.Errorf("generate keys: %w", err)
	}

	password, err := keystore.ResolvePassword(cfg.Password, true)
	if err != nil {
		return err
	}
	defer clear(password)

	if err := ctx.Err(); err != nil {
		return err
	}

	params := keystore.DefaultParams
	if cfg.ScryptLight {
		params = keystore.LightParams
	}
	file, err := keystore.Encrypt(cfg.Owner, keys, password, params)
	if err != nil {
		return fmt.Errorf("encrypt keys: %w", err)
	}
	if err := keystore.Write(cfg.Out, file); err != nil {
		return err
	}

	logger.Info("keystore written",
		zap.String("owner", cfg.Owner),
		zap.String("path", cfg.Out),
	)
	fmt.Println(keys.Meta.Encoded)
	return nil
}
