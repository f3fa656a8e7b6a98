package scheduler

import (
	"context"

	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/service/scanner"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Engine interface {
		Owner() string
		Trigger(ctx context.Context) (scanner.Result, error)
	}
)
