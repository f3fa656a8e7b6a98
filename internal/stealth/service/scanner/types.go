package scanner

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	LogSource interface {
		FetchLogs(ctx context.Context, contract common.Address, topic common.Hash, from, to uint64) ([]types.Log, error)
	}
	BalanceSource interface {
		BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	}
	HeadSource interface {
		LatestBlock(ctx context.Context) (uint64, error)
	}
	Store interface {
		LoadCheckpoint(ctx context.Context, network model.Network, owner string) (uint64, bool, error)
		SaveCheckpoint(ctx context.Context, network model.Network, owner string, block uint64) error
		LoadRecords(ctx context.Context, network model.Network, owner string) ([]model.DonationRecord, error)
		SaveRecords(ctx context.Context, network model.Network, owner string, records []model.DonationRecord) error
	}
	Notifier interface {
		Notify(ctx context.Context, count int, total *big.Int) error
	}
	Metrics interface {
		ObserveScan(err error, blocks uint64, started time.Time)
		ObserveFetchWindow(err error, logs int, started time.Time)
		ObserveAnnouncement(outcome string)
		ObserveDonations(count int, total *big.Int)
	}
)
