package notify

import (
	"context"
	"math/big"

	"go.uber.org/zap"
)

// Log writes donation summaries to the service log.
type Log struct {
	logger  *zap.Logger
	metrics Metrics
}

func NewLog(logger *zap.Logger, metrics Metrics) *Log {
	return &Log{logger: logger.Named("notify"), metrics: metrics}
}

func (n *Log) Notify(_ context.Context, count int, total *big.Int) error {
	n.logger.Info(Title,
		zap.Int("donations", count),
		zap.String("total_eth", FormatEther(total)),
		zap.Stringer("total_wei", total),
	)
	n.metrics.ObserveDelivery(nil)
	return nil
}
