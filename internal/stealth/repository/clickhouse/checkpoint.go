package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
)

// LoadCheckpoint returns the highest fully scanned block for a network/owner.
func (r *Repository) LoadCheckpoint(ctx context.Context, network model.Network, owner string) (block uint64, found bool, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("load_checkpoint", network, err, start)
	}()

	const query = `
SELECT max(block_number) AS block_number, count() AS checkpoints
FROM stealth_scan_checkpoints
WHERE network = ? AND owner = ?`

	rows, err := r.conn.Query(ctx, query, string(network), owner)
	if err != nil {
		return 0, false, fmt.Errorf("query checkpoint: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	if !rows.Next() {
		return 0, false, fmt.Errorf("checkpoint aggregate returned no rows")
	}

	var checkpoints uint64
	if err = rows.Scan(&block, &checkpoints); err != nil {
		return 0, false, fmt.Errorf("scan checkpoint: %w", err)
	}
	if err = rows.Err(); err != nil {
		return 0, false, fmt.Errorf("iterate checkpoint: %w", err)
	}

	return block, checkpoints > 0, nil
}

// SaveCheckpoint records block as scanned. Reads take the maximum, so an
// older block never moves the checkpoint back.
func (r *Repository) SaveCheckpoint(ctx context.Context, network model.Network, owner string, block uint64) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("save_checkpoint", network, err, start)
	}()

	const query = `
INSERT INTO stealth_scan_checkpoints (
	network,
	owner,
	block_number
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare checkpoint batch: %w", err)
	}
	if err = batch.Append(string(network), owner, block); err != nil {
		return fmt.Errorf("append checkpoint: %w", err)
	}
	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}
