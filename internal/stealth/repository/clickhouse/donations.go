package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
)

// LoadRecords returns every donation recorded for a network/owner.
func (r *Repository) LoadRecords(ctx context.Context, network model.Network, owner string) (records []model.DonationRecord, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("load_records", network, err, start)
	}()

	const query = `
SELECT id, stealth_address, toString(amount), timestamp, swept, memo, block_number, tx_hash
FROM stealth_donations FINAL
WHERE network = ? AND owner = ?
ORDER BY block_number, id`

	rows, err := r.conn.Query(ctx, query, string(network), owner)
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var (
			rec            model.DonationRecord
			stealthAddress string
			amount         string
			txHash         string
		)
		if err = rows.Scan(
			&rec.ID,
			&stealthAddress,
			&amount,
			&rec.Timestamp,
			&rec.Swept,
			&rec.Memo,
			&rec.BlockNumber,
			&txHash,
		); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		if !common.IsHexAddress(stealthAddress) {
			return nil, fmt.Errorf("donation %s: invalid stealth address %q", rec.ID, stealthAddress)
		}
		value, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return nil, fmt.Errorf("donation %s: invalid amount %q", rec.ID, amount)
		}
		rec.StealthAddress = common.HexToAddress(stealthAddress)
		rec.Amount = value
		rec.TxHash = common.HexToHash(txHash)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}

	return records, nil
}

// SaveRecords stores donation rows. Rows are keyed by id, so storing the same
// record twice collapses on merge.
func (r *Repository) SaveRecords(ctx context.Context, network model.Network, owner string, records []model.DonationRecord) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("save_records", network, err, start)
	}()

	if len(records) == 0 {
		return nil
	}

	const query = `
INSERT INTO stealth_donations (
	network,
	owner,
	id,
	stealth_address,
	amount,
	timestamp,
	swept,
	memo,
	block_number,
	tx_hash
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare donations batch: %w", err)
	}

	for _, rec := range records {
		if rec.Amount == nil {
			return fmt.Errorf("donation %s has no amount", rec.ID)
		}
		if err = batch.Append(
			string(network),
			owner,
			rec.ID,
			strings.ToLower(rec.StealthAddress.Hex()),
			rec.Amount,
			rec.Timestamp,
			rec.Swept,
			rec.Memo,
			rec.BlockNumber,
			strings.ToLower(rec.TxHash.Hex()),
		); err != nil {
			return fmt.Errorf("append donation: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert donations: %w", err)
	}
	return nil
}
