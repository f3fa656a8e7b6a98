// Package redis persists scan checkpoints and donation records in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "stealthwatch"

// saveCheckpointScript only ever moves the checkpoint forward.
const saveCheckpointScript = `
local current = redis.call('GET', KEYS[1])
if current == false or tonumber(ARGV[1]) > tonumber(current) then
	redis.call('SET', KEYS[1], ARGV[1])
	return 1
end
return 0`

// saveRecordsScript stores id/document pairs, keeping the first document per id.
const saveRecordsScript = `
local added = 0
for i = 1, #ARGV, 2 do
	added = added + redis.call('HSETNX', KEYS[1], ARGV[i], ARGV[i + 1])
end
return added`

type Store struct {
	client  Client
	metrics Metrics
}

// NewClient connects to addr and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewStore(client Client, metrics Metrics) *Store {
	return &Store{client: client, metrics: metrics}
}

type donationDocument struct {
	ID             string    `json:"id"`
	StealthAddress string    `json:"stealthAddress"`
	Amount         string    `json:"amount"`
	Timestamp      time.Time `json:"timestamp"`
	Swept          bool      `json:"swept"`
	Memo           string    `json:"memo"`
	BlockNumber    uint64    `json:"blockNumber"`
	TxHash         string    `json:"txHash"`
}

func checkpointKey(network model.Network, owner string) string {
	return strings.Join([]string{keyPrefix, string(network), owner, "checkpoint"}, ":")
}

func donationsKey(network model.Network, owner string) string {
	return strings.Join([]string{keyPrefix, string(network), owner, "donations"}, ":")
}

// LoadCheckpoint returns the highest fully scanned block for a network/owner.
func (s *Store) LoadCheckpoint(ctx context.Context, network model.Network, owner string) (block uint64, found bool, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("load_checkpoint", network, err, start)
	}()

	raw, err := s.client.Get(ctx, checkpointKey(network, owner)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get checkpoint: %w", err)
	}
	block, err = strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse checkpoint %q: %w", raw, err)
	}
	return block, true, nil
}

// SaveCheckpoint advances the checkpoint to block unless it is already further.
func (s *Store) SaveCheckpoint(ctx context.Context, network model.Network, owner string, block uint64) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("save_checkpoint", network, err, start)
	}()

	keys := []string{checkpointKey(network, owner)}
	if err = s.client.Eval(ctx, saveCheckpointScript, keys, strconv.FormatUint(block, 10)).Err(); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// LoadRecords returns every donation stored for a network/owner ordered by block.
func (s *Store) LoadRecords(ctx context.Context, network model.Network, owner string) (records []model.DonationRecord, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("load_records", network, err, start)
	}()

	raw, err := s.client.HGetAll(ctx, donationsKey(network, owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("get donations: %w", err)
	}

	records = make([]model.DonationRecord, 0, len(raw))
	for id, payload := range raw {
		rec, decodeErr := decodeDocument(payload)
		if decodeErr != nil {
			return nil, fmt.Errorf("decode donation %s: %w", id, decodeErr)
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].BlockNumber != records[j].BlockNumber {
			return records[i].BlockNumber < records[j].BlockNumber
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// SaveRecords merges records keyed by id; an id that is already stored keeps its document.
func (s *Store) SaveRecords(ctx context.Context, network model.Network, owner string, records []model.DonationRecord) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe("save_records", network, err, start)
	}()

	if len(records) == 0 {
		return nil
	}

	args := make([]interface{}, 0, 2*len(records))
	for _, rec := range records {
		payload, encodeErr := encodeDocument(rec)
		if encodeErr != nil {
			return fmt.Errorf("encode donation %s: %w", rec.ID, encodeErr)
		}
		args = append(args, rec.ID, payload)
	}

	keys := []string{donationsKey(network, owner)}
	if err = s.client.Eval(ctx, saveRecordsScript, keys, args...).Err(); err != nil {
		return fmt.Errorf("save donations: %w", err)
	}
	return nil
}

func encodeDocument(rec model.DonationRecord) (string, error) {
	if rec.Amount == nil {
		return "", errors.New("missing amount")
	}
	payload, err := json.Marshal(donationDocument{
		ID:             rec.ID,
		StealthAddress: strings.ToLower(rec.StealthAddress.Hex()),
		Amount:         rec.Amount.String(),
		Timestamp:      rec.Timestamp.UTC(),
		Swept:          rec.Swept,
		Memo:           rec.Memo,
		BlockNumber:    rec.BlockNumber,
		TxHash:         strings.ToLower(rec.TxHash.Hex()),
	})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func decodeDocument(payload string) (model.DonationRecord, error) {
	var doc donationDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return model.DonationRecord{}, err
	}
	if !common.IsHexAddress(doc.StealthAddress) {
		return model.DonationRecord{}, fmt.Errorf("invalid stealth address %q", doc.StealthAddress)
	}
	amount, ok := new(big.Int).SetString(doc.Amount, 10)
	if !ok {
		return model.DonationRecord{}, fmt.Errorf("invalid amount %q", doc.Amount)
	}
	return model.DonationRecord{
		ID:             doc.ID,
		StealthAddress: common.HexToAddress(doc.StealthAddress),
		Amount:         amount,
		Timestamp:      doc.Timestamp,
		Swept:          doc.Swept,
		Memo:           doc.Memo,
		BlockNumber:    doc.BlockNumber,
		TxHash:         common.HexToHash(doc.TxHash),
	}, nil
}
