// Package ethereum adapts an Ethereum JSON-RPC node to the scanner sources.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
	"go.uber.org/ratelimit"
)

// Client wraps a node client with metrics and request throttling.
type Client struct {
	client     NodeClient
	rpcMetrics RPCMetrics
	limiter    ratelimit.Limiter
}

// Dial connects to the node at rawURL.
func Dial(ctx context.Context, rawURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum node: %w", err)
	}
	return client, nil
}

// NewClient constructs an instrumented client. A non-positive rps disables throttling.
func NewClient(client NodeClient, rpcMetrics RPCMetrics, rps int) *Client {
	limiter := ratelimit.NewUnlimited()
	if rps > 0 {
		limiter = ratelimit.New(rps)
	}
	return &Client{
		client:     client,
		rpcMetrics: rpcMetrics,
		limiter:    limiter,
	}
}

// LatestBlock returns the current chain head.
func (c *Client) LatestBlock(ctx context.Context) (head uint64, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("eth_blockNumber", err, started)
	}()
	return c.client.BlockNumber(ctx)
}

// FetchLogs returns logs emitted by contract with the given first topic in
// the inclusive block range. Logs removed by a reorg are dropped.
func (c *Client) FetchLogs(ctx context.Context, contract common.Address, topic common.Hash, from, to uint64) (logs []types.Log, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("eth_getLogs", err, started)
	}()

	raw, err := c.client.FilterLogs(ctx, goethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{topic}},
	})
	if err != nil {
		return nil, err
	}

	logs = make([]types.Log, 0, len(raw))
	for _, l := range raw {
		if l.Removed {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// BalanceAt returns the latest native balance of account in wei.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (balance *big.Int, err error) {
	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("eth_getBalance", err, started)
	}()
	return c.client.BalanceAt(ctx, account, nil)
}

// VerifyNetwork checks that the node serves the chain of network.
func (c *Client) VerifyNetwork(ctx context.Context, network model.Network) (err error) {
	want, err := network.ChainID()
	if err != nil {
		return err
	}

	c.limiter.Take()
	started := time.Now()
	defer func() {
		c.rpcMetrics.Observe("eth_chainId", err, started)
	}()

	got, err := c.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("query chain id: %w", err)
	}
	if got.Cmp(want) != 0 {
		return fmt.Errorf("node serves chain %s, %s expects %s", got, network, want)
	}
	return nil
}
