package blockchain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"

	icommon "github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
)

// Known fee-on-transfer function selectors. Tokens exposing any of these
// are flagged rather than assumed fee-free.
var transferFeeSelectors = [][]byte{
	{0x47, 0x06, 0x23, 0x36}, // _taxFee()
	{0x6f, 0x9f, 0xb9, 0x8a}, // sellTax()
}

// Client wraps an RPC connection with retry handling. All reads go through
// the configured RetryPolicy so transient node errors do not surface as
// quote failures. The raw rpc client is kept for batched reads.
type Client struct {
	eth     *ethclient.Client
	rpcc    *rpc.Client
	retry   icommon.RetryPolicy
	chainID uint64
}

func Dial(ctx context.Context, rawURL string, retry icommon.RetryPolicy) (*Client, error) {
	var rpcc *rpc.Client
	err := retry.Do(ctx, func() error {
		var dialErr error
		rpcc, dialErr = rpc.DialContext(ctx, rawURL)
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	eth := ethclient.NewClient(rpcc)

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}

	log.Info().Str("url", rawURL).Uint64("chainId", chainID.Uint64()).Msg("[blockchain] connected")

	return &Client{
		eth:     eth,
		rpcc:    rpcc,
		retry:   retry,
		chainID: chainID.Uint64(),
	}, nil
}

func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

func (c *Client) ChainID() uint64 {
	return c.chainID
}

// BlockNumber returns the latest block number with retries.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	err := c.retry.Do(ctx, func() error {
		var callErr error
		number, callErr = c.eth.BlockNumber(ctx)
		return callErr
	})
	return number, err
}

// ProbeGasData fetches the latest block gas limit and the node's suggested
// gas price in a single batched round trip.
func (c *Client) ProbeGasData(ctx context.Context) (uint64, *big.Int, error) {
	var (
		header types.Header
		price  hexutil.Big
	)
	batch := []rpc.BatchElem{
		{Method: "eth_getBlockByNumber", Args: []interface{}{"latest", false}, Result: &header},
		{Method: "eth_gasPrice", Result: &price},
	}

	err := c.retry.Do(ctx, func() error {
		if callErr := c.rpcc.BatchCallContext(ctx, batch); callErr != nil {
			return callErr
		}
		for i := range batch {
			if batch[i].Error != nil {
				return batch[i].Error
			}
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return header.GasLimit, (*big.Int)(&price), nil
}

// DetectTransferFee inspects a token's bytecode for fee-on-transfer
// selectors. A token with no code or no fee selectors is reported fee-free;
// a match flags the token with a conservative default so concentrated pools
// exclude it until a precise probe lands.
func (c *Client) DetectTransferFee(ctx context.Context, token common.Address) (domain.TokenFees, error) {
	fees := domain.TokenFees{Token: token}

	var code []byte
	err := c.retry.Do(ctx, func() error {
		var callErr error
		code, callErr = c.eth.CodeAt(ctx, token, nil)
		return callErr
	})
	if err != nil {
		return fees, err
	}
	if len(code) == 0 {
		return fees, nil
	}

	for _, selector := range transferFeeSelectors {
		if bytes.Contains(code, selector) {
			fees.BuyFeeBps = 100
			fees.SellFeeBps = 100
			log.Warn().Str("token", token.Hex()).Msg("[blockchain] fee-on-transfer selector detected")
			break
		}
	}
	return fees, nil
}
