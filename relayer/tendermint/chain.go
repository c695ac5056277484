package tendermint

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/signer"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
)

// Created a function variable for mocking purposes in tests
var Sleep = time.Sleep

// MaxPendingPolls bounds how long a broadcast transaction may stay unknown
// to the node before it is considered dropped and signed again.
var MaxPendingPolls = 100

// AccountQuerier is implemented by Querier.
//
//go:generate go tool mockgen -destination=../../mocks/mock_account_querier.go -package=mocks github.com/NethermindEth/ibc-relayer/relayer/tendermint AccountQuerier
type AccountQuerier interface {
	AccountInfo(ctx context.Context, address string) (accountNumber uint64, sequence uint64, err error)
}

// TxSigner builds and signs Cosmos transactions, see signer.ExternalSigner.
type TxSigner interface {
	Address() string
	SignTx(ctx context.Context, req *signer.SignTxRequest) ([]byte, error)
}

// Chain is the CometBFT chain adapter: it reads the head of the chain and
// submits datagrams as Cosmos transactions.
type Chain struct {
	logger       *utils.ZapLogger
	chainId      string
	revision     uint64
	rpc          RPC
	accounts     AccountQuerier
	signer       TxSigner
	pollInterval time.Duration

	// one in flight transaction per signer
	submitMu sync.Mutex
}

func NewChain(
	logger *utils.ZapLogger,
	chainId string,
	rpc RPC,
	accounts AccountQuerier,
	txSigner TxSigner,
	pollInterval time.Duration,
) *Chain {
	return &Chain{
		logger:       logger,
		chainId:      chainId,
		revision:     Revision(chainId),
		rpc:          rpc,
		accounts:     accounts,
		signer:       txSigner,
		pollInterval: pollInterval,
	}
}

func (c *Chain) ChainId() string {
	return c.chainId
}

func (c *Chain) LatestHeight(ctx context.Context) (types.Height, error) {
	status, err := c.rpc.Status(ctx)
	if err != nil {
		return types.Height{}, types.MarkTransient(errors.Wrap(err, "fetching status"))
	}
	return types.NewHeight(c.revision, uint64(status.SyncInfo.LatestBlockHeight)), nil
}

func (c *Chain) LatestTimestamp(ctx context.Context) (uint64, error) {
	status, err := c.rpc.Status(ctx)
	if err != nil {
		return 0, types.MarkTransient(errors.Wrap(err, "fetching status"))
	}
	return uint64(status.SyncInfo.LatestBlockTime.Unix()), nil
}

// Submit signs the datagram with the current account sequence, broadcasts
// it and waits for its inclusion.
func (c *Chain) Submit(ctx context.Context, datagram types.Datagram) error {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	accountNumber, sequence, err := c.accounts.AccountInfo(ctx, c.signer.Address())
	if err != nil {
		return err
	}

	txBytes, err := c.signer.SignTx(ctx, &signer.SignTxRequest{
		ChainId:       c.chainId,
		AccountNumber: accountNumber,
		Sequence:      sequence,
		Messages:      []signer.Message{{TypeUrl: datagram.TypeUrl, Value: datagram.Value}},
	})
	if err != nil {
		return errors.Wrapf(err, "signing %s", datagram.String())
	}

	result, err := c.rpc.BroadcastTxSync(ctx, txBytes)
	if err != nil {
		return types.MarkTransient(errors.Wrapf(err, "broadcasting %s", datagram.String()))
	}
	if result.Code != 0 {
		return classifyTxError(result.Codespace, result.Code, &types.BroadcastTxError{
			TxHash:    result.Hash.String(),
			Code:      result.Code,
			Codespace: result.Codespace,
			ErrorLog:  result.Log,
		})
	}
	c.logger.Debugw("Transaction broadcast", "hash", result.Hash.String(), "sequence", sequence,
		"datagram", datagram.String())

	return c.waitForTx(ctx, result.Hash, &datagram)
}

func (c *Chain) waitForTx(ctx context.Context, hash cmtbytes.HexBytes, datagram *types.Datagram) error {
	notFound := 0
	for {
		result, err := c.rpc.Tx(ctx, hash, false)
		if err == nil {
			if result.TxResult.Code != 0 {
				return classifyTxError(result.TxResult.Codespace, result.TxResult.Code, &types.ExecutionError{
					TxHash:    hash.String(),
					Code:      result.TxResult.Code,
					Codespace: result.TxResult.Codespace,
					ErrorLog:  result.TxResult.Log,
				})
			}
			c.logger.Infow(
				"Transaction included",
				"hash", hash.String(),
				"height", result.Height,
				"datagram", datagram.String(),
			)
			return nil
		}
		if strings.Contains(err.Error(), "not found") {
			notFound++
			if notFound >= MaxPendingPolls {
				return types.MarkTransient(errors.Errorf(
					"transaction %s of %s not found after %d polls, dropped from the mempool",
					hash.String(), datagram.String(), notFound,
				))
			}
			c.logger.Debugw("Transaction not included yet", "hash", hash.String())
		} else {
			c.logger.Debugw("Failed to fetch transaction", "hash", hash.String(), "error", err)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		Sleep(c.pollInterval)
	}
}

// classifyTxError maps ABCI error codes to the relayer error categories.
func classifyTxError(codespace string, code uint32, err error) error {
	switch {
	case is(sdkerrors.ErrWrongSequence, codespace, code):
		return errors.Mark(types.MarkTransient(err), types.ErrSequenceMismatch)
	case is(sdkerrors.ErrTxInMempoolCache, codespace, code):
		// the same transaction is pending, the retry sees the next sequence
		return types.MarkTransient(err)
	case is(channeltypes.ErrRedundantTx, codespace, code),
		is(channeltypes.ErrPacketReceived, codespace, code):
		return errors.Mark(err, types.ErrRedundant)
	case is(clienttypes.ErrClientNotFound, codespace, code):
		return errors.Mark(errors.Mark(err, types.ErrUnknownClient), types.ErrFatal)
	case strings.Contains(strings.ToLower(err.Error()), "invalid checksum"):
		return errors.Mark(errors.Mark(err, types.ErrInvalidChecksum), types.ErrFatal)
	default:
		return errors.Mark(err, types.ErrFatal)
	}
}

type registeredError interface {
	Codespace() string
	ABCICode() uint32
}

func is(registered registeredError, codespace string, code uint32) bool {
	return registered.Codespace() == codespace && registered.ABCICode() == code
}
