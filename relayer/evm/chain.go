package evm

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// Created a function variable for mocking purposes in tests
var Sleep = time.Sleep

// MaxPendingPolls bounds how long a sent transaction may stay unknown to the
// node before it is considered dropped and sent again.
var MaxPendingPolls = 100

// relayedReasons are the IBC handler reverts meaning the packet was
// already handled on this chain.
var relayedReasons = []string{
	"packet already received",
	"packet receipt already exists",
	"acknowledgement already exists",
	"already relayed",
}

// Client is the execution RPC surface the relayer uses. It is implemented
// by ethclient.Client.
//
//go:generate go tool mockgen -destination=../../mocks/mock_evm_client.go -package=mocks github.com/NethermindEth/ibc-relayer/relayer/evm Client
type Client interface {
	Caller
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	SubscribeFilterLogs(
		ctx context.Context, q ethereum.FilterQuery, ch chan<- ethtypes.Log,
	) (ethereum.Subscription, error)
}

type TxSigner interface {
	Address() common.Address
	SignTx(tx *ethtypes.Transaction, chainId *big.Int) (*ethtypes.Transaction, error)
}

// Chain is the EVM chain adapter: it reads the head of the chain and
// submits datagrams to the IBC handler.
type Chain struct {
	logger       *utils.ZapLogger
	chainId      string
	evmChainId   *big.Int
	client       Client
	signer       TxSigner
	host         *Host
	pollInterval time.Duration

	// one in flight transaction per signer
	submitMu sync.Mutex
}

func NewChain(
	logger *utils.ZapLogger,
	chainId string,
	client Client,
	signer TxSigner,
	handler common.Address,
	pollInterval time.Duration,
) (*Chain, error) {
	evmChainId, ok := new(big.Int).SetString(chainId, 10)
	if !ok {
		return nil, errors.Errorf("EVM chain id `%s` is not a decimal number", chainId)
	}
	return &Chain{
		logger:       logger,
		chainId:      chainId,
		evmChainId:   evmChainId,
		client:       client,
		signer:       signer,
		host:         NewHost(client, handler),
		pollInterval: pollInterval,
	}, nil
}

func (c *Chain) ChainId() string {
	return c.chainId
}

func (c *Chain) Host() *Host {
	return c.host
}

func (c *Chain) LatestHeight(ctx context.Context) (types.Height, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return types.Height{}, types.MarkTransient(errors.Wrap(err, "fetching latest header"))
	}
	return types.NewHeight(0, header.Number.Uint64()), nil
}

func (c *Chain) LatestTimestamp(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, types.MarkTransient(errors.Wrap(err, "fetching latest header"))
	}
	return header.Time, nil
}

// Submit sends the datagram calldata to the IBC handler and waits for the
// receipt.
func (c *Chain) Submit(ctx context.Context, datagram types.Datagram) error {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	from := c.signer.Address()
	to := c.host.Handler()
	msg := ethereum.CallMsg{From: from, To: &to, Data: datagram.Value}

	gas, err := c.client.EstimateGas(ctx, msg)
	if err != nil {
		if reason, ok := revertReason(err); ok {
			return classifyRevert(&datagram, reason)
		}
		return classifySendError(errors.Wrapf(err, "estimating gas of %s", datagram.String()))
	}

	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return types.MarkTransient(errors.Wrap(err, "fetching pending nonce"))
	}
	tip, err := c.client.SuggestGasTipCap(ctx)
	if err != nil {
		return types.MarkTransient(errors.Wrap(err, "suggesting gas tip"))
	}
	head, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return types.MarkTransient(errors.Wrap(err, "fetching latest header"))
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee(head), big.NewInt(2)))

	tx, err := c.signer.SignTx(ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   c.evmChainId,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas * 12 / 10,
		To:        &to,
		Data:      datagram.Value,
	}), c.evmChainId)
	if err != nil {
		return err
	}

	if err := c.client.SendTransaction(ctx, tx); err != nil {
		if !strings.Contains(err.Error(), "already known") {
			return classifySendError(errors.Wrapf(err, "sending %s", datagram.String()))
		}
	}
	c.logger.Debugw("Transaction sent", "hash", tx.Hash().Hex(), "nonce", nonce, "datagram", datagram.String())

	return c.waitForReceipt(ctx, tx.Hash(), &datagram)
}

func (c *Chain) waitForReceipt(ctx context.Context, hash common.Hash, datagram *types.Datagram) error {
	notFound := 0
	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == ethtypes.ReceiptStatusFailed {
				return errors.Mark(&types.ExecutionError{
					TxHash:   hash.Hex(),
					ErrorLog: "transaction reverted",
				}, types.ErrFatal)
			}
			c.logger.Infow(
				"Transaction included",
				"hash", hash.Hex(),
				"block", receipt.BlockNumber,
				"datagram", datagram.String(),
			)
			return nil
		case errors.Is(err, ethereum.NotFound):
			notFound++
			if notFound >= MaxPendingPolls {
				return types.MarkTransient(errors.Errorf(
					"transaction %s of %s not found after %d polls, dropped from the mempool",
					hash.Hex(), datagram.String(), notFound,
				))
			}
			c.logger.Debugw("Transaction not included yet", "hash", hash.Hex())
		default:
			c.logger.Debugw("Failed to fetch receipt", "hash", hash.Hex(), "error", err)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		Sleep(c.pollInterval)
	}
}

func baseFee(header *ethtypes.Header) *big.Int {
	if header.BaseFee == nil {
		return big.NewInt(0)
	}
	return header.BaseFee
}

// classifySendError marks nonce races as sequence mismatches and the rest as
// transient.
func classifySendError(err error) error {
	message := strings.ToLower(err.Error())
	if strings.Contains(message, "nonce too low") ||
		strings.Contains(message, "replacement transaction underpriced") {
		return errors.Mark(types.MarkTransient(err), types.ErrSequenceMismatch)
	}
	return types.MarkTransient(err)
}

// classifyRevert completes datagrams the handler refuses because they were
// already relayed. Any other revert is fatal: a refused header or proof
// would be refused again.
func classifyRevert(datagram *types.Datagram, reason string) error {
	err := errors.Errorf("%s rejected by the IBC handler: %s", datagram.String(), reason)
	if datagram.Kind != types.UpdateClientDatagram {
		lower := strings.ToLower(reason)
		for _, relayed := range relayedReasons {
			if strings.Contains(lower, relayed) {
				return errors.Mark(err, types.ErrCounterpartyRejected)
			}
		}
	}
	return errors.Mark(err, types.ErrFatal)
}

// revertReason decodes the Error(string) revert carried by a JSON-RPC error.
func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return "", false
	}
	encoded, ok := dataErr.ErrorData().(string)
	if !ok {
		return "", false
	}
	data, decodeErr := hexutil.Decode(encoded)
	if decodeErr != nil {
		return "", false
	}
	reason, unpackErr := abi.UnpackRevert(data)
	if unpackErr != nil {
		return "", false
	}
	return reason, true
}
