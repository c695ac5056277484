package tendermint_test

import (
	"context"
	"testing"
	"time"

	"github.com/NethermindEth/ibc-relayer/mocks"
	"github.com/NethermindEth/ibc-relayer/relayer/signer"
	"github.com/NethermindEth/ibc-relayer/relayer/tendermint"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const relayerAddress = "union1relayer"

var txHash = cmtbytes.HexBytes{0xab, 0xcd}

type recordingSigner struct {
	requests []*signer.SignTxRequest
}

func (s *recordingSigner) Address() string { return relayerAddress }

func (s *recordingSigner) SignTx(_ context.Context, req *signer.SignTxRequest) ([]byte, error) {
	s.requests = append(s.requests, req)
	return []byte{byte(req.Sequence)}, nil
}

func noSleep(t *testing.T) {
	t.Helper()
	sleep := tendermint.Sleep
	tendermint.Sleep = func(time.Duration) {}
	t.Cleanup(func() { tendermint.Sleep = sleep })
}

type chainFixture struct {
	chain    *tendermint.Chain
	rpc      *mocks.MockRPC
	accounts *mocks.MockAccountQuerier
	signer   *recordingSigner
}

func newChain(t *testing.T) *chainFixture {
	t.Helper()
	noSleep(t)
	mockCtrl := gomock.NewController(t)
	f := &chainFixture{
		rpc:      mocks.NewMockRPC(mockCtrl),
		accounts: mocks.NewMockAccountQuerier(mockCtrl),
		signer:   &recordingSigner{},
	}
	f.chain = tendermint.NewChain(
		utils.NewNopZapLogger(), "union-testnet-9", f.rpc, f.accounts, f.signer, time.Second,
	)
	return f
}

func recvDatagram() types.Datagram {
	return types.Datagram{
		ChainId:  "union-testnet-9",
		ClientId: "08-wasm-1",
		Kind:     types.RecvPacketDatagram,
		TypeUrl:  "/ibc.core.channel.v1.MsgRecvPacket",
		Value:    []byte{0x0a, 0x01},
		Height:   types.NewHeight(0, 650),
	}
}

func TestChainHead(t *testing.T) {
	f := newChain(t)
	now := time.Unix(1_700_000_123, 0)
	f.rpc.EXPECT().Status(gomock.Any()).Return(&coretypes.ResultStatus{
		SyncInfo: coretypes.SyncInfo{LatestBlockHeight: 420, LatestBlockTime: now},
	}, nil).Times(2)

	height, err := f.chain.LatestHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.NewHeight(9, 420), height)

	timestamp, err := f.chain.LatestTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_700_000_123), timestamp)

	t.Run("Status failure is transient", func(t *testing.T) {
		f := newChain(t)
		f.rpc.EXPECT().Status(gomock.Any()).Return(nil, errors.New("EOF"))
		_, err := f.chain.LatestHeight(context.Background())
		require.True(t, types.IsTransient(err))
	})
}

func TestChainSubmit(t *testing.T) {
	t.Run("Included after polling", func(t *testing.T) {
		f := newChain(t)
		f.accounts.EXPECT().AccountInfo(gomock.Any(), relayerAddress).Return(uint64(3), uint64(17), nil)
		f.rpc.EXPECT().BroadcastTxSync(gomock.Any(), gomock.Any()).
			Return(&coretypes.ResultBroadcastTx{Hash: txHash}, nil)
		gomock.InOrder(
			f.rpc.EXPECT().Tx(gomock.Any(), []byte(txHash), false).
				Return(nil, errors.New("tx (ABCD) not found")),
			f.rpc.EXPECT().Tx(gomock.Any(), []byte(txHash), false).
				Return(&coretypes.ResultTx{Hash: txHash, Height: 421}, nil),
		)

		require.NoError(t, f.chain.Submit(context.Background(), recvDatagram()))

		require.Len(t, f.signer.requests, 1)
		req := f.signer.requests[0]
		assert.Equal(t, "union-testnet-9", req.ChainId)
		assert.Equal(t, uint64(3), req.AccountNumber)
		assert.Equal(t, uint64(17), req.Sequence)
		assert.Equal(t, []signer.Message{{
			TypeUrl: "/ibc.core.channel.v1.MsgRecvPacket",
			Value:   []byte{0x0a, 0x01},
		}}, req.Messages)
	})

	t.Run("Sequence mismatch is retryable", func(t *testing.T) {
		f := newChain(t)
		f.accounts.EXPECT().AccountInfo(gomock.Any(), relayerAddress).Return(uint64(3), uint64(17), nil)
		f.rpc.EXPECT().BroadcastTxSync(gomock.Any(), gomock.Any()).
			Return(&coretypes.ResultBroadcastTx{
				Hash:      txHash,
				Codespace: sdkerrors.ErrWrongSequence.Codespace(),
				Code:      sdkerrors.ErrWrongSequence.ABCICode(),
				Log:       "account sequence mismatch, expected 18, got 17",
			}, nil)

		err := f.chain.Submit(context.Background(), recvDatagram())
		require.True(t, errors.Is(err, types.ErrSequenceMismatch))
		require.True(t, types.IsTransient(err))
		require.False(t, types.IsFatal(err))

		var broadcastErr *types.BroadcastTxError
		require.True(t, errors.As(err, &broadcastErr))
		assert.Equal(t, txHash.String(), broadcastErr.TxHash)
	})

	t.Run("Packet already received is redundant", func(t *testing.T) {
		f := newChain(t)
		f.accounts.EXPECT().AccountInfo(gomock.Any(), relayerAddress).Return(uint64(3), uint64(17), nil)
		f.rpc.EXPECT().BroadcastTxSync(gomock.Any(), gomock.Any()).
			Return(&coretypes.ResultBroadcastTx{Hash: txHash}, nil)
		f.rpc.EXPECT().Tx(gomock.Any(), []byte(txHash), false).
			Return(&coretypes.ResultTx{Hash: txHash, Height: 421, TxResult: abci.ExecTxResult{
				Codespace: channeltypes.ErrRedundantTx.Codespace(),
				Code:      channeltypes.ErrRedundantTx.ABCICode(),
				Log:       "packet messages are redundant",
			}}, nil)

		err := f.chain.Submit(context.Background(), recvDatagram())
		require.True(t, errors.Is(err, types.ErrRedundant))
		require.False(t, types.IsFatal(err))

		var executionErr *types.ExecutionError
		require.True(t, errors.As(err, &executionErr))
		assert.Equal(t, "packet messages are redundant", executionErr.ErrorLog)
	})

	t.Run("Unknown client is fatal", func(t *testing.T) {
		f := newChain(t)
		f.accounts.EXPECT().AccountInfo(gomock.Any(), relayerAddress).Return(uint64(3), uint64(17), nil)
		f.rpc.EXPECT().BroadcastTxSync(gomock.Any(), gomock.Any()).
			Return(&coretypes.ResultBroadcastTx{
				Hash:      txHash,
				Codespace: clienttypes.ErrClientNotFound.Codespace(),
				Code:      clienttypes.ErrClientNotFound.ABCICode(),
			}, nil)

		err := f.chain.Submit(context.Background(), recvDatagram())
		require.True(t, errors.Is(err, types.ErrUnknownClient))
		require.True(t, types.IsFatal(err))
	})

	t.Run("Invalid checksum is fatal", func(t *testing.T) {
		f := newChain(t)
		f.accounts.EXPECT().AccountInfo(gomock.Any(), relayerAddress).Return(uint64(3), uint64(17), nil)
		f.rpc.EXPECT().BroadcastTxSync(gomock.Any(), gomock.Any()).
			Return(&coretypes.ResultBroadcastTx{Hash: txHash}, nil)
		f.rpc.EXPECT().Tx(gomock.Any(), []byte(txHash), false).
			Return(&coretypes.ResultTx{Hash: txHash, TxResult: abci.ExecTxResult{
				Codespace: "08-wasm",
				Code:      2,
				Log:       "Invalid checksum for the wasm client",
			}}, nil)

		err := f.chain.Submit(context.Background(), recvDatagram())
		require.True(t, errors.Is(err, types.ErrInvalidChecksum))
		require.True(t, types.IsFatal(err))
	})

	t.Run("Dropped transaction is transient", func(t *testing.T) {
		polls := tendermint.MaxPendingPolls
		tendermint.MaxPendingPolls = 2
		t.Cleanup(func() { tendermint.MaxPendingPolls = polls })

		f := newChain(t)
		f.accounts.EXPECT().AccountInfo(gomock.Any(), relayerAddress).Return(uint64(3), uint64(17), nil)
		f.rpc.EXPECT().BroadcastTxSync(gomock.Any(), gomock.Any()).
			Return(&coretypes.ResultBroadcastTx{Hash: txHash}, nil)
		f.rpc.EXPECT().Tx(gomock.Any(), []byte(txHash), false).
			Return(nil, errors.New("tx (ABCD) not found")).Times(2)

		err := f.chain.Submit(context.Background(), recvDatagram())
		require.True(t, types.IsTransient(err))
		require.False(t, types.IsFatal(err))
		require.ErrorContains(t, err, "dropped from the mempool")
	})

	t.Run("Broadcast transport failure is transient", func(t *testing.T) {
		f := newChain(t)
		f.accounts.EXPECT().AccountInfo(gomock.Any(), relayerAddress).Return(uint64(3), uint64(17), nil)
		f.rpc.EXPECT().BroadcastTxSync(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

		err := f.chain.Submit(context.Background(), recvDatagram())
		require.True(t, types.IsTransient(err))
	})
}
