package evm_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/NethermindEth/ibc-relayer/mocks"
	"github.com/NethermindEth/ibc-relayer/relayer/evm"
	"github.com/NethermindEth/ibc-relayer/relayer/signer"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const devKey = "0xb71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

// revertError is what the JSON-RPC client returns for a reverted call.
type revertError struct {
	data string
}

func (e *revertError) Error() string          { return "execution reverted" }
func (e *revertError) ErrorCode() int         { return 3 }
func (e *revertError) ErrorData() interface{} { return e.data }

func revertData(t *testing.T, reason string) string {
	t.Helper()
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	require.NoError(t, err)
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
}

func noSleep(t *testing.T) {
	t.Helper()
	sleep := evm.Sleep
	evm.Sleep = func(time.Duration) {}
	t.Cleanup(func() { evm.Sleep = sleep })
}

func newChain(t *testing.T) (*evm.Chain, *mocks.MockClient) {
	t.Helper()
	client := mocks.NewMockClient(gomock.NewController(t))
	s, err := signer.NewInternalSigner(devKey)
	require.NoError(t, err)
	chain, err := evm.NewChain(utils.NewNopZapLogger(), "11155111", client, s, handler, time.Second)
	require.NoError(t, err)
	return chain, client
}

func updateDatagram() types.Datagram {
	return types.Datagram{
		ChainId:  "11155111",
		ClientId: "07-tendermint-2",
		Kind:     types.UpdateClientDatagram,
		Value:    []byte{0xde, 0xad},
		Height:   types.NewHeight(9, 100),
	}
}

func TestNewChain(t *testing.T) {
	_, err := evm.NewChain(utils.NewNopZapLogger(), "sepolia", nil, nil, handler, time.Second)
	require.ErrorContains(t, err, "is not a decimal number")
}

func TestChainHead(t *testing.T) {
	chain, client := newChain(t)
	client.EXPECT().
		HeaderByNumber(gomock.Any(), gomock.Nil()).
		Return(&ethtypes.Header{Number: big.NewInt(812), Time: 1_700_000_123}, nil).
		Times(2)

	height, err := chain.LatestHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.NewHeight(0, 812), height)

	timestamp, err := chain.LatestTimestamp(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1_700_000_123), timestamp)
}

func recvDatagram() types.Datagram {
	return types.Datagram{
		ChainId:  "11155111",
		ClientId: "07-tendermint-2",
		Kind:     types.RecvPacketDatagram,
		Value:    []byte{0xbe, 0xef},
		Height:   types.NewHeight(9, 100),
	}
}

func TestChainSubmit(t *testing.T) {
	head := &ethtypes.Header{Number: big.NewInt(100), BaseFee: big.NewInt(10)}

	t.Run("Included", func(t *testing.T) {
		noSleep(t)
		chain, client := newChain(t)

		var sent *ethtypes.Transaction
		gomock.InOrder(
			client.EXPECT().EstimateGas(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
					require.Equal(t, handler, *msg.To)
					require.Equal(t, []byte{0xde, 0xad}, msg.Data)
					return 100_000, nil
				}),
			client.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(5), nil),
			client.EXPECT().SuggestGasTipCap(gomock.Any()).Return(big.NewInt(2), nil),
			client.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(head, nil),
			client.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, tx *ethtypes.Transaction) error {
					sent = tx
					return nil
				}),
			client.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).Return(nil, ethereum.NotFound),
			client.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).
				Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(101)}, nil),
		)

		require.NoError(t, chain.Submit(context.Background(), updateDatagram()))
		require.Equal(t, uint64(5), sent.Nonce())
		require.Equal(t, uint64(120_000), sent.Gas())
		require.Equal(t, big.NewInt(22), sent.GasFeeCap())
		require.Equal(t, big.NewInt(11155111), sent.ChainId())
	})

	t.Run("Packet already received is a counterparty rejection", func(t *testing.T) {
		chain, client := newChain(t)
		client.EXPECT().
			EstimateGas(gomock.Any(), gomock.Any()).
			Return(uint64(0), &revertError{data: revertData(t, "IBC: packet already received")})

		err := chain.Submit(context.Background(), recvDatagram())
		require.True(t, errors.Is(err, types.ErrCounterpartyRejected))
		require.False(t, types.IsFatal(err))
		require.ErrorContains(t, err, "packet already received")
	})

	t.Run("Unknown revert is fatal", func(t *testing.T) {
		chain, client := newChain(t)
		client.EXPECT().
			EstimateGas(gomock.Any(), gomock.Any()).
			Return(uint64(0), &revertError{data: revertData(t, "invalid membership proof")})

		err := chain.Submit(context.Background(), recvDatagram())
		require.True(t, types.IsFatal(err))
		require.False(t, errors.Is(err, types.ErrCounterpartyRejected))
		require.ErrorContains(t, err, "invalid membership proof")
	})

	t.Run("Refused update is fatal", func(t *testing.T) {
		chain, client := newChain(t)
		client.EXPECT().
			EstimateGas(gomock.Any(), gomock.Any()).
			Return(uint64(0), &revertError{data: revertData(t, "packet already received")})

		err := chain.Submit(context.Background(), updateDatagram())
		require.True(t, types.IsFatal(err))
		require.False(t, errors.Is(err, types.ErrCounterpartyRejected))
	})

	t.Run("Dropped transaction is transient", func(t *testing.T) {
		noSleep(t)
		polls := evm.MaxPendingPolls
		evm.MaxPendingPolls = 3
		t.Cleanup(func() { evm.MaxPendingPolls = polls })

		chain, client := newChain(t)
		client.EXPECT().EstimateGas(gomock.Any(), gomock.Any()).Return(uint64(21_000), nil)
		client.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(5), nil)
		client.EXPECT().SuggestGasTipCap(gomock.Any()).Return(big.NewInt(2), nil)
		client.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(head, nil)
		client.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(nil)
		client.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).Return(nil, ethereum.NotFound).Times(3)

		err := chain.Submit(context.Background(), updateDatagram())
		require.True(t, types.IsTransient(err))
		require.False(t, types.IsFatal(err))
		require.ErrorContains(t, err, "dropped from the mempool")
	})

	t.Run("Nonce race is a sequence mismatch", func(t *testing.T) {
		chain, client := newChain(t)
		client.EXPECT().EstimateGas(gomock.Any(), gomock.Any()).Return(uint64(21_000), nil)
		client.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(5), nil)
		client.EXPECT().SuggestGasTipCap(gomock.Any()).Return(big.NewInt(2), nil)
		client.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(head, nil)
		client.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(errors.New("nonce too low"))

		err := chain.Submit(context.Background(), updateDatagram())
		require.True(t, errors.Is(err, types.ErrSequenceMismatch))
		require.True(t, types.IsTransient(err))
	})

	t.Run("Already known transaction is awaited", func(t *testing.T) {
		chain, client := newChain(t)
		client.EXPECT().EstimateGas(gomock.Any(), gomock.Any()).Return(uint64(21_000), nil)
		client.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(5), nil)
		client.EXPECT().SuggestGasTipCap(gomock.Any()).Return(big.NewInt(2), nil)
		client.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(head, nil)
		client.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(errors.New("already known"))
		client.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).
			Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(101)}, nil)

		require.NoError(t, chain.Submit(context.Background(), updateDatagram()))
	})

	t.Run("Reverted receipt is fatal", func(t *testing.T) {
		chain, client := newChain(t)
		client.EXPECT().EstimateGas(gomock.Any(), gomock.Any()).Return(uint64(21_000), nil)
		client.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(5), nil)
		client.EXPECT().SuggestGasTipCap(gomock.Any()).Return(big.NewInt(2), nil)
		client.EXPECT().HeaderByNumber(gomock.Any(), gomock.Nil()).Return(head, nil)
		client.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(nil)
		client.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).
			Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed}, nil)

		err := chain.Submit(context.Background(), updateDatagram())
		require.True(t, types.IsFatal(err))
		var execErr *types.ExecutionError
		require.True(t, errors.As(err, &execErr))
	})
}
