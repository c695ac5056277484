package evm_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/NethermindEth/ibc-relayer/mocks"
	"github.com/NethermindEth/ibc-relayer/relayer/evm"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var ibcStore = common.HexToAddress("0x00000000000000000000000000000000000ab1c5")

// slotOffset maps slot s to execution block s+offset.
type slotOffset uint64

func (o slotOffset) ExecutionHeightOfSlot(_ context.Context, slot uint64) (uint64, error) {
	return slot + uint64(o), nil
}

// stateRoots serves execution headers carrying the given state roots.
type stateRoots map[uint64]common.Hash

func (r stateRoots) HeaderByNumber(_ context.Context, number *big.Int) (*ethtypes.Header, error) {
	root, ok := r[number.Uint64()]
	if !ok {
		return nil, ethereum.NotFound
	}
	return &ethtypes.Header{Number: number, Root: root}, nil
}

// accountTrie is a state trie holding the IBC handler account with the given
// storage root, and the proof of that account.
func accountTrie(t *testing.T, storageRoot common.Hash) (common.Hash, []string) {
	t.Helper()
	account, err := rlp.EncodeToBytes(struct {
		Nonce    uint64
		Balance  *uint256.Int
		Root     common.Hash
		CodeHash []byte
	}{
		Nonce:    1,
		Balance:  uint256.NewInt(0),
		Root:     storageRoot,
		CodeHash: crypto.Keccak256([]byte("ibc handler")),
	})
	require.NoError(t, err)

	tr := newTrie()
	require.NoError(t, tr.Update(crypto.Keccak256(ibcStore.Bytes()), account))
	require.NoError(t, tr.Update(crypto.Keccak256(common.HexToAddress("0x01").Bytes()), account))
	return tr.Hash(), prove(t, tr, crypto.Keccak256(ibcStore.Bytes()))
}

func TestReadStateWithProof(t *testing.T) {
	path := types.CommitmentPath{PortId: "transfer", ChannelId: "channel-3", Sequence: 9}
	key := evm.CommitmentSlot(path)
	commitment := crypto.Keccak256([]byte("packet commitment"))

	tr := storageTrie(t, map[common.Hash][]byte{
		key:                      commitment,
		common.HexToHash("0x01"): word(0x01),
	})
	storageRoot := tr.Hash()
	proof := prove(t, tr, crypto.Keccak256(key[:]))

	newReader := func(t *testing.T) (*evm.ProofReader, *mocks.MockProofClient) {
		t.Helper()
		client := mocks.NewMockProofClient(gomock.NewController(t))
		return evm.NewProofReader(utils.NewNopZapLogger(), client, stateRoots{}, slotOffset(1000), ibcStore), client
	}

	t.Run("Proves a commitment", func(t *testing.T) {
		reader, client := newReader(t)
		client.EXPECT().
			GetProof(gomock.Any(), ibcStore, []string{key.Hex()}, big.NewInt(1500)).
			Return(&gethclient.AccountResult{
				Address:     ibcStore,
				StorageHash: storageRoot,
				StorageProof: []gethclient.StorageResult{{
					Key:   key.Hex(),
					Value: new(big.Int).SetBytes(commitment),
					Proof: proof,
				}},
			}, nil)

		state, err := reader.ReadStateWithProof(context.Background(), path, 500)
		require.NoError(t, err)
		require.Equal(t, path.String(), state.Path)
		require.Equal(t, commitment, state.Value)
		require.Equal(t, uint64(1500), state.ExecutionHeight)

		var decoded evm.StorageProof
		require.NoError(t, rlp.DecodeBytes(state.Proof, &decoded))
		require.Equal(t, key, decoded.Key)
		require.Equal(t, commitment, decoded.Value)
		require.Len(t, decoded.Nodes, len(proof))
	})

	t.Run("Proves absence", func(t *testing.T) {
		absent := types.CommitmentPath{PortId: "transfer", ChannelId: "channel-3", Sequence: 10}
		absentKey := evm.CommitmentSlot(absent)

		reader, client := newReader(t)
		client.EXPECT().
			GetProof(gomock.Any(), ibcStore, []string{absentKey.Hex()}, big.NewInt(1500)).
			Return(&gethclient.AccountResult{
				StorageHash: storageRoot,
				StorageProof: []gethclient.StorageResult{{
					Key:   absentKey.Hex(),
					Value: big.NewInt(0),
					Proof: prove(t, tr, crypto.Keccak256(absentKey[:])),
				}},
			}, nil)

		state, err := reader.ReadStateWithProof(context.Background(), absent, 500)
		require.NoError(t, err)
		require.Empty(t, state.Value)
	})

	for _, count := range []int{0, 2} {
		t.Run("Rejects a response with the wrong number of storage proofs", func(t *testing.T) {
			reader, client := newReader(t)
			proofs := make([]gethclient.StorageResult, count)
			for i := range proofs {
				proofs[i] = gethclient.StorageResult{Key: key.Hex(), Value: big.NewInt(1), Proof: proof}
			}
			client.EXPECT().
				GetProof(gomock.Any(), ibcStore, gomock.Any(), gomock.Any()).
				Return(&gethclient.AccountResult{StorageHash: storageRoot, StorageProof: proofs}, nil)

			_, err := reader.ReadStateWithProof(context.Background(), path, 500)
			require.ErrorContains(t, err, "invalid eth_getProof response shape")
			require.True(t, errors.Is(err, types.ErrInvalidProofShape))
			require.True(t, types.IsFatal(err))
		})
	}

	t.Run("Rejects a proof that does not match the storage root", func(t *testing.T) {
		reader, client := newReader(t)
		client.EXPECT().
			GetProof(gomock.Any(), ibcStore, gomock.Any(), gomock.Any()).
			Return(&gethclient.AccountResult{
				StorageHash: common.HexToHash("0xbad"),
				StorageProof: []gethclient.StorageResult{{
					Key: key.Hex(), Value: new(big.Int).SetBytes(commitment), Proof: proof,
				}},
			}, nil)

		_, err := reader.ReadStateWithProof(context.Background(), path, 500)
		require.True(t, types.IsFatal(err))
	})

	t.Run("RPC failures are transient", func(t *testing.T) {
		reader, client := newReader(t)
		client.EXPECT().
			GetProof(gomock.Any(), ibcStore, gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection reset"))

		_, err := reader.ReadStateWithProof(context.Background(), path, 500)
		require.True(t, types.IsTransient(err))
		require.False(t, types.IsFatal(err))
	})
}

func TestAccountUpdate(t *testing.T) {
	storageRoot := common.HexToHash("0x1234")
	stateRoot, accountProof := accountTrie(t, storageRoot)

	newReader := func(t *testing.T) (*evm.ProofReader, *mocks.MockProofClient) {
		t.Helper()
		client := mocks.NewMockProofClient(gomock.NewController(t))
		headers := stateRoots{64: stateRoot}
		return evm.NewProofReader(utils.NewNopZapLogger(), client, headers, slotOffset(0), ibcStore), client
	}

	t.Run("Proves the handler account", func(t *testing.T) {
		reader, client := newReader(t)
		client.EXPECT().
			GetProof(gomock.Any(), ibcStore, []string{}, big.NewInt(64)).
			Return(&gethclient.AccountResult{AccountProof: accountProof, StorageHash: storageRoot}, nil)

		update, err := reader.AccountUpdate(context.Background(), 64)
		require.NoError(t, err)
		require.Equal(t, storageRoot, update.StorageRoot)
		require.Len(t, update.AccountProof, len(accountProof))
		require.Equal(t, hexutil.MustDecode(accountProof[0]), []byte(update.AccountProof[0]))
	})

	t.Run("Rejects a storage root the proof does not carry", func(t *testing.T) {
		reader, client := newReader(t)
		client.EXPECT().
			GetProof(gomock.Any(), ibcStore, []string{}, big.NewInt(64)).
			Return(&gethclient.AccountResult{
				AccountProof: accountProof,
				StorageHash:  common.HexToHash("0xbad"),
			}, nil)

		_, err := reader.AccountUpdate(context.Background(), 64)
		require.True(t, errors.Is(err, types.ErrInvalidProofShape))
		require.True(t, types.IsFatal(err))
	})

	t.Run("Rejects a proof of another state", func(t *testing.T) {
		client := mocks.NewMockProofClient(gomock.NewController(t))
		headers := stateRoots{64: common.HexToHash("0x5eed")}
		reader := evm.NewProofReader(utils.NewNopZapLogger(), client, headers, slotOffset(0), ibcStore)
		client.EXPECT().
			GetProof(gomock.Any(), ibcStore, []string{}, big.NewInt(64)).
			Return(&gethclient.AccountResult{AccountProof: accountProof, StorageHash: storageRoot}, nil)

		_, err := reader.AccountUpdate(context.Background(), 64)
		require.True(t, errors.Is(err, types.ErrInvalidProofShape))
	})

	t.Run("Rejects an empty account proof", func(t *testing.T) {
		reader, client := newReader(t)
		client.EXPECT().
			GetProof(gomock.Any(), ibcStore, []string{}, big.NewInt(64)).
			Return(&gethclient.AccountResult{StorageHash: storageRoot}, nil)

		_, err := reader.AccountUpdate(context.Background(), 64)
		require.True(t, errors.Is(err, types.ErrInvalidProofShape))
	})

	t.Run("Missing execution header is transient", func(t *testing.T) {
		reader, _ := newReader(t)
		_, err := reader.AccountUpdate(context.Background(), 65)
		require.True(t, types.IsTransient(err))
		require.False(t, types.IsFatal(err))
	})
}
