package tendermint_test

import (
	"context"
	"testing"

	"github.com/NethermindEth/ibc-relayer/mocks"
	"github.com/NethermindEth/ibc-relayer/relayer/tendermint"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmtcrypto "github.com/cometbft/cometbft/proto/tendermint/crypto"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	ics23 "github.com/cosmos/ics23/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func existenceOp(t *testing.T, key, value []byte) cmtcrypto.ProofOp {
	t.Helper()
	proof := &ics23.CommitmentProof{
		Proof: &ics23.CommitmentProof_Exist{Exist: &ics23.ExistenceProof{
			Key:   key,
			Value: value,
			Leaf:  ics23.IavlSpec.LeafSpec,
		}},
	}
	data, err := proof.Marshal()
	require.NoError(t, err)
	return cmtcrypto.ProofOp{Type: "ics23:iavl", Key: key, Data: data}
}

func TestReadStateWithProof(t *testing.T) {
	path := types.CommitmentPath{PortId: "transfer", ChannelId: "channel-0", Sequence: 7}
	key := []byte(path.String())
	commitment := []byte{0xc0, 0xff, 0xee}

	t.Run("State of height h is queried at h-1", func(t *testing.T) {
		rpc := mocks.NewMockRPC(gomock.NewController(t))
		op := existenceOp(t, key, commitment)
		rpc.EXPECT().
			ABCIQueryWithOptions(gomock.Any(), "store/ibc/key", cmtbytes.HexBytes(key), rpcclient.ABCIQueryOptions{
				Height: 99,
				Prove:  true,
			}).
			Return(&coretypes.ResultABCIQuery{Response: abci.ResponseQuery{
				Key:      key,
				Value:    commitment,
				Height:   99,
				ProofOps: &cmtcrypto.ProofOps{Ops: []cmtcrypto.ProofOp{op}},
			}}, nil)

		reader := tendermint.NewProofReader(utils.NewNopZapLogger(), rpc, "union-testnet-9")
		proof, err := reader.ReadStateWithProof(context.Background(), path, types.NewHeight(9, 100))
		require.NoError(t, err)

		assert.Equal(t, path.String(), proof.Path)
		assert.Equal(t, commitment, proof.Value)
		assert.Equal(t, types.NewHeight(9, 100), proof.ProofHeight)

		var merkleProof commitmenttypes.MerkleProof
		require.NoError(t, merkleProof.Unmarshal(proof.Proof))
		require.Len(t, merkleProof.Proofs, 1)
		assert.Equal(t, key, merkleProof.Proofs[0].GetExist().Key)
	})

	t.Run("Absent state still carries a proof", func(t *testing.T) {
		rpc := mocks.NewMockRPC(gomock.NewController(t))
		rpc.EXPECT().ABCIQueryWithOptions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&coretypes.ResultABCIQuery{Response: abci.ResponseQuery{
				Key:      key,
				Height:   41,
				ProofOps: &cmtcrypto.ProofOps{},
			}}, nil)

		reader := tendermint.NewProofReader(utils.NewNopZapLogger(), rpc, "union-testnet-9")
		proof, err := reader.ReadStateWithProof(context.Background(), path, types.NewHeight(9, 42))
		require.NoError(t, err)
		assert.Empty(t, proof.Value)
		assert.Equal(t, types.NewHeight(9, 42), proof.ProofHeight)
	})

	t.Run("Genesis height cannot be proven", func(t *testing.T) {
		reader := tendermint.NewProofReader(
			utils.NewNopZapLogger(), mocks.NewMockRPC(gomock.NewController(t)), "union-testnet-9",
		)
		_, err := reader.ReadStateWithProof(context.Background(), path, types.NewHeight(9, 1))
		require.True(t, types.IsFatal(err))
	})

	t.Run("Transport failure is transient", func(t *testing.T) {
		rpc := mocks.NewMockRPC(gomock.NewController(t))
		rpc.EXPECT().ABCIQueryWithOptions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("connection refused"))

		reader := tendermint.NewProofReader(utils.NewNopZapLogger(), rpc, "union-testnet-9")
		_, err := reader.ReadStateWithProof(context.Background(), path, types.NewHeight(9, 42))
		require.True(t, types.IsTransient(err))
	})

	t.Run("Failed query", func(t *testing.T) {
		rpc := mocks.NewMockRPC(gomock.NewController(t))
		rpc.EXPECT().ABCIQueryWithOptions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&coretypes.ResultABCIQuery{Response: abci.ResponseQuery{
				Code:      18,
				Codespace: "sdk",
				Log:       "height is pruned",
			}}, nil)

		reader := tendermint.NewProofReader(utils.NewNopZapLogger(), rpc, "union-testnet-9")
		_, err := reader.ReadStateWithProof(context.Background(), path, types.NewHeight(9, 42))
		require.ErrorContains(t, err, "height is pruned")
	})
}
