package evm

import (
	"context"
	"math/big"

	"github.com/NethermindEth/ibc-relayer/relayer/beacon"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// ProofClient is implemented by gethclient.Client.
//
//go:generate go tool mockgen -destination=../../mocks/mock_evm_proof.go -package=mocks github.com/NethermindEth/ibc-relayer/relayer/evm ProofClient
type ProofClient interface {
	GetProof(
		ctx context.Context, account common.Address, keys []string, blockNumber *big.Int,
	) (*gethclient.AccountResult, error)
}

// HeaderReader is implemented by ethclient.Client.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
}

// SlotResolver maps beacon slots to execution block numbers.
type SlotResolver interface {
	ExecutionHeightOfSlot(ctx context.Context, slot uint64) (uint64, error)
}

// StateProof is a value of the IBC handler storage with its proof.
type StateProof struct {
	Path            string
	Value           []byte
	Proof           []byte
	ExecutionHeight uint64
}

// StorageProof is the RLP encoded proof handed to the counterparty.
type StorageProof struct {
	Key   common.Hash
	Value []byte
	Nodes [][]byte
}

// ProofReader reads IBC state of an EVM chain whose consensus is a beacon
// chain. Heights are beacon slots.
type ProofReader struct {
	logger   *utils.ZapLogger
	client   ProofClient
	headers  HeaderReader
	slots    SlotResolver
	ibcStore common.Address
}

func NewProofReader(
	logger *utils.ZapLogger,
	client ProofClient,
	headers HeaderReader,
	slots SlotResolver,
	ibcStore common.Address,
) *ProofReader {
	return &ProofReader{
		logger:   logger,
		client:   client,
		headers:  headers,
		slots:    slots,
		ibcStore: ibcStore,
	}
}

func (r *ProofReader) executionHeight(ctx context.Context, slot uint64) (*big.Int, error) {
	height, err := r.slots.ExecutionHeightOfSlot(ctx, slot)
	if err != nil {
		return nil, errors.Wrapf(err, "execution height of slot %d", slot)
	}
	return new(big.Int).SetUint64(height), nil
}

// ReadStateWithProof proves path at the execution block of slot.
func (r *ProofReader) ReadStateWithProof(ctx context.Context, path types.Path, slot uint64) (StateProof, error) {
	rawPath := path.String()
	key := commitmentSlot(rawPath)

	height, err := r.executionHeight(ctx, slot)
	if err != nil {
		return StateProof{}, err
	}
	result, err := r.client.GetProof(ctx, r.ibcStore, []string{key.Hex()}, height)
	if err != nil {
		return StateProof{}, types.MarkTransient(errors.Wrapf(err, "eth_getProof of %s at %s", rawPath, height))
	}

	if len(result.StorageProof) != 1 {
		return StateProof{}, types.Fatalf(
			types.ErrInvalidProofShape,
			"invalid eth_getProof response shape: expected 1 storage proof for %s, got %d",
			rawPath, len(result.StorageProof),
		)
	}
	storage := result.StorageProof[0]

	value := []byte{}
	if storage.Value != nil && storage.Value.Sign() != 0 {
		word, overflow := uint256.FromBig(storage.Value)
		if overflow {
			return StateProof{}, types.Fatalf(types.ErrInvalidProofShape, "storage value of %s overflows", rawPath)
		}
		bytes32 := word.Bytes32()
		value = bytes32[:]
	}

	if err := VerifyStorageProof(result.StorageHash, key, value, storage.Proof); err != nil {
		return StateProof{}, types.Fatalf(types.ErrInvalidProofShape, "%s at %s: %s", rawPath, height, err.Error())
	}

	nodes := make([][]byte, len(storage.Proof))
	for i, node := range storage.Proof {
		if nodes[i], err = hexutil.Decode(node); err != nil {
			return StateProof{}, types.Fatalf(types.ErrInvalidProofShape, "proof node %d of %s: %s", i, rawPath, err.Error())
		}
	}
	proof, err := rlp.EncodeToBytes(StorageProof{Key: key, Value: value, Nodes: nodes})
	if err != nil {
		return StateProof{}, errors.Wrap(err, "encoding storage proof")
	}

	r.logger.Debugw(
		"Read state with proof",
		"path", rawPath,
		"slot", slot,
		"execution height", height,
		"storage key", key.Hex(),
	)
	return StateProof{
		Path:            rawPath,
		Value:           value,
		Proof:           proof,
		ExecutionHeight: height.Uint64(),
	}, nil
}

// AccountUpdate proves the IBC handler account at the execution block of
// slot. The proven storage root is checked against the state root of that
// block.
func (r *ProofReader) AccountUpdate(ctx context.Context, slot uint64) (beacon.AccountUpdate, error) {
	height, err := r.executionHeight(ctx, slot)
	if err != nil {
		return beacon.AccountUpdate{}, err
	}
	header, err := r.headers.HeaderByNumber(ctx, height)
	if err != nil {
		return beacon.AccountUpdate{}, types.MarkTransient(errors.Wrapf(err, "execution header %s", height))
	}
	result, err := r.client.GetProof(ctx, r.ibcStore, []string{}, height)
	if err != nil {
		return beacon.AccountUpdate{}, types.MarkTransient(
			errors.Wrapf(err, "eth_getProof of account %s at %s", r.ibcStore.Hex(), height),
		)
	}
	if len(result.AccountProof) == 0 {
		return beacon.AccountUpdate{}, types.Fatalf(
			types.ErrInvalidProofShape, "invalid eth_getProof response shape: empty account proof",
		)
	}

	storageRoot, err := VerifyAccountProof(header.Root, r.ibcStore, result.AccountProof)
	if err != nil {
		return beacon.AccountUpdate{}, types.Fatalf(
			types.ErrInvalidProofShape, "account at %s: %s", height, err.Error(),
		)
	}
	if storageRoot != result.StorageHash {
		return beacon.AccountUpdate{}, types.Fatalf(
			types.ErrInvalidProofShape,
			"account at %s proves storage root %s, node returned %s",
			height, storageRoot.Hex(), result.StorageHash.Hex(),
		)
	}

	proof := make([]hexutil.Bytes, len(result.AccountProof))
	for i, node := range result.AccountProof {
		if proof[i], err = hexutil.Decode(node); err != nil {
			return beacon.AccountUpdate{}, types.Fatalf(
				types.ErrInvalidProofShape, "account proof node %d: %s", i, err.Error(),
			)
		}
	}
	return beacon.AccountUpdate{
		AccountProof: proof,
		StorageRoot:  result.StorageHash,
	}, nil
}
