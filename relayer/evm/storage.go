package evm

import (
	"bytes"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/holiman/uint256"
)

// CommitmentSlot is the storage slot of path in the IBC handler: the entry
// for keccak256(path) of the mapping stored at slot 0.
func CommitmentSlot(path types.Path) common.Hash {
	return commitmentSlot(path.String())
}

func commitmentSlot(path string) common.Hash {
	mappingSlot := uint256.NewInt(0).Bytes32()
	pathHash := crypto.Keccak256([]byte(path))
	return crypto.Keccak256Hash(pathHash, mappingSlot[:])
}

// proofDB loads hex encoded trie nodes keyed by their hash.
func proofDB(nodes []string) (ethdb.Database, error) {
	db := rawdb.NewMemoryDatabase()
	for _, encoded := range nodes {
		node, err := hexutil.Decode(encoded)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode proof node")
		}
		if err := db.Put(crypto.Keccak256(node), node); err != nil {
			return nil, errors.Wrap(err, "failed to insert proof node")
		}
	}
	return db, nil
}

// VerifyStorageProof checks that slot holds value under storageRoot. A zero
// value proves absence.
func VerifyStorageProof(storageRoot common.Hash, slot common.Hash, value []byte, proof []string) error {
	db, err := proofDB(proof)
	if err != nil {
		return err
	}
	encoded, err := trie.VerifyProof(storageRoot, crypto.Keccak256(slot[:]), db)
	if err != nil {
		return errors.Wrapf(err, "storage proof of slot %s does not verify", slot.Hex())
	}

	var stored []byte
	if len(encoded) > 0 {
		if err := rlp.DecodeBytes(encoded, &stored); err != nil {
			return errors.Wrap(err, "decoding proven storage value")
		}
	}
	if !bytes.Equal(trimLeftZeros(stored), trimLeftZeros(value)) {
		return errors.Errorf(
			"storage proof of slot %s proves %x, expected %x", slot.Hex(), stored, value,
		)
	}
	return nil
}

// VerifyAccountProof checks the account proof of address under stateRoot and
// returns the proven storage root.
func VerifyAccountProof(stateRoot common.Hash, address common.Address, proof []string) (common.Hash, error) {
	db, err := proofDB(proof)
	if err != nil {
		return common.Hash{}, err
	}
	encoded, err := trie.VerifyProof(stateRoot, crypto.Keccak256(address.Bytes()), db)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "account proof of %s does not verify", address.Hex())
	}
	if len(encoded) == 0 {
		return common.Hash{}, errors.Errorf("account %s does not exist", address.Hex())
	}

	var account struct {
		Nonce    uint64
		Balance  *uint256.Int
		Root     common.Hash
		CodeHash []byte
	}
	if err := rlp.DecodeBytes(encoded, &account); err != nil {
		return common.Hash{}, errors.Wrap(err, "decoding proven account")
	}
	return account.Root, nil
}

func trimLeftZeros(b []byte) []byte {
	return bytes.TrimLeft(b, "\x00")
}
