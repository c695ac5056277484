package signer

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// InternalSigner signs EVM transactions with a key held in memory.
type InternalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewInternalSigner(privateKey string) (*InternalSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, errors.Errorf("Cannot turn private key into an ECDSA key: %s", err)
	}
	return &InternalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *InternalSigner) Address() common.Address {
	return s.address
}

func (s *InternalSigner) SignTx(tx *ethtypes.Transaction, chainId *big.Int) (*ethtypes.Transaction, error) {
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainId), s.key)
	if err != nil {
		return nil, errors.Wrap(err, "signing transaction")
	}
	return signed, nil
}
