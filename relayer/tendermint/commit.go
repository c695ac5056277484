package tendermint

import (
	"bytes"
	"cmp"
	"math/big"
	"slices"

	"github.com/NethermindEth/juno/utils"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmttypes "github.com/cometbft/cometbft/types"
	"lukechampine.com/uint128"
)

type SimpleValidator struct {
	Address     cmtbytes.HexBytes `json:"address"`
	PubKey      cmtbytes.HexBytes `json:"pub_key"`
	VotingPower int64             `json:"voting_power"`
}

// ValidatorSetCommit is the prover input describing who signed a commit.
// Bit i of Bitmap is set iff Validators[i] signed, and Signatures follow
// the set bits in ascending order.
type ValidatorSetCommit struct {
	Validators []SimpleValidator  `json:"validators"`
	Signatures []cmtbytes.HexBytes `json:"signatures"`
	Bitmap     cmtbytes.HexBytes  `json:"bitmap"`
}

// SortValidators orders by descending voting power, then ascending address.
func SortValidators(validators []*cmttypes.Validator) []*cmttypes.Validator {
	sorted := slices.Clone(validators)
	slices.SortStableFunc(sorted, func(a, b *cmttypes.Validator) int {
		if a.VotingPower != b.VotingPower {
			return cmp.Compare(b.VotingPower, a.VotingPower)
		}
		return bytes.Compare(a.Address, b.Address)
	})
	return sorted
}

// MakeValidatorsCommit encodes the signatures of commit against validators.
// Signers missing from the set are skipped: the set may have drifted
// between the trusted and the untrusted height.
func MakeValidatorsCommit(
	logger *utils.ZapLogger, validators []*cmttypes.Validator, commit *cmttypes.Commit,
) ValidatorSetCommit {
	sorted := SortValidators(validators)

	indexes := make(map[string]int, len(sorted))
	simple := make([]SimpleValidator, len(sorted))
	for i, validator := range sorted {
		indexes[string(validator.Address)] = i
		simple[i] = SimpleValidator{
			Address:     validator.Address,
			VotingPower: validator.VotingPower,
		}
		if validator.PubKey != nil {
			simple[i].PubKey = validator.PubKey.Bytes()
		}
	}

	bitmap := new(big.Int)
	signatures := make(map[int]cmtbytes.HexBytes)
	for _, sig := range commit.Signatures {
		if sig.BlockIDFlag == cmttypes.BlockIDFlagAbsent {
			continue
		}
		index, ok := indexes[string(sig.ValidatorAddress)]
		if !ok {
			logger.Warnw(
				"Commit signer is not in the validator set, skipping",
				"address", sig.ValidatorAddress.String(),
				"height", commit.Height,
			)
			continue
		}
		if _, seen := signatures[index]; seen {
			continue
		}
		bitmap.SetBit(bitmap, index, 1)
		signatures[index] = sig.Signature
	}

	ordered := make([]cmtbytes.HexBytes, 0, len(signatures))
	for i := range sorted {
		if signature, ok := signatures[i]; ok {
			ordered = append(ordered, signature)
		}
	}

	return ValidatorSetCommit{
		Validators: simple,
		Signatures: ordered,
		Bitmap:     bitmap.Bytes(),
	}
}

// Signers reports whether validator i signed.
func (c *ValidatorSetCommit) Signers() []bool {
	bitmap := new(big.Int).SetBytes(c.Bitmap)
	signed := make([]bool, len(c.Validators))
	for i := range signed {
		signed[i] = bitmap.Bit(i) == 1
	}
	return signed
}

// SignedPower returns the voting power that signed and the total power of
// the set.
func (c *ValidatorSetCommit) SignedPower() (signed, total uint128.Uint128) {
	for i, hasSigned := range c.Signers() {
		power := uint128.From64(uint64(c.Validators[i].VotingPower))
		total = total.Add(power)
		if hasSigned {
			signed = signed.Add(power)
		}
	}
	return signed, total
}

// HasQuorum reports whether strictly more than 2/3 of the power signed.
func (c *ValidatorSetCommit) HasQuorum() bool {
	signed, total := c.SignedPower()
	if total.IsZero() {
		return false
	}
	return signed.Mul64(3).Cmp(total.Mul64(2)) > 0
}
