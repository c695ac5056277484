package beacon

import (
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prysmaticlabs/go-bitfield"
)

// Uint64 is a beacon API integer, encoded as a decimal string.
type Uint64 uint64

func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

func (u *Uint64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// some clients send plain numbers
		var n uint64
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return errors.Wrapf(err, "cannot decode beacon integer %s", data)
		}
		*u = Uint64(n)
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "cannot decode beacon integer %q", s)
	}
	*u = Uint64(n)
	return nil
}

type BeaconBlockHeader struct {
	Slot          Uint64      `json:"slot"`
	ProposerIndex Uint64      `json:"proposer_index"`
	ParentRoot    common.Hash `json:"parent_root"`
	StateRoot     common.Hash `json:"state_root"`
	BodyRoot      common.Hash `json:"body_root"`
}

type ExecutionPayloadHeader struct {
	ParentHash  common.Hash `json:"parent_hash"`
	StateRoot   common.Hash `json:"state_root"`
	BlockNumber Uint64      `json:"block_number"`
	Timestamp   Uint64      `json:"timestamp"`
	BlockHash   common.Hash `json:"block_hash"`
}

type LightClientHeader struct {
	Beacon          BeaconBlockHeader       `json:"beacon"`
	Execution       *ExecutionPayloadHeader `json:"execution,omitempty"`
	ExecutionBranch []common.Hash           `json:"execution_branch,omitempty"`
}

type SyncCommittee struct {
	Pubkeys         []hexutil.Bytes `json:"pubkeys"`
	AggregatePubkey hexutil.Bytes   `json:"aggregate_pubkey"`
}

type SyncAggregate struct {
	SyncCommitteeBits      hexutil.Bytes `json:"sync_committee_bits"`
	SyncCommitteeSignature hexutil.Bytes `json:"sync_committee_signature"`
}

// Participants counts the committee members that signed.
func (a *SyncAggregate) Participants() uint64 {
	if len(a.SyncCommitteeBits) > 64 {
		return 0
	}
	// smaller committees (minimal preset) are zero padded to the mainnet size
	bits := make(bitfield.Bitvector512, 64)
	copy(bits, a.SyncCommitteeBits)
	return bits.Count()
}

type LightClientUpdate struct {
	AttestedHeader          LightClientHeader `json:"attested_header"`
	NextSyncCommittee       *SyncCommittee    `json:"next_sync_committee,omitempty"`
	NextSyncCommitteeBranch []common.Hash     `json:"next_sync_committee_branch,omitempty"`
	FinalizedHeader         LightClientHeader `json:"finalized_header"`
	FinalityBranch          []common.Hash     `json:"finality_branch"`
	SyncAggregate           SyncAggregate     `json:"sync_aggregate"`
	SignatureSlot           Uint64            `json:"signature_slot"`
}

type LightClientFinalityUpdate struct {
	AttestedHeader  LightClientHeader `json:"attested_header"`
	FinalizedHeader LightClientHeader `json:"finalized_header"`
	FinalityBranch  []common.Hash     `json:"finality_branch"`
	SyncAggregate   SyncAggregate     `json:"sync_aggregate"`
	SignatureSlot   Uint64            `json:"signature_slot"`
}

// AsUpdate returns the finality update as an update without committee
// transition fields.
func (f *LightClientFinalityUpdate) AsUpdate() LightClientUpdate {
	return LightClientUpdate{
		AttestedHeader:  f.AttestedHeader,
		FinalizedHeader: f.FinalizedHeader,
		FinalityBranch:  f.FinalityBranch,
		SyncAggregate:   f.SyncAggregate,
		SignatureSlot:   f.SignatureSlot,
	}
}

type LightClientBootstrap struct {
	Header                     LightClientHeader `json:"header"`
	CurrentSyncCommittee       SyncCommittee     `json:"current_sync_committee"`
	CurrentSyncCommitteeBranch []common.Hash     `json:"current_sync_committee_branch"`
}

type Genesis struct {
	GenesisTime           Uint64        `json:"genesis_time"`
	GenesisValidatorsRoot common.Hash   `json:"genesis_validators_root"`
	GenesisForkVersion    hexutil.Bytes `json:"genesis_fork_version"`
}

// CheckSlots verifies finalized <= attested <= signature slot.
func (u *LightClientUpdate) CheckSlots() error {
	finalized := u.FinalizedHeader.Beacon.Slot
	attested := u.AttestedHeader.Beacon.Slot
	if finalized > attested || attested > u.SignatureSlot {
		return errors.Errorf(
			"inconsistent update slots: finalized %d, attested %d, signature %d",
			finalized, attested, u.SignatureSlot,
		)
	}
	return nil
}
