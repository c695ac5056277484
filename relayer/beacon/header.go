package beacon

import (
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ActiveSyncCommittee tells the destination which of its two known
// committees signed the update: the current one of the trusted period, or the
// next one.
type ActiveSyncCommittee struct {
	Current *SyncCommittee `json:"current,omitempty"`
	Next    *SyncCommittee `json:"next,omitempty"`
}

func CurrentCommittee(committee *SyncCommittee) ActiveSyncCommittee {
	return ActiveSyncCommittee{Current: committee}
}

func NextCommittee(committee *SyncCommittee) ActiveSyncCommittee {
	return ActiveSyncCommittee{Next: committee}
}

func (a ActiveSyncCommittee) IsNext() bool {
	return a.Next != nil
}

func (a ActiveSyncCommittee) Committee() *SyncCommittee {
	if a.Next != nil {
		return a.Next
	}
	return a.Current
}

type TrustedSyncCommittee struct {
	TrustedHeight types.Height        `json:"trusted_height"`
	SyncCommittee ActiveSyncCommittee `json:"sync_committee"`
}

// AccountUpdate proves the IBC handler account, and with it its storage
// root, against an execution state root.
type AccountUpdate struct {
	AccountProof []hexutil.Bytes `json:"account_proof"`
	StorageRoot  common.Hash     `json:"storage_root"`
}

// Header is the client message submitted to a beacon light client.
type Header struct {
	ConsensusUpdate      LightClientUpdate    `json:"consensus_update"`
	TrustedSyncCommittee TrustedSyncCommittee `json:"trusted_sync_committee"`
	AccountUpdate        AccountUpdate        `json:"account_update"`
}

// NewHeight is the client height the destination reaches once it accepts
// the header.
func (h *Header) NewHeight() types.Height {
	return types.NewHeight(
		h.TrustedSyncCommittee.TrustedHeight.RevisionNumber,
		uint64(h.ConsensusUpdate.AttestedHeader.Beacon.Slot),
	)
}
