package beacon

import (
	"github.com/NethermindEth/ibc-relayer/relayer/types"
)

type BridgeKind uint8

const (
	// The client is already past the target, nothing to submit.
	NoUpdate BridgeKind = iota + 1
	// Trusted and target slots share a period: one finality header.
	FinalityOnly
	// One committee rotation per period, then maybe a finality header.
	Rotation
	// Trusted period is ahead of the target period.
	Reverse
)

func (k BridgeKind) String() string {
	switch k {
	case NoUpdate:
		return "no update"
	case FinalityOnly:
		return "finality only"
	case Rotation:
		return "rotation"
	case Reverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// Bridge is the decision on how to move trust from one slot to another.
type Bridge struct {
	Kind          BridgeKind
	TrustedPeriod uint64
	TargetPeriod  uint64
	// Range of light client updates to fetch, only set for Rotation.
	StartPeriod uint64
	Count       uint64
}

// PlanBridge decides, for a client trusting trustedSlot, how to reach
// updateTo given that the source has attested attestedSlot.
func (s Spec) PlanBridge(trustedSlot, updateTo, attestedSlot uint64) Bridge {
	trustedPeriod := s.PeriodOf(trustedSlot)
	targetPeriod := s.PeriodOf(attestedSlot)
	bridge := Bridge{TrustedPeriod: trustedPeriod, TargetPeriod: targetPeriod}

	switch {
	case trustedPeriod > targetPeriod:
		bridge.Kind = Reverse
	case trustedSlot >= updateTo:
		bridge.Kind = NoUpdate
	case trustedPeriod == targetPeriod:
		bridge.Kind = FinalityOnly
	default:
		bridge.Kind = Rotation
		bridge.StartPeriod = trustedPeriod + 1
		bridge.Count = targetPeriod - trustedPeriod
	}
	return bridge
}

// CheckRotationUpdates verifies that updates is exactly the answer to a
// request for count updates from startPeriod, in period order. The API
// signals updates which are not finalized yet with a zero finalized slot.
func (s Spec) CheckRotationUpdates(updates []LightClientUpdate, startPeriod, count uint64) error {
	if uint64(len(updates)) != count {
		return types.NotYetAvailablef(
			"requested %d light client updates from period %d, got %d", count, startPeriod, len(updates),
		)
	}
	for i := range updates {
		update := &updates[i]
		period := startPeriod + uint64(i)
		if update.FinalizedHeader.Beacon.Slot == 0 {
			return types.NotYetAvailablef("light client update for period %d is not finalized yet", period)
		}
		if err := update.CheckSlots(); err != nil {
			return types.Fatalf(types.ErrFatal, "light client update for period %d: %s", period, err.Error())
		}
		attestedPeriod := s.PeriodOf(uint64(update.AttestedHeader.Beacon.Slot))
		if attestedPeriod != period {
			return types.Fatalf(
				types.ErrFatal,
				"light client update %d is attested in period %d, expected %d", i, attestedPeriod, period,
			)
		}
		if update.NextSyncCommittee == nil {
			return types.ResourceUnavailablef("light client update for period %d has no next sync committee", period)
		}
		if update.SyncAggregate.Participants() == 0 {
			return types.NotYetAvailablef("light client update for period %d has no sync committee participation", period)
		}
	}
	return nil
}
