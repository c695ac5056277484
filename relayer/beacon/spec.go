package beacon

import (
	"github.com/cockroachdb/errors"
)

// Spec holds the beacon chain constants the period arithmetic depends on.
type Spec struct {
	SecondsPerSlot               uint64 `json:"secondsPerSlot" toml:"seconds_per_slot"`
	SlotsPerEpoch                uint64 `json:"slotsPerEpoch" toml:"slots_per_epoch"`
	EpochsPerSyncCommitteePeriod uint64 `json:"epochsPerSyncCommitteePeriod" toml:"epochs_per_sync_committee_period"`
}

var (
	MainnetSpec = Spec{
		SecondsPerSlot:               12,
		SlotsPerEpoch:                32,
		EpochsPerSyncCommitteePeriod: 256,
	}
	MinimalSpec = Spec{
		SecondsPerSlot:               6,
		SlotsPerEpoch:                8,
		EpochsPerSyncCommitteePeriod: 8,
	}
)

// SpecFromPreset returns the constants of a named network.
func SpecFromPreset(preset string) (Spec, error) {
	switch preset {
	case "mainnet", "sepolia", "holesky":
		return MainnetSpec, nil
	case "minimal":
		return MinimalSpec, nil
	}
	return Spec{}, errors.Errorf("unknown beacon preset `%s`", preset)
}

func (s Spec) Check() error {
	if s.SecondsPerSlot == 0 || s.SlotsPerEpoch == 0 || s.EpochsPerSyncCommitteePeriod == 0 {
		return errors.Errorf("beacon spec constants must be positive, got %+v", s)
	}
	return nil
}

func (s Spec) SlotsPerPeriod() uint64 {
	return s.SlotsPerEpoch * s.EpochsPerSyncCommitteePeriod
}

func (s Spec) EpochOf(slot uint64) uint64 {
	return slot / s.SlotsPerEpoch
}

// PeriodOf maps a slot to its sync committee period.
func (s Spec) PeriodOf(slot uint64) uint64 {
	return s.EpochOf(slot) / s.EpochsPerSyncCommitteePeriod
}

func (s Spec) PeriodStartSlot(period uint64) uint64 {
	return period * s.SlotsPerPeriod()
}

// SlotTimestamp is the unix time at which slot starts.
func (s Spec) SlotTimestamp(genesisTime, slot uint64) uint64 {
	return genesisTime + slot*s.SecondsPerSlot
}

// SlotAt is the slot running at unix time timestamp.
func (s Spec) SlotAt(genesisTime, timestamp uint64) uint64 {
	if timestamp < genesisTime {
		return 0
	}
	return (timestamp - genesisTime) / s.SecondsPerSlot
}
