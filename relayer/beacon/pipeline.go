package beacon

import (
	"context"
	"fmt"
	"strconv"

	"github.com/NethermindEth/ibc-relayer/relayer/task"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
)

const Family = "beacon"

// AccountProofReader proves the IBC handler account at the execution block
// of a beacon slot.
type AccountProofReader interface {
	AccountUpdate(ctx context.Context, slot uint64) (AccountUpdate, error)
}

// MessageEncoder turns a header into the UpdateClient datagram of the
// destination chain.
type MessageEncoder interface {
	EncodeUpdateMessage(clientId types.ClientId, header any) (types.Datagram, error)
}

// ConsensusHeightsReader lists the heights a destination client has
// verified. Only needed for reverse updates.
type ConsensusHeightsReader interface {
	ConsensusHeights(ctx context.Context, clientId types.ClientId) ([]types.Height, error)
}

// Fetch kinds
type (
	FetchLightClientUpdates struct {
		StartPeriod uint64
		Count       uint64
	}
	// FetchSyncCommittee resolves the committee signing during Period. When
	// CheckpointSlot is a finalized slot of that period its bootstrap is used.
	FetchSyncCommittee struct {
		Period         uint64
		CheckpointSlot uint64
	}
	FetchAccountUpdate struct {
		Slot uint64
	}
	FetchGenesis struct{}
	// FetchReverseAnchor finds the greatest verified height of a client inside
	// a period.
	FetchReverseAnchor struct {
		ClientId types.ClientId
		Period   uint64
		MaxSlot  uint64
	}
)

// Wait kinds
type (
	// WaitForFinality is done once the source has attested Slot. Its value is
	// the finality update.
	WaitForFinality struct {
		Slot uint64
	}
)

// Aggregate kinds
type (
	MakeCreateUpdates struct {
		Request types.FetchUpdateHeaders
	}
	MakeCreateUpdatesFromLightClientUpdates struct {
		Request  types.FetchUpdateHeaders
		Finality LightClientFinalityUpdate
	}
	MakeReverseUpdate struct {
		Request  types.FetchUpdateHeaders
		Finality LightClientFinalityUpdate
	}
	// CreateUpdateData joins an update, its account proof, the genesis and
	// the trusted committee into a header.
	CreateUpdateData struct {
		Request     types.FetchUpdateHeaders
		TrustedSlot uint64
		IsNext      bool
	}
)

func (FetchLightClientUpdates) Family() string                 { return Family }
func (FetchSyncCommittee) Family() string                      { return Family }
func (FetchAccountUpdate) Family() string                      { return Family }
func (FetchGenesis) Family() string                            { return Family }
func (FetchReverseAnchor) Family() string                      { return Family }
func (WaitForFinality) Family() string                         { return Family }
func (MakeCreateUpdates) Family() string                       { return Family }
func (MakeCreateUpdatesFromLightClientUpdates) Family() string { return Family }
func (MakeReverseUpdate) Family() string                       { return Family }
func (CreateUpdateData) Family() string                        { return Family }

func (k FetchLightClientUpdates) String() string {
	return fmt.Sprintf("light client updates (start period %d, count %d)", k.StartPeriod, k.Count)
}
func (k FetchSyncCommittee) String() string {
	return fmt.Sprintf("sync committee of period %d", k.Period)
}
func (k FetchAccountUpdate) String() string { return fmt.Sprintf("account update at slot %d", k.Slot) }
func (FetchGenesis) String() string         { return "genesis" }
func (k FetchReverseAnchor) String() string {
	return fmt.Sprintf("reverse anchor of %s in period %d", k.ClientId, k.Period)
}
func (k WaitForFinality) String() string { return fmt.Sprintf("finality of slot %d", k.Slot) }
func (k MakeCreateUpdates) String() string {
	return "make create updates " + k.Request.String()
}
func (k MakeCreateUpdatesFromLightClientUpdates) String() string {
	return "make create updates from light client updates " + k.Request.String()
}
func (k MakeReverseUpdate) String() string { return "make reverse update " + k.Request.String() }
func (k CreateUpdateData) String() string {
	return fmt.Sprintf("create update data (client %s, trusted slot %d, next %t)",
		k.Request.ClientId, k.TrustedSlot, k.IsNext)
}

// Pipeline builds the update headers of a beacon chain light client living
// on some destination chain.
type Pipeline struct {
	logger   *utils.ZapLogger
	spec     Spec
	api      ConsensusAPI
	accounts AccountProofReader
	encoder  MessageEncoder

	// Optional, reverse updates are refused when nil.
	heights            ConsensusHeightsReader
	allowReverseUpdate bool
}

func NewPipeline(
	logger *utils.ZapLogger,
	spec Spec,
	api ConsensusAPI,
	accounts AccountProofReader,
	encoder MessageEncoder,
) *Pipeline {
	return &Pipeline{
		logger:   logger,
		spec:     spec,
		api:      api,
		accounts: accounts,
		encoder:  encoder,
	}
}

// WithReverseUpdates lets the pipeline move a client back to an earlier
// period, anchored on a height the client already verified.
func (p *Pipeline) WithReverseUpdates(heights ConsensusHeightsReader) *Pipeline {
	p.heights = heights
	p.allowReverseUpdate = true
	return p
}

func (p *Pipeline) Spec() Spec {
	return p.spec
}

// MakeCreateUpdates is the root of the task graph answering req.
func (p *Pipeline) MakeCreateUpdates(req *types.FetchUpdateHeaders) task.Node {
	return task.Aggregate{
		Deps: []task.Node{task.Wait{Kind: WaitForFinality{Slot: req.UpdateTo.RevisionHeight}}},
		Kind: MakeCreateUpdates{Request: *req},
	}
}

func (p *Pipeline) Fetch(ctx context.Context, kind task.Kind) (task.Node, error) {
	switch k := kind.(type) {
	case FetchLightClientUpdates:
		updates, err := p.api.LightClientUpdates(ctx, k.StartPeriod, k.Count)
		if err != nil {
			return nil, err
		}
		if err := p.spec.CheckRotationUpdates(updates, k.StartPeriod, k.Count); err != nil {
			return nil, err
		}
		return task.Data{Value: updates}, nil
	case FetchSyncCommittee:
		committee, err := p.syncCommittee(ctx, k.Period, k.CheckpointSlot)
		if err != nil {
			return nil, err
		}
		return task.Data{Value: committee}, nil
	case FetchAccountUpdate:
		account, err := p.accounts.AccountUpdate(ctx, k.Slot)
		if err != nil {
			return nil, err
		}
		return task.Data{Value: account}, nil
	case FetchGenesis:
		genesis, err := p.api.Genesis(ctx)
		if err != nil {
			return nil, err
		}
		return task.Data{Value: genesis}, nil
	case FetchReverseAnchor:
		anchor, err := p.reverseAnchor(ctx, k)
		if err != nil {
			return nil, err
		}
		return task.Data{Value: anchor}, nil
	default:
		return nil, types.Fatalf(types.ErrFatal, "unexpected beacon fetch %T", kind)
	}
}

func (p *Pipeline) Wait(ctx context.Context, kind task.Kind) (any, bool, error) {
	k, ok := kind.(WaitForFinality)
	if !ok {
		return nil, false, types.Fatalf(types.ErrFatal, "unexpected beacon wait %T", kind)
	}
	finality, err := p.api.FinalityUpdate(ctx)
	if err != nil {
		return nil, false, err
	}
	attested := uint64(finality.AttestedHeader.Beacon.Slot)
	if attested < k.Slot || finality.FinalizedHeader.Beacon.Slot == 0 {
		p.logger.Debugw("Waiting for source finality", "attested slot", attested, "target slot", k.Slot)
		return nil, false, nil
	}
	update := finality.AsUpdate()
	if err := update.CheckSlots(); err != nil {
		return nil, false, types.Fatalf(types.ErrFatal, "finality update: %s", err.Error())
	}
	return *finality, true, nil
}

func (p *Pipeline) Aggregate(ctx context.Context, kind task.Kind, inputs []any) (task.Node, error) {
	switch k := kind.(type) {
	case MakeCreateUpdates:
		finality, err := task.Input[LightClientFinalityUpdate](inputs, 0)
		if err != nil {
			return nil, err
		}
		return p.makeCreateUpdates(&k.Request, &finality)
	case MakeCreateUpdatesFromLightClientUpdates:
		updates, err := task.Input[[]LightClientUpdate](inputs, 0)
		if err != nil {
			return nil, err
		}
		return p.makeCreateUpdatesFromLightClientUpdates(&k.Request, &k.Finality, updates), nil
	case MakeReverseUpdate:
		anchor, err := task.Input[uint64](inputs, 0)
		if err != nil {
			return nil, err
		}
		p.logger.Infow(
			"Updating client back to an earlier period",
			"client", k.Request.ClientId,
			"anchor slot", anchor,
			"attested slot", k.Finality.AttestedHeader.Beacon.Slot,
		)
		return task.Sequence{Steps: []task.Node{
			p.createUpdateData(&k.Request, k.Finality.AsUpdate(), anchor, false,
				task.Fetch{Kind: FetchSyncCommittee{
					Period:         p.spec.PeriodOf(anchor),
					CheckpointSlot: uint64(k.Finality.FinalizedHeader.Beacon.Slot),
				}}),
		}}, nil
	case CreateUpdateData:
		return p.buildUpdate(&k, inputs)
	default:
		return nil, types.Fatalf(types.ErrFatal, "unexpected beacon aggregate %T", kind)
	}
}

func (p *Pipeline) makeCreateUpdates(
	req *types.FetchUpdateHeaders, finality *LightClientFinalityUpdate,
) (task.Node, error) {
	trustedSlot := req.UpdateFrom.RevisionHeight
	attestedSlot := uint64(finality.AttestedHeader.Beacon.Slot)
	bridge := p.spec.PlanBridge(trustedSlot, req.UpdateTo.RevisionHeight, attestedSlot)

	p.logger.Debugw(
		"Planned trust bridge",
		"client", req.ClientId,
		"kind", bridge.Kind.String(),
		"trusted period", bridge.TrustedPeriod,
		"target period", bridge.TargetPeriod,
	)

	switch bridge.Kind {
	case NoUpdate:
		return task.Data{Value: types.Plan{}}, nil
	case FinalityOnly:
		return task.Sequence{Steps: []task.Node{
			p.createUpdateData(req, finality.AsUpdate(), trustedSlot, false,
				task.Fetch{Kind: FetchSyncCommittee{
					Period:         bridge.TrustedPeriod,
					CheckpointSlot: uint64(finality.FinalizedHeader.Beacon.Slot),
				}}),
		}}, nil
	case Rotation:
		return task.Aggregate{
			Deps: []task.Node{task.Fetch{Kind: FetchLightClientUpdates{
				StartPeriod: bridge.StartPeriod,
				Count:       bridge.Count,
			}}},
			Kind: MakeCreateUpdatesFromLightClientUpdates{Request: *req, Finality: *finality},
		}, nil
	case Reverse:
		if !p.allowReverseUpdate || p.heights == nil {
			return nil, types.Fatalf(
				types.ErrPeriodRegression,
				"client %s trusts period %d, source is attested at period %d",
				req.ClientId, bridge.TrustedPeriod, bridge.TargetPeriod,
			)
		}
		return task.Aggregate{
			Deps: []task.Node{task.Fetch{Kind: FetchReverseAnchor{
				ClientId: req.ClientId,
				Period:   bridge.TargetPeriod,
				MaxSlot:  attestedSlot,
			}}},
			Kind: MakeReverseUpdate{Request: *req, Finality: *finality},
		}, nil
	default:
		return nil, types.Fatalf(types.ErrFatal, "unknown bridge kind %d", bridge.Kind)
	}
}

// makeCreateUpdatesFromLightClientUpdates chains one header per rotation
// update, each trusting the attested slot of the previous one, and closes the
// chain with the finality update if the last rotation stops short of the
// requested height.
func (p *Pipeline) makeCreateUpdatesFromLightClientUpdates(
	req *types.FetchUpdateHeaders,
	finality *LightClientFinalityUpdate,
	updates []LightClientUpdate,
) task.Node {
	steps := make([]task.Node, 0, len(updates)+1)
	trustedSlot := req.UpdateFrom.RevisionHeight

	// the first rotation is signed by the committee following the trusted one
	var committee task.Node = task.Fetch{Kind: FetchSyncCommittee{
		Period: p.spec.PeriodOf(trustedSlot) + 1,
	}}
	for i := range updates {
		if i > 0 {
			committee = task.Data{Value: updates[i-1].NextSyncCommittee}
		}
		steps = append(steps, p.createUpdateData(req, updates[i], trustedSlot, true, committee))
		trustedSlot = uint64(updates[i].AttestedHeader.Beacon.Slot)
	}

	if trustedSlot < req.UpdateTo.RevisionHeight &&
		trustedSlot < uint64(finality.AttestedHeader.Beacon.Slot) {
		// the last rotation made its signing committee the current one
		steps = append(steps, p.createUpdateData(req, finality.AsUpdate(), trustedSlot, false, committee))
	}
	return task.Sequence{Steps: steps}
}

func (p *Pipeline) createUpdateData(
	req *types.FetchUpdateHeaders,
	update LightClientUpdate,
	trustedSlot uint64,
	isNext bool,
	committee task.Node,
) task.Node {
	return task.Aggregate{
		Deps: []task.Node{
			task.Data{Value: update},
			task.Fetch{Kind: FetchAccountUpdate{Slot: uint64(update.AttestedHeader.Beacon.Slot)}},
			task.Fetch{Kind: FetchGenesis{}},
			committee,
		},
		Kind: CreateUpdateData{Request: *req, TrustedSlot: trustedSlot, IsNext: isNext},
	}
}

func (p *Pipeline) buildUpdate(k *CreateUpdateData, inputs []any) (task.Node, error) {
	update, err := task.Input[LightClientUpdate](inputs, 0)
	if err != nil {
		return nil, err
	}
	account, err := task.Input[AccountUpdate](inputs, 1)
	if err != nil {
		return nil, err
	}
	genesis, err := task.Input[*Genesis](inputs, 2)
	if err != nil {
		return nil, err
	}
	committee, err := task.Input[*SyncCommittee](inputs, 3)
	if err != nil {
		return nil, err
	}

	active := CurrentCommittee(committee)
	if k.IsNext {
		active = NextCommittee(committee)
	}
	header := &Header{
		ConsensusUpdate: update,
		TrustedSyncCommittee: TrustedSyncCommittee{
			TrustedHeight: types.NewHeight(k.Request.UpdateFrom.RevisionNumber, k.TrustedSlot),
			SyncCommittee: active,
		},
		AccountUpdate: account,
	}

	datagram, err := p.encoder.EncodeUpdateMessage(k.Request.ClientId, header)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding update for client %s", k.Request.ClientId)
	}
	datagram.ChainId = k.Request.CounterpartyChainId
	datagram.ClientId = k.Request.ClientId
	datagram.Kind = types.UpdateClientDatagram
	datagram.Height = header.NewHeight()

	deadline := p.spec.SlotTimestamp(uint64(genesis.GenesisTime), uint64(update.SignatureSlot))
	p.logger.Debugw(
		"Assembled beacon header",
		"client", k.Request.ClientId,
		"trusted slot", k.TrustedSlot,
		"attested slot", update.AttestedHeader.Beacon.Slot,
		"next committee", k.IsNext,
		"not before", deadline,
	)

	return task.Data{Value: types.Plan{
		types.WaitForTimestamp{ChainId: k.Request.CounterpartyChainId, Timestamp: deadline},
		types.Submit{Datagram: datagram},
	}}, nil
}

// syncCommittee returns the committee signing during period. It is the
// current committee of a bootstrap taken inside the period, or else the next
// committee of the previous period's update.
func (p *Pipeline) syncCommittee(ctx context.Context, period, checkpointSlot uint64) (*SyncCommittee, error) {
	if period == 0 {
		return p.bootstrapCommittee(ctx, 0)
	}
	if checkpointSlot != 0 && p.spec.PeriodOf(checkpointSlot) == period {
		committee, err := p.bootstrapCommittee(ctx, checkpointSlot)
		if err == nil {
			return committee, nil
		}
		if !errors.Is(err, types.ErrResourceUnavailable) {
			return nil, err
		}
		p.logger.Debugw("No bootstrap at checkpoint, using previous period update",
			"slot", checkpointSlot, "error", err)
	}

	updates, err := p.api.LightClientUpdates(ctx, period-1, 1)
	if err != nil {
		return nil, err
	}
	if len(updates) != 1 {
		return nil, types.NotYetAvailablef("no light client update for period %d", period-1)
	}
	if updates[0].FinalizedHeader.Beacon.Slot == 0 {
		return nil, types.NotYetAvailablef("light client update for period %d is not finalized yet", period-1)
	}
	if updates[0].NextSyncCommittee == nil {
		return nil, types.ResourceUnavailablef("light client update for period %d has no next sync committee", period-1)
	}
	return updates[0].NextSyncCommittee, nil
}

func (p *Pipeline) bootstrapCommittee(ctx context.Context, slot uint64) (*SyncCommittee, error) {
	_, root, err := p.api.Header(ctx, strconv.FormatUint(slot, 10))
	if err != nil {
		return nil, err
	}
	bootstrap, err := p.api.Bootstrap(ctx, root)
	if err != nil {
		return nil, err
	}
	return &bootstrap.CurrentSyncCommittee, nil
}

func (p *Pipeline) reverseAnchor(ctx context.Context, k FetchReverseAnchor) (uint64, error) {
	heights, err := p.heights.ConsensusHeights(ctx, k.ClientId)
	if err != nil {
		return 0, err
	}
	var anchor uint64
	found := false
	for _, height := range heights {
		slot := height.RevisionHeight
		if p.spec.PeriodOf(slot) != k.Period || slot > k.MaxSlot {
			continue
		}
		if !found || slot > anchor {
			anchor = slot
			found = true
		}
	}
	if !found {
		return 0, types.Fatalf(
			types.ErrPeriodRegression,
			"client %s has no verified height in period %d to update back from", k.ClientId, k.Period,
		)
	}
	return anchor, nil
}
