package tendermint

import (
	"context"
	"fmt"

	"github.com/NethermindEth/ibc-relayer/relayer/prover"
	"github.com/NethermindEth/ibc-relayer/relayer/task"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmttypes "github.com/cometbft/cometbft/types"
)

const Family = "tendermint"

// Prover aggregates commit signatures into a zero knowledge proof.
//
//go:generate go tool mockgen -destination=../../mocks/mock_prover.go -package=mocks github.com/NethermindEth/ibc-relayer/relayer/tendermint Prover
type Prover interface {
	Prove(ctx context.Context, request any) (string, error)
	Poll(ctx context.Context, id string) (*prover.PollResponse, error)
}

type MessageEncoder interface {
	EncodeUpdateMessage(clientId types.ClientId, header any) (types.Datagram, error)
}

// ProveRequest is the prover input for one untrusted header.
type ProveRequest struct {
	ChainId         string             `json:"chain_id"`
	TrustedHeight   uint64             `json:"trusted_height"`
	UntrustedHeight uint64             `json:"untrusted_height"`
	Round           int32              `json:"round"`
	BlockHash       cmtbytes.HexBytes  `json:"block_hash"`
	Trusted         ValidatorSetCommit `json:"trusted_commit"`
	Untrusted       ValidatorSetCommit `json:"untrusted_commit"`
}

// Header is the client message submitted to a Tendermint light client.
type Header struct {
	SignedHeader       *cmttypes.SignedHeader `json:"signed_header"`
	TrustedHeight      types.Height           `json:"trusted_height"`
	ZeroKnowledgeProof cmtbytes.HexBytes      `json:"zero_knowledge_proof"`
}

func (h *Header) NewHeight() types.Height {
	return types.NewHeight(h.TrustedHeight.RevisionNumber, uint64(h.SignedHeader.Height))
}

// Fetch kinds
type (
	FetchCommit struct {
		Height uint64
	}
	FetchValidators struct {
		Height uint64
	}
	// RequestProof submits the request and resolves to a WaitForProof.
	RequestProof struct {
		Request ProveRequest
	}
)

// Wait kinds
type (
	// WaitForBlock is done once the commit of Height is canonical.
	WaitForBlock struct {
		Height uint64
	}
	WaitForProof struct {
		Id string
	}
)

// Aggregate kinds
type (
	MakeCreateUpdates struct {
		Request types.FetchUpdateHeaders
	}
	MakeProveRequest struct {
		Request types.FetchUpdateHeaders
	}
	MakeUpdate struct {
		Request      types.FetchUpdateHeaders
		SignedHeader *cmttypes.SignedHeader
	}
)

func (FetchCommit) Family() string       { return Family }
func (FetchValidators) Family() string   { return Family }
func (RequestProof) Family() string      { return Family }
func (WaitForBlock) Family() string      { return Family }
func (WaitForProof) Family() string      { return Family }
func (MakeCreateUpdates) Family() string { return Family }
func (MakeProveRequest) Family() string  { return Family }
func (MakeUpdate) Family() string        { return Family }

func (k FetchCommit) String() string     { return fmt.Sprintf("commit at %d", k.Height) }
func (k FetchValidators) String() string { return fmt.Sprintf("validators at %d", k.Height) }
func (k RequestProof) String() string {
	return fmt.Sprintf("proof of %d trusting %d", k.Request.UntrustedHeight, k.Request.TrustedHeight)
}
func (k WaitForBlock) String() string { return fmt.Sprintf("block after %d", k.Height) }
func (k WaitForProof) String() string { return "proof " + k.Id }
func (k MakeCreateUpdates) String() string {
	return "make create updates " + k.Request.String()
}
func (k MakeProveRequest) String() string {
	return "make prove request " + k.Request.String()
}
func (k MakeUpdate) String() string { return "make update " + k.Request.String() }

// Pipeline builds the update headers of a Tendermint light client living
// on an EVM chain.
type Pipeline struct {
	logger  *utils.ZapLogger
	chainId string
	rpc     RPC
	prover  Prover
	encoder MessageEncoder
}

func NewPipeline(
	logger *utils.ZapLogger, chainId string, rpc RPC, prover Prover, encoder MessageEncoder,
) *Pipeline {
	return &Pipeline{
		logger:  logger,
		chainId: chainId,
		rpc:     rpc,
		prover:  prover,
		encoder: encoder,
	}
}

// MakeCreateUpdates is the root of the task graph answering req.
func (p *Pipeline) MakeCreateUpdates(req *types.FetchUpdateHeaders) task.Node {
	return task.Aggregate{
		Deps: []task.Node{task.Wait{Kind: WaitForBlock{Height: req.UpdateTo.RevisionHeight}}},
		Kind: MakeCreateUpdates{Request: *req},
	}
}

func (p *Pipeline) Fetch(ctx context.Context, kind task.Kind) (task.Node, error) {
	switch k := kind.(type) {
	case FetchCommit:
		height := int64(k.Height)
		result, err := p.rpc.Commit(ctx, &height)
		if err != nil {
			return nil, types.MarkTransient(errors.Wrapf(err, "fetching commit at %d", k.Height))
		}
		if result.Header == nil || result.Commit == nil {
			return nil, types.ResourceUnavailablef("commit at %d has no signed header", k.Height)
		}
		if !result.CanonicalCommit {
			return nil, types.NotYetAvailablef("commit at %d is not canonical yet", k.Height)
		}
		return task.Data{Value: &result.SignedHeader}, nil
	case FetchValidators:
		validators, err := fetchValidators(ctx, p.rpc, int64(k.Height))
		if err != nil {
			return nil, types.MarkTransient(errors.Wrapf(err, "fetching validators at %d", k.Height))
		}
		return task.Data{Value: validators}, nil
	case RequestProof:
		id, err := p.prover.Prove(ctx, &k.Request)
		if err != nil {
			return nil, err
		}
		p.logger.Infow(
			"Requested header proof",
			"id", id,
			"untrusted height", k.Request.UntrustedHeight,
			"trusted height", k.Request.TrustedHeight,
		)
		return task.Wait{Kind: WaitForProof{Id: id}}, nil
	default:
		return nil, types.Fatalf(types.ErrFatal, "unexpected tendermint fetch %T", kind)
	}
}

func (p *Pipeline) Wait(ctx context.Context, kind task.Kind) (any, bool, error) {
	switch k := kind.(type) {
	case WaitForBlock:
		status, err := p.rpc.Status(ctx)
		if err != nil {
			return nil, false, types.MarkTransient(errors.Wrap(err, "fetching status"))
		}
		latest := uint64(status.SyncInfo.LatestBlockHeight)
		if latest <= k.Height {
			p.logger.Debugw("Waiting for source block", "latest height", latest, "target height", k.Height)
			return nil, false, nil
		}
		return latest, true, nil
	case WaitForProof:
		resp, err := p.prover.Poll(ctx, k.Id)
		if err != nil {
			return nil, false, err
		}
		if resp.Status != prover.StatusDone {
			return nil, false, nil
		}
		return []byte(resp.Proof), true, nil
	default:
		return nil, false, types.Fatalf(types.ErrFatal, "unexpected tendermint wait %T", kind)
	}
}

func (p *Pipeline) Aggregate(_ context.Context, kind task.Kind, inputs []any) (task.Node, error) {
	switch k := kind.(type) {
	case MakeCreateUpdates:
		if !k.Request.UpdateFrom.LT(k.Request.UpdateTo) {
			p.logger.Debugw("Client already trusts the target height", "request", k.Request.String())
			return task.Data{Value: types.Plan{}}, nil
		}
		return task.Aggregate{
			Deps: []task.Node{
				task.Fetch{Kind: FetchCommit{Height: k.Request.UpdateTo.RevisionHeight}},
				task.Fetch{Kind: FetchValidators{Height: k.Request.UpdateFrom.RevisionHeight}},
				task.Fetch{Kind: FetchValidators{Height: k.Request.UpdateTo.RevisionHeight}},
			},
			Kind: MakeProveRequest{Request: k.Request},
		}, nil
	case MakeProveRequest:
		return p.makeProveRequest(&k.Request, inputs)
	case MakeUpdate:
		proof, err := task.Input[[]byte](inputs, 0)
		if err != nil {
			return nil, err
		}
		return p.makeUpdate(&k.Request, k.SignedHeader, proof)
	default:
		return nil, types.Fatalf(types.ErrFatal, "unexpected tendermint aggregate %T", kind)
	}
}

func (p *Pipeline) makeProveRequest(req *types.FetchUpdateHeaders, inputs []any) (task.Node, error) {
	signedHeader, err := task.Input[*cmttypes.SignedHeader](inputs, 0)
	if err != nil {
		return nil, err
	}
	trustedValidators, err := task.Input[[]*cmttypes.Validator](inputs, 1)
	if err != nil {
		return nil, err
	}
	untrustedValidators, err := task.Input[[]*cmttypes.Validator](inputs, 2)
	if err != nil {
		return nil, err
	}

	trusted := MakeValidatorsCommit(p.logger, trustedValidators, signedHeader.Commit)
	untrusted := MakeValidatorsCommit(p.logger, untrustedValidators, signedHeader.Commit)
	if !untrusted.HasQuorum() {
		signed, total := untrusted.SignedPower()
		return nil, types.Fatalf(
			types.ErrFatal,
			"commit at %d is signed by %s of %s voting power",
			signedHeader.Height, signed, total,
		)
	}

	request := ProveRequest{
		ChainId:         p.chainId,
		TrustedHeight:   req.UpdateFrom.RevisionHeight,
		UntrustedHeight: uint64(signedHeader.Height),
		Round:           signedHeader.Commit.Round,
		BlockHash:       signedHeader.Commit.BlockID.Hash,
		Trusted:         trusted,
		Untrusted:       untrusted,
	}
	return task.Aggregate{
		Deps: []task.Node{task.Fetch{Kind: RequestProof{Request: request}}},
		Kind: MakeUpdate{Request: *req, SignedHeader: signedHeader},
	}, nil
}

func (p *Pipeline) makeUpdate(
	req *types.FetchUpdateHeaders, signedHeader *cmttypes.SignedHeader, proof []byte,
) (task.Node, error) {
	header := &Header{
		SignedHeader:       signedHeader,
		TrustedHeight:      req.UpdateFrom,
		ZeroKnowledgeProof: proof,
	}
	datagram, err := p.encoder.EncodeUpdateMessage(req.ClientId, header)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding update for client %s", req.ClientId)
	}
	datagram.ChainId = req.CounterpartyChainId
	datagram.ClientId = req.ClientId
	datagram.Kind = types.UpdateClientDatagram
	datagram.Height = header.NewHeight()

	p.logger.Debugw(
		"Assembled tendermint header",
		"client", req.ClientId,
		"trusted height", req.UpdateFrom,
		"height", signedHeader.Height,
	)
	return task.Data{Value: types.Plan{
		types.WaitForTimestamp{
			ChainId:   req.CounterpartyChainId,
			Timestamp: uint64(signedHeader.Time.Unix()),
		},
		types.Submit{Datagram: datagram},
	}}, nil
}
