package tendermint

import (
	"context"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
)

// StateProof is a value of the IBC store with its merkle proof.
type StateProof struct {
	Path        string
	Value       []byte
	Proof       []byte
	ProofHeight types.Height
}

const ibcKeyPath = "store/" + ibcexported.StoreKey + "/key"

// ProofReader reads IBC state of a CometBFT chain through ABCI queries.
type ProofReader struct {
	logger   *utils.ZapLogger
	rpc      RPC
	revision uint64
}

func NewProofReader(logger *utils.ZapLogger, rpc RPC, chainId string) *ProofReader {
	return &ProofReader{
		logger:   logger,
		rpc:      rpc,
		revision: Revision(chainId),
	}
}

// ReadStateWithProof proves path against the app hash of height. State
// committed by block h is in the app hash of block h+1, so the query runs at
// height-1.
func (r *ProofReader) ReadStateWithProof(
	ctx context.Context, path types.Path, height types.Height,
) (StateProof, error) {
	if height.RevisionHeight < 2 {
		return StateProof{}, types.Fatalf(types.ErrFatal, "cannot prove state at height %s", height)
	}
	rawPath := path.String()

	resp, err := r.rpc.ABCIQueryWithOptions(ctx, ibcKeyPath, []byte(rawPath), rpcclient.ABCIQueryOptions{
		Height: int64(height.RevisionHeight) - 1,
		Prove:  true,
	})
	if err != nil {
		return StateProof{}, types.MarkTransient(errors.Wrapf(err, "abci query of %s at %s", rawPath, height))
	}
	if !resp.Response.IsOK() {
		return StateProof{}, errors.Errorf(
			"abci query of %s at %s failed with code %s/%d: %s",
			rawPath, height, resp.Response.Codespace, resp.Response.Code, resp.Response.Log,
		)
	}

	merkleProof, err := commitmenttypes.ConvertProofs(resp.Response.ProofOps)
	if err != nil {
		return StateProof{}, types.Fatalf(types.ErrFatal, "converting proof of %s: %s", rawPath, err.Error())
	}
	proof, err := merkleProof.Marshal()
	if err != nil {
		return StateProof{}, errors.Wrapf(err, "encoding proof of %s", rawPath)
	}

	proofHeight := types.NewHeight(r.revision, uint64(resp.Response.Height)+1)
	r.logger.Debugw(
		"Read state with proof",
		"path", rawPath,
		"query height", resp.Response.Height,
		"proof height", proofHeight,
		"exists", len(resp.Response.Value) > 0,
	)
	return StateProof{
		Path:        rawPath,
		Value:       resp.Response.Value,
		Proof:       proof,
		ProofHeight: proofHeight,
	}, nil
}
