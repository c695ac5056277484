package tendermint

import (
	"context"

	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
)

const validatorsPerPage = 100

// RPC is the subset of the CometBFT RPC the relayer uses. It is implemented
// by the rpc/client/http client.
//
//go:generate go tool mockgen -destination=../../mocks/mock_tendermint_rpc.go -package=mocks github.com/NethermindEth/ibc-relayer/relayer/tendermint RPC
type RPC interface {
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
	Commit(ctx context.Context, height *int64) (*coretypes.ResultCommit, error)
	Validators(ctx context.Context, height *int64, page, perPage *int) (*coretypes.ResultValidators, error)
	Tx(ctx context.Context, hash []byte, prove bool) (*coretypes.ResultTx, error)
	BroadcastTxSync(ctx context.Context, tx cmttypes.Tx) (*coretypes.ResultBroadcastTx, error)
	ABCIQueryWithOptions(
		ctx context.Context, path string, data cmtbytes.HexBytes, opts rpcclient.ABCIQueryOptions,
	) (*coretypes.ResultABCIQuery, error)
}

// EventsClient is the websocket side of the CometBFT RPC.
type EventsClient interface {
	Subscribe(
		ctx context.Context, subscriber, query string, outCapacity ...int,
	) (<-chan coretypes.ResultEvent, error)
	UnsubscribeAll(ctx context.Context, subscriber string) error
}

// NewRPC dials the CometBFT RPC at url. The websocket is started so the
// client can serve subscriptions too.
func NewRPC(url string) (*rpchttp.HTTP, error) {
	client, err := rpchttp.New(url, "/websocket")
	if err != nil {
		return nil, err
	}
	if err := client.Start(); err != nil {
		return nil, err
	}
	return client, nil
}

// Revision is the revision number encoded in a chain id like `union-testnet-9`.
func Revision(chainId string) uint64 {
	return clienttypes.ParseChainID(chainId)
}

// fetchValidators collects every page of the validator set at height.
func fetchValidators(ctx context.Context, rpc RPC, height int64) ([]*cmttypes.Validator, error) {
	perPage := validatorsPerPage
	validators := []*cmttypes.Validator{}
	for page := 1; ; page++ {
		result, err := rpc.Validators(ctx, &height, &page, &perPage)
		if err != nil {
			return nil, err
		}
		validators = append(validators, result.Validators...)
		if len(validators) >= result.Total || len(result.Validators) == 0 {
			return validators, nil
		}
	}
}
