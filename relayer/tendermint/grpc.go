package tendermint

import (
	"context"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/cockroachdb/errors"
	"github.com/cosmos/cosmos-sdk/types/query"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Querier reads the auth and IBC client modules of a Cosmos chain over
// gRPC.
type Querier struct {
	conn    *grpc.ClientConn
	auth    authtypes.QueryClient
	clients clienttypes.QueryClient
}

func NewQuerier(target string) (*Querier, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrapf(err, "dialing gRPC endpoint %s", target)
	}
	return NewQuerierFromConn(conn), nil
}

func NewQuerierFromConn(conn *grpc.ClientConn) *Querier {
	return &Querier{
		conn:    conn,
		auth:    authtypes.NewQueryClient(conn),
		clients: clienttypes.NewQueryClient(conn),
	}
}

func (q *Querier) Close() error {
	return q.conn.Close()
}

// AccountInfo returns the account number and the next sequence of address.
func (q *Querier) AccountInfo(ctx context.Context, address string) (uint64, uint64, error) {
	resp, err := q.auth.AccountInfo(ctx, &authtypes.QueryAccountInfoRequest{Address: address})
	if err != nil {
		return 0, 0, classifyQueryError(errors.Wrapf(err, "querying account %s", address), types.ErrResourceUnavailable)
	}
	if resp.Info == nil {
		return 0, 0, types.ResourceUnavailablef("account %s has no info", address)
	}
	return resp.Info.AccountNumber, resp.Info.Sequence, nil
}

// ConsensusHeights lists every height clientId holds a consensus state for.
func (q *Querier) ConsensusHeights(ctx context.Context, clientId types.ClientId) ([]types.Height, error) {
	heights := []types.Height{}
	var next []byte
	for {
		resp, err := q.clients.ConsensusStateHeights(ctx, &clienttypes.QueryConsensusStateHeightsRequest{
			ClientId:   clientId.String(),
			Pagination: &query.PageRequest{Key: next},
		})
		if err != nil {
			return nil, classifyQueryError(
				errors.Wrapf(err, "querying consensus heights of %s", clientId), types.ErrUnknownClient,
			)
		}
		heights = append(heights, resp.ConsensusStateHeights...)
		if resp.Pagination == nil || len(resp.Pagination.NextKey) == 0 {
			return heights, nil
		}
		next = resp.Pagination.NextKey
	}
}

// LatestHeight is the greatest height clientId has verified.
func (q *Querier) LatestHeight(ctx context.Context, clientId types.ClientId) (types.Height, error) {
	heights, err := q.ConsensusHeights(ctx, clientId)
	if err != nil {
		return types.Height{}, err
	}
	if len(heights) == 0 {
		return types.Height{}, types.Fatalf(types.ErrUnknownClient, "client %s has no consensus state", clientId)
	}
	latest := heights[0]
	for _, height := range heights[1:] {
		if height.GT(latest) {
			latest = height
		}
	}
	return latest, nil
}

// classifyQueryError marks a missing resource with notFound.
func classifyQueryError(err error, notFound error) error {
	switch status.Code(errors.UnwrapAll(err)) {
	case codes.NotFound:
		return errors.Mark(errors.Mark(err, notFound), types.ErrFatal)
	case codes.InvalidArgument:
		return errors.Mark(err, types.ErrFatal)
	default:
		return types.MarkTransient(err)
	}
}
