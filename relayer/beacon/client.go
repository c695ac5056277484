package beacon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"
)

// ConsensusAPI is the subset of the beacon node API the relayer reads.
//
//go:generate go tool mockgen -destination=../../mocks/mock_beacon.go -package=mocks github.com/NethermindEth/ibc-relayer/relayer/beacon ConsensusAPI
type ConsensusAPI interface {
	FinalityUpdate(ctx context.Context) (*LightClientFinalityUpdate, error)
	LightClientUpdates(ctx context.Context, startPeriod, count uint64) ([]LightClientUpdate, error)
	Bootstrap(ctx context.Context, blockRoot common.Hash) (*LightClientBootstrap, error)
	// Header returns the header at blockId (a slot, a root, or a named tag)
	// together with its root.
	Header(ctx context.Context, blockId string) (*BeaconBlockHeader, common.Hash, error)
	Genesis(ctx context.Context) (*Genesis, error)
	ExecutionHeightOfSlot(ctx context.Context, slot uint64) (uint64, error)
}

type HTTPClient struct {
	url    string
	client *http.Client

	genesisGroup singleflight.Group
	genesisMu    sync.RWMutex
	genesis      *Genesis
}

func NewHTTPClient(beaconUrl string, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		url:    strings.TrimRight(beaconUrl, "/"),
		client: client,
	}
}

type versioned[T any] struct {
	Version string `json:"version"`
	Data    T      `json:"data"`
}

func (c *HTTPClient) FinalityUpdate(ctx context.Context) (*LightClientFinalityUpdate, error) {
	var resp versioned[LightClientFinalityUpdate]
	if err := c.get(ctx, "/eth/v1/beacon/light_client/finality_update", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *HTTPClient) LightClientUpdates(
	ctx context.Context, startPeriod, count uint64,
) ([]LightClientUpdate, error) {
	query := url.Values{}
	query.Set("start_period", strconv.FormatUint(startPeriod, 10))
	query.Set("count", strconv.FormatUint(count, 10))

	var resp []versioned[LightClientUpdate]
	if err := c.get(ctx, "/eth/v1/beacon/light_client/updates", query, &resp); err != nil {
		return nil, err
	}
	updates := make([]LightClientUpdate, len(resp))
	for i := range resp {
		updates[i] = resp[i].Data
	}
	return updates, nil
}

func (c *HTTPClient) Bootstrap(ctx context.Context, blockRoot common.Hash) (*LightClientBootstrap, error) {
	var resp versioned[LightClientBootstrap]
	if err := c.get(ctx, "/eth/v1/beacon/light_client/bootstrap/"+blockRoot.Hex(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *HTTPClient) Header(ctx context.Context, blockId string) (*BeaconBlockHeader, common.Hash, error) {
	var resp versioned[struct {
		Root   common.Hash `json:"root"`
		Header struct {
			Message BeaconBlockHeader `json:"message"`
		} `json:"header"`
	}]
	if err := c.get(ctx, "/eth/v1/beacon/headers/"+blockId, nil, &resp); err != nil {
		return nil, common.Hash{}, err
	}
	return &resp.Data.Header.Message, resp.Data.Root, nil
}

// Genesis never changes, so the first successful answer is cached and
// concurrent callers share one request.
func (c *HTTPClient) Genesis(ctx context.Context) (*Genesis, error) {
	c.genesisMu.RLock()
	cached := c.genesis
	c.genesisMu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	value, err, _ := c.genesisGroup.Do("genesis", func() (any, error) {
		var resp versioned[Genesis]
		if err := c.get(ctx, "/eth/v1/beacon/genesis", nil, &resp); err != nil {
			return nil, err
		}
		c.genesisMu.Lock()
		c.genesis = &resp.Data
		c.genesisMu.Unlock()
		return &resp.Data, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Genesis), nil
}

func (c *HTTPClient) ExecutionHeightOfSlot(ctx context.Context, slot uint64) (uint64, error) {
	var resp versioned[struct {
		Message struct {
			Body struct {
				ExecutionPayload struct {
					BlockNumber Uint64 `json:"block_number"`
				} `json:"execution_payload"`
			} `json:"body"`
		} `json:"message"`
	}]
	path := "/eth/v2/beacon/blocks/" + strconv.FormatUint(slot, 10)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return 0, err
	}
	return uint64(resp.Data.Message.Body.ExecutionPayload.BlockNumber), nil
}

// get decodes the JSON answer of path into out. A missing resource is
// reported as ResourceUnavailable, transport failures and server errors as
// transient.
func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.url + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrapf(err, "building request for %s", path)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return types.MarkTransient(errors.Wrapf(err, "requesting %s", path))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.MarkTransient(errors.Wrapf(err, "reading %s response", path))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return types.ResourceUnavailablef(
			"beacon resource %s not found: %s", path, strings.TrimSpace(string(body)),
		)
	case resp.StatusCode >= 500:
		return types.MarkTransient(errors.Errorf(
			"beacon server error %d on %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body)),
		))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return errors.Errorf(
			"beacon request %s failed with %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return types.Fatalf(types.ErrFatal, "decoding %s response: %s", path, err.Error())
	}
	return nil
}
