package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/cockroachdb/errors"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusBusy    Status = "busy"
)

type ProveResponse struct {
	Id string `json:"id"`
}

type PollResponse struct {
	Status Status `json:"status"`
	Proof  []byte `json:"proof,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Client talks to the signature aggregation prover. Proofs are requested
// once and then polled by id until they are done or failed.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(proverUrl string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		url:    strings.TrimRight(proverUrl, "/"),
		client: client,
	}
}

// Prove submits request, marshalled as JSON, and returns the id to poll.
func (c *Client) Prove(ctx context.Context, request any) (string, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	var resp ProveResponse
	if err := c.do(ctx, http.MethodPost, "/prove", bytes.NewBuffer(jsonData), &resp); err != nil {
		return "", errors.Wrap(err, "requesting proof")
	}
	if resp.Id == "" {
		return "", errors.New("prover returned an empty proof id")
	}
	return resp.Id, nil
}

// Poll returns the proof state. A busy prover is reported as a transient
// error and a failed proof as a fatal one.
func (c *Client) Poll(ctx context.Context, id string) (*PollResponse, error) {
	var resp PollResponse
	if err := c.do(ctx, http.MethodGet, "/poll/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, errors.Wrapf(err, "polling proof %s", id)
	}

	switch resp.Status {
	case StatusPending:
		return &resp, nil
	case StatusDone:
		if len(resp.Proof) == 0 {
			return nil, types.Fatalf(types.ErrFatal, "proof %s is done but empty", id)
		}
		return &resp, nil
	case StatusBusy:
		return nil, types.MarkTransient(errors.Errorf("prover is busy, proof %s", id))
	case StatusFailed:
		return nil, types.Fatalf(types.ErrFatal, "proof %s failed: %s", id, resp.Reason)
	default:
		return nil, types.Fatalf(types.ErrFatal, "proof %s has unknown status `%s`", id, resp.Status)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return types.MarkTransient(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.MarkTransient(err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
		return types.MarkTransient(
			errors.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return errors.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return json.Unmarshal(respBody, out)
}
