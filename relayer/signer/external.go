package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/cockroachdb/errors"
)

type Message struct {
	TypeUrl string `json:"type_url"`
	Value   []byte `json:"value"`
}

// SignTxRequest carries everything a remote keyring needs to build and sign
// a Cosmos transaction.
type SignTxRequest struct {
	ChainId       string    `json:"chain_id"`
	AccountNumber uint64    `json:"account_number"`
	Sequence      uint64    `json:"sequence"`
	Messages      []Message `json:"messages"`
	Memo          string    `json:"memo,omitempty"`
}

type SignTxResponse struct {
	TxBytes []byte `json:"tx_bytes"`
}

// ExternalSigner delegates Cosmos transaction signing to a remote service.
type ExternalSigner struct {
	url     string
	address string
	client  *http.Client
}

func NewExternalSigner(externalUrl, address string) *ExternalSigner {
	return &ExternalSigner{
		url:     strings.TrimRight(externalUrl, "/"),
		address: address,
		client:  http.DefaultClient,
	}
}

func (s *ExternalSigner) Address() string {
	return s.address
}

func (s *ExternalSigner) SignTx(ctx context.Context, req *SignTxRequest) ([]byte, error) {
	// Create request body
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.url+"/sign_tx", bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// Make POST request
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, types.MarkTransient(err)
	}
	defer resp.Body.Close()

	// Read and decode response
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.MarkTransient(err)
	}

	// Check if status code indicates an error (non-2xx)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var signResp SignTxResponse
	if err := json.Unmarshal(body, &signResp); err != nil {
		return nil, err
	}
	if len(signResp.TxBytes) == 0 {
		return nil, errors.New("signer returned an empty transaction")
	}
	return signResp.TxBytes, nil
}
