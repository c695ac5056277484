package prover_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NethermindEth/ibc-relayer/relayer/prover"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/stretchr/testify/require"
)

func TestProve(t *testing.T) {
	t.Run("Error making request", func(t *testing.T) {
		client := prover.NewClient("http://localhost:1234", nil)
		id, err := client.Prove(context.Background(), map[string]uint64{"height": 1})
		require.Empty(t, id)
		require.ErrorContains(t, err, "connection refused")
		require.True(t, types.IsTransient(err))
	})

	t.Run("Busy prover", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, err := w.Write([]byte("queue full"))
			require.NoError(t, err)
		}))
		defer server.Close()

		_, err := prover.NewClient(server.URL, nil).Prove(context.Background(), struct{}{})
		require.True(t, types.IsTransient(err))
	})

	t.Run("Server internal error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, err := w.Write([]byte("some internal error"))
			require.NoError(t, err)
		}))
		defer server.Close()

		_, err := prover.NewClient(server.URL, nil).Prove(context.Background(), struct{}{})
		require.ErrorContains(t, err, fmt.Sprintf("server error %d: some internal error", http.StatusInternalServerError))
		require.False(t, types.IsTransient(err))
	})

	t.Run("Successful request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/prove", r.URL.Path)

			var body map[string]uint64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, uint64(42), body["height"])

			require.NoError(t, json.NewEncoder(w).Encode(prover.ProveResponse{Id: "proof-1"}))
		}))
		defer server.Close()

		id, err := prover.NewClient(server.URL+"/", nil).Prove(context.Background(), map[string]uint64{"height": 42})
		require.NoError(t, err)
		require.Equal(t, "proof-1", id)
	})
}

func TestPoll(t *testing.T) {
	responses := map[string]prover.PollResponse{
		"pending": {Status: prover.StatusPending},
		"done":    {Status: prover.StatusDone, Proof: []byte{0xaa, 0xbb}},
		"empty":   {Status: prover.StatusDone},
		"busy":    {Status: prover.StatusBusy},
		"failed":  {Status: prover.StatusFailed, Reason: "bad witness"},
		"strange": {Status: "exploded"},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		resp, ok := responses[r.URL.Path[len("/poll/"):]]
		require.True(t, ok, r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()
	client := prover.NewClient(server.URL, nil)
	ctx := context.Background()

	resp, err := client.Poll(ctx, "pending")
	require.NoError(t, err)
	require.Equal(t, prover.StatusPending, resp.Status)

	resp, err = client.Poll(ctx, "done")
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0xbb}, resp.Proof)

	_, err = client.Poll(ctx, "empty")
	require.True(t, types.IsFatal(err))

	_, err = client.Poll(ctx, "busy")
	require.True(t, types.IsTransient(err))
	require.False(t, types.IsFatal(err))

	_, err = client.Poll(ctx, "failed")
	require.True(t, types.IsFatal(err))
	require.ErrorContains(t, err, "bad witness")

	_, err = client.Poll(ctx, "strange")
	require.True(t, types.IsFatal(err))
}
