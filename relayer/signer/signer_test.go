package signer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NethermindEth/ibc-relayer/relayer/signer"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// well known development key
const devKey = "0xb71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestInternalSigner(t *testing.T) {
	t.Run("Invalid private key", func(t *testing.T) {
		s, err := signer.NewInternalSigner("0xzz")
		require.Nil(t, s)
		require.ErrorContains(t, err, "Cannot turn private key")
	})

	t.Run("Signs for its own address", func(t *testing.T) {
		s, err := signer.NewInternalSigner(devKey)
		require.NoError(t, err)

		to := common.HexToAddress("0x1234")
		chainId := big.NewInt(11155111)
		tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   chainId,
			Nonce:     3,
			GasTipCap: big.NewInt(1),
			GasFeeCap: big.NewInt(10),
			Gas:       21000,
			To:        &to,
		})
		signed, err := s.SignTx(tx, chainId)
		require.NoError(t, err)

		sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(chainId), signed)
		require.NoError(t, err)
		require.Equal(t, s.Address(), sender)
	})
}

func TestExternalSigner(t *testing.T) {
	t.Run("Error making request", func(t *testing.T) {
		s := signer.NewExternalSigner("http://localhost:1234", "cosmos1relayer")

		res, err := s.SignTx(context.Background(), &signer.SignTxRequest{})
		require.Nil(t, res)
		require.ErrorContains(t, err, "connection refused")
		require.True(t, types.IsTransient(err))
	})

	t.Run("Request succeeded but server internal error", func(t *testing.T) {
		serverError := "some internal error"
		mockServer := httptest.NewServer(
			http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
					_, err := w.Write([]byte(serverError))
					require.NoError(t, err)
				}))
		defer mockServer.Close()

		s := signer.NewExternalSigner(mockServer.URL, "cosmos1relayer")
		res, err := s.SignTx(context.Background(), &signer.SignTxRequest{})
		require.Nil(t, res)
		expectedErrorMsg := fmt.Sprintf("server error %d: %s", http.StatusInternalServerError, serverError)
		require.EqualError(t, err, expectedErrorMsg)
	})

	t.Run("Request succeeded but error when decoding response body", func(t *testing.T) {
		mockServer := httptest.NewServer(
			http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
					_, err := w.Write([]byte("not a valid marshalled SignTxResponse object"))
					require.NoError(t, err)
				}))
		defer mockServer.Close()

		s := signer.NewExternalSigner(mockServer.URL, "cosmos1relayer")
		res, err := s.SignTx(context.Background(), &signer.SignTxRequest{})
		require.Nil(t, res)
		require.Error(t, err)
	})

	t.Run("Successful request", func(t *testing.T) {
		mockServer := httptest.NewServer(
			http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					require.Equal(t, "/sign_tx", r.URL.Path)

					var req signer.SignTxRequest
					require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
					require.Equal(t, "union-testnet-9", req.ChainId)
					require.Equal(t, uint64(7), req.Sequence)
					require.Equal(t, "/ibc.core.client.v1.MsgUpdateClient", req.Messages[0].TypeUrl)
					require.Equal(t, []byte{1, 2, 3}, req.Messages[0].Value)

					require.NoError(t, json.NewEncoder(w).Encode(signer.SignTxResponse{TxBytes: []byte{0xaa}}))
				}))
		defer mockServer.Close()

		s := signer.NewExternalSigner(mockServer.URL+"/", "cosmos1relayer")
		require.Equal(t, "cosmos1relayer", s.Address())

		res, err := s.SignTx(context.Background(), &signer.SignTxRequest{
			ChainId:       "union-testnet-9",
			AccountNumber: 12,
			Sequence:      7,
			Messages: []signer.Message{
				{TypeUrl: "/ibc.core.client.v1.MsgUpdateClient", Value: []byte{1, 2, 3}},
			},
		})
		require.NoError(t, err)
		require.Equal(t, []byte{0xaa}, res)
	})
}
