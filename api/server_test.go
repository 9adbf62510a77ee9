package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/aurum-chain/aurum/internal/ledger"
	"github.com/aurum-chain/aurum/internal/query"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	l := ledger.New(ledger.DefaultParams("test", 1700000000))
	q := query.New(l, nil)
	s := NewServer("127.0.0.1:0", q, l, nil)

	// Re-derive the same router rather than bind a real listener, so
	// tests exercise routing without occupying a port.
	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/chain", s.handleChainInfo).Methods(http.MethodGet)
	router.HandleFunc("/blocks/latest", s.handleLatestBlock).Methods(http.MethodGet)
	router.HandleFunc("/blocks/height/{height}", s.handleBlockByHeight).Methods(http.MethodGet)
	router.HandleFunc("/blocks/hash/{hash}", s.handleBlockByHash).Methods(http.MethodGet)
	router.HandleFunc("/transactions/{id}", s.handleTransaction).Methods(http.MethodGet)
	router.HandleFunc("/transactions", s.handleSubmitTransaction).Methods(http.MethodPost)
	router.HandleFunc("/addresses/{address}", s.handleAddress).Methods(http.MethodGet)
	router.HandleFunc("/validators", s.handleValidators).Methods(http.MethodGet)

	return s, httptest.NewServer(router)
}

func TestStatusEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status query.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, "test", status.NetworkID)
	require.Equal(t, uint64(0), status.Height)
}

func TestLatestBlockEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/blocks/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view query.BlockView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Equal(t, uint64(0), view.Block.Header.Height)
	require.Equal(t, uint64(1), view.Confirmations)
}

func TestBlockByHeightNotFound(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/blocks/height/99")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddressEndpointDefaultsToZeroAccount(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/addresses/aur1deadbeef")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view query.AddressView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Equal(t, uint64(0), view.Account.Balance)
	require.Nil(t, view.Validator)
}
