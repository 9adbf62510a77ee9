package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/aurum-chain/aurum/internal/chainerr"
	"github.com/aurum-chain/aurum/internal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if chainerr.KindOf(err) != "" {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.query.Status())
}

func (s *Server) handleChainInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.query.ChainInfo())
}

func (s *Server) handleLatestBlock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.query.LatestBlock())
}

func (s *Server) handleBlockByHeight(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["height"]
	height, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, chainerr.Newf(chainerr.InvalidHeight, "malformed height %q", raw))
		return
	}
	view, err := s.query.BlockByHeight(height)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleBlockByHash(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	view, err := s.query.BlockByHash(hash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	view, err := s.query.TransactionByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var tx ledger.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, chainerr.Wrap(chainerr.InvalidSignature, err))
		return
	}
	if err := s.ledger.InsertTransaction(tx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": tx.ID})
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	writeJSON(w, http.StatusOK, s.query.AddressByID(address))
}

func (s *Server) handleValidators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.query.Validators())
}
