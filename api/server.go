// Package api exposes the node's read-only query surface and
// transaction submission endpoint over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aurum-chain/aurum/internal/ledger"
	"github.com/aurum-chain/aurum/internal/query"
)

// Server is the HTTP front door onto a node's query Service and
// transaction pool.
type Server struct {
	addr    string
	query   *query.Service
	ledger  *ledger.Ledger
	log     *zap.Logger
	httpSrv *http.Server
}

// NewServer builds a Server bound to addr, serving q and accepting
// submissions into l's pool.
func NewServer(addr string, q *query.Service, l *ledger.Ledger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{addr: addr, query: q, ledger: l, log: logger.With(zap.String("component", "api"))}

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

	s.httpSrv = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	s.log.Info("api server listening", zap.String("addr", s.addr))
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("api server stopped", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
