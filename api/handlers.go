package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/luca-patrignani/dedecoin/ledger"
	"github.com/luca-patrignani/dedecoin/service"
	"github.com/luca-patrignani/dedecoin/wallet"
)

type submitRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type mineRequest struct {
	RewardAddress string `json:"rewardAddress"`
}

type balanceResponse struct {
	Address     string `json:"address"`
	Fingerprint string `json:"fingerprint"`
	Balance     int64  `json:"balance"`
	Mine        bool   `json:"mine"`
}

type validResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Blocks())
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	block, err := s.service.Block(index)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Pending())
}

func (s *Server) handleValid(w http.ResponseWriter, r *http.Request) {
	resp := validResponse{Valid: true}
	if err := s.service.Verify(); err != nil {
		resp = validResponse{Valid: false, Error: err.Error()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	local := s.service.Wallet()
	writeJSON(w, http.StatusOK, balanceResponse{
		Address:     local.Address(),
		Fingerprint: local.Fingerprint(),
		Balance:     s.service.Balance(local.Address()),
		Mine:        true,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	writeJSON(w, http.StatusOK, balanceResponse{
		Address:     address,
		Fingerprint: wallet.Fingerprint(address),
		Balance:     s.service.Balance(address),
		Mine:        s.service.IsMine(address),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.History(mux.Vars(r)["address"]))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON format"))
		return
	}
	tx, err := s.service.SubmitTransaction(req.To, req.Amount)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	var req mineRequest
	// An empty body mines to the local wallet.
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid JSON format"))
			return
		}
	}
	block, err := s.service.Mine(r.Context(), req.RewardAddress)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Config())
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var req service.ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON format"))
		return
	}
	if err := s.service.SetConfig(req); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Config())
}

// fail maps ledger errors to status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeError(w, status, err)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ledger.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrOwnershipMismatch),
		errors.Is(err, ledger.ErrMissingSignature),
		errors.Is(err, ledger.ErrMissingAddress),
		errors.Is(err, ledger.ErrNonPositiveAmount),
		errors.Is(err, ledger.ErrAmountTooLarge),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInvalidSignature),
		errors.Is(err, ledger.ErrInvalidDifficulty):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
