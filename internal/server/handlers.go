package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/borderlesspay/bpay/internal/backend"
	"github.com/borderlesspay/bpay/internal/environment"
	"github.com/borderlesspay/bpay/internal/ledger"
	bpayerr "github.com/borderlesspay/bpay/pkg/errors"
)

// HeaderRequestID carries the request id echoed on every response.
const HeaderRequestID = "X-Request-ID"

// StatusRecorded marks wallet-signed transfers the service did not execute.
const StatusRecorded = "RECORDED"

// EnvironmentResponse is the environment endpoint reply.
type EnvironmentResponse struct {
	Environment      environment.Environment `json:"environment"`
	Mobile           bool                    `json:"mobile"`
	ShowsPairingCode bool                    `json:"showsPairingCode"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req backend.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TokenID == "" {
		req.TokenID = s.defaultTokenID
	}

	transfer, err := s.validateTransfer(req)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, bpayerr.Message(err))
		return
	}

	if req.WalletSigned {
		s.record(req, req.TransactionID, StatusRecorded)
		s.logger.Debug("recorded wallet-signed transfer %s", req.TransactionID)
		writeJSON(w, http.StatusOK, backend.TransferResponse{
			Success: true,
			Data:    &backend.TransferData{TransactionID: req.TransactionID},
		})
		return
	}

	if s.ledger == nil {
		writeFailure(w, http.StatusServiceUnavailable, "operator account is not configured")
		return
	}

	receipt, err := s.ledger.Transfer(r.Context(), transfer)
	if err != nil {
		s.logger.Error("executing transfer to %s: %v", req.ToAccountID, err)
		writeFailure(w, http.StatusBadGateway, err.Error())
		return
	}
	if receipt.Status != "SUCCESS" {
		s.logger.Error("transfer %s finished with %s", receipt.TransactionID, receipt.Status)
		writeFailure(w, http.StatusBadGateway, receipt.Status)
		return
	}

	s.record(req, receipt.TransactionID, receipt.Status)
	s.logger.Debug("executed transfer %s", receipt.TransactionID)
	writeJSON(w, http.StatusOK, backend.TransferResponse{
		Success: true,
		Data:    &backend.TransferData{TransactionID: receipt.TransactionID},
	})
}

// validateTransfer checks a payload and converts it to a ledger transfer.
func (s *Server) validateTransfer(req backend.TransferRequest) (ledger.TokenTransfer, error) {
	if req.WalletSigned && strings.TrimSpace(req.TransactionID) == "" {
		return ledger.TokenTransfer{}, bpayerr.WithMessage(bpayerr.ErrInvalidInput, "wallet-signed transfers need a transactionId")
	}

	amount, err := ledger.ParseAmount(req.Amount, s.tokenDecimals)
	if err != nil {
		return ledger.TokenTransfer{}, err
	}
	units, err := ledger.ToSmallestUnit(amount, s.tokenDecimals)
	if err != nil {
		return ledger.TokenTransfer{}, err
	}

	from := req.FromAccountID
	if from == "" && s.ledger != nil {
		from = s.ledger.AccountID()
	}

	t := ledger.TokenTransfer{
		TokenID: req.TokenID,
		From:    from,
		To:      req.ToAccountID,
		Units:   units,
		Memo:    req.Memo,
	}
	if err := t.Validate(); err != nil {
		return ledger.TokenTransfer{}, err
	}
	return t, nil
}

func (s *Server) record(req backend.TransferRequest, txID, status string) {
	s.records.Add(backend.Transaction{
		TransactionID: txID,
		TokenID:       req.TokenID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Memo:          req.Memo,
		UserID:        req.UserID,
		WalletSigned:  req.WalletSigned,
		Status:        status,
	})
	if s.storage == nil {
		return
	}
	if err := s.storage.Save(s.records); err != nil {
		s.logger.Error("saving transfer records: %v", err)
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	writeJSON(w, http.StatusOK, backend.TransactionsResponse{
		Success: true,
		Data:    s.records.ForUser(userID),
	})
}

func (s *Server) handleEnvironment(w http.ResponseWriter, r *http.Request) {
	signals := environment.FromRequest(r)
	env := environment.Detect(signals, s.logger)
	writeJSON(w, http.StatusOK, EnvironmentResponse{
		Environment:      env,
		Mobile:           environment.IsMobileUserAgent(signals.UserAgent),
		ShowsPairingCode: env.ShowsPairingCode(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withRequestID tags every request with an id, reusing the caller's when
// it sends one.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		s.logger.Debug("%s %s (%s)", r.Method, r.URL.Path, id)
		next.ServeHTTP(w, r)
	})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, backend.TransferResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
