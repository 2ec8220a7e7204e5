package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"tokenprices-service/internal/application"
	"tokenprices-service/internal/domain"
	"tokenprices-service/internal/infrastructure/logx"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

const idempotencyHeader = "X-Idempotency-Key"

type Server struct {
	prices  *application.PriceService
	updater *application.TokenPriceUpdater
	idem    application.IdempotencyStore
	ping    func(ctx context.Context) error
}

// NewServer wires the handlers. updater may be nil, which disables the bulk
// refresh endpoint; idem may be nil, which disables replay detection.
func NewServer(prices *application.PriceService, updater *application.TokenPriceUpdater, idem application.IdempotencyStore) *Server {
	return &Server{prices: prices, updater: updater, idem: idem}
}

// SetReadyCheck installs the probe used by /readyz.
func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

func (s *Server) GetCryptoPrices(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	if err := runtime.BindQueryParameter("form", false, false, "symbols", firstValues(r.URL.Query()), &symbols); err != nil {
		writeError(w, http.StatusBadRequest, "invalid symbols parameter")
		return
	}
	force, err := bindForce(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid force parameter")
		return
	}

	resp, err := s.prices.GetPrices(r.Context(), application.PriceRequest{Symbols: symbols, Force: force})
	switch {
	case errors.Is(err, application.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "No symbols provided")
		return
	case err != nil:
		logx.WithFields(r.Context()).Error("price.request_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: err.Error(), Source: domain.ProviderError})
		return
	}
	writeJSON(w, http.StatusOK, toPricesResponse(resp))
}

func (s *Server) UpdateTokenPrices(w http.ResponseWriter, r *http.Request) {
	if s.updater == nil {
		writeError(w, http.StatusServiceUnavailable, "token refresh disabled")
		return
	}
	force, err := bindForce(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid force parameter")
		return
	}
	key := r.Header.Get(idempotencyHeader)

	sum, err := s.updater.RunOnce(r.Context(), s.idem, key, force)
	switch {
	case errors.Is(err, application.ErrConflict):
		writeError(w, http.StatusConflict, "refresh already requested")
		return
	case err != nil:
		logx.WithFields(r.Context()).Error("token_refresh.request_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toRefreshResponse(sum))
}

// bindForce accepts only the literal "true" as true; absent means false.
func bindForce(r *http.Request) (bool, error) {
	var raw string
	if err := runtime.BindQueryParameter("form", false, false, "force", firstValues(r.URL.Query()), &raw); err != nil {
		return false, err
	}
	return raw == "true", nil
}

// firstValues keeps only the first occurrence of each repeated parameter.
func firstValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		if len(v) > 0 {
			out[k] = v[:1]
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Message: msg})
}
