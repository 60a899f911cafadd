// Package api serves message hashing and the signed message registry over
// HTTP.
//
// Endpoints:
//   - POST /hash/transfer - hash a transfer request
//   - POST /hash/order - hash a limit order request
//   - POST /transfers - register a signed transfer
//   - POST /orders - register a signed limit order
//   - GET /entries/{digest} - fetch a registered message
//   - GET /proofs/{digest} - batch membership proof
//   - GET /root - batch root and size
//   - GET /health - health check
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	msghash "github.com/vocdoni/starkex-msghash-go"
	"github.com/vocdoni/starkex-msghash-go/capi"
	"github.com/vocdoni/starkex-msghash-go/registry"
)

// maxBodySize bounds request bodies; messages are a few hundred bytes.
const maxBodySize = 64 << 10

// Handler serves the HTTP endpoints.
type Handler struct {
	reg *registry.Registry
	log *slog.Logger
}

// NewHandler creates a handler. reg may be nil, in which case only the
// hashing endpoints are served.
func NewHandler(reg *registry.Registry, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{reg: reg, log: log}
}

// RegisterRoutes mounts the endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/hash/transfer", h.hashTransfer)
	r.Post("/hash/order", h.hashOrder)

	if h.reg != nil {
		r.Post("/transfers", h.addTransfer)
		r.Post("/orders", h.addOrder)
		r.Get("/entries/{digest}", h.entry)
		r.Get("/proofs/{digest}", h.proof)
		r.Get("/root", h.root)
	}
}

// NewRouter returns a chi router with the standard middleware stack.
func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	h.RegisterRoutes(r)
	return r
}

// HashResponse carries a message hash.
type HashResponse struct {
	Hash common.Hash `json:"hash"`
}

// ErrorResponse is returned on failures. Status holds the boundary status
// name for parse errors.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

// SignedTransfer is the body of POST /transfers.
type SignedTransfer struct {
	Transfer  msghash.TransferRequest `json:"transfer"`
	StarkKey  string                  `json:"stark_key"`
	Signature msghash.Signature       `json:"signature"`
}

// SignedLimitOrder is the body of POST /orders.
type SignedLimitOrder struct {
	LimitOrder msghash.LimitOrderRequest `json:"limit_order"`
	StarkKey   string                    `json:"stark_key"`
	Signature  msghash.Signature         `json:"signature"`
}

// RootResponse is the body of GET /root.
type RootResponse struct {
	Root common.Hash `json:"root"`
	Size int         `json:"size"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) hashTransfer(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	req, err := msghash.DecodeTransferRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	digest, err := req.Hash()
	if err != nil {
		writeHashError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HashResponse{Hash: msghash.FeltToHash(&digest)})
}

func (h *Handler) hashOrder(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	req, err := msghash.DecodeLimitOrderRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	digest, err := req.Hash()
	if err != nil {
		writeHashError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HashResponse{Hash: msghash.FeltToHash(&digest)})
}

func (h *Handler) addTransfer(w http.ResponseWriter, r *http.Request) {
	var req SignedTransfer
	if !h.decode(w, r, &req) {
		return
	}
	digest, err := h.reg.AddTransfer(req.Transfer, req.StarkKey, req.Signature)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, HashResponse{Hash: digest})
}

func (h *Handler) addOrder(w http.ResponseWriter, r *http.Request) {
	var req SignedLimitOrder
	if !h.decode(w, r, &req) {
		return
	}
	digest, err := h.reg.AddLimitOrder(req.LimitOrder, req.StarkKey, req.Signature)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, HashResponse{Hash: digest})
}

func (h *Handler) entry(w http.ResponseWriter, r *http.Request) {
	digest, ok := digestParam(w, r)
	if !ok {
		return
	}
	entry, found := h.reg.Get(digest)
	if !found {
		writeError(w, http.StatusNotFound, registry.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) proof(w http.ResponseWriter, r *http.Request) {
	digest, ok := digestParam(w, r)
	if !ok {
		return
	}
	proof, err := h.reg.GenerateProof(digest)
	if err != nil {
		h.writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proof)
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	root, ok := h.reg.Root()
	if !ok {
		writeError(w, http.StatusNotFound, registry.ErrEmptyRegistry)
		return
	}
	writeJSON(w, http.StatusOK, RootResponse{Root: root, Size: h.reg.Size()})
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return body, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := h.readBody(w, r)
	if !ok {
		return false
	}
	if err := msghash.DecodeStrict(body, v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (h *Handler) writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, registry.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, msghash.ErrHashComputation),
		capi.StatusFromError(err) != capi.StatusHashComputationError:
		writeHashError(w, err)
	default:
		h.log.Error("Registry failure", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func digestParam(w http.ResponseWriter, r *http.Request) (common.Hash, bool) {
	raw, err := hexutil.Decode(chi.URLParam(r, "digest"))
	if err != nil || len(raw) != common.HashLength {
		writeError(w, http.StatusBadRequest, errors.New("digest must be 32 bytes of 0x-prefixed hex"))
		return common.Hash{}, false
	}
	return common.BytesToHash(raw), true
}

// writeHashError reports a message parse or hash failure with its status.
func writeHashError(w http.ResponseWriter, err error) {
	status := capi.StatusFromError(err)
	code := http.StatusBadRequest
	if status == capi.StatusHashComputationError {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error(), Status: status.String()})
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
