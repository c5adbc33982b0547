// Package api exposes the registry over HTTP for requesters and operators.
// Ledger semantics live in pkg/registry; this layer only decodes calls,
// maps failure reasons to status codes, and encodes records.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/speedrun-hq/execregistry/pkg/auth"
	"github.com/speedrun-hq/execregistry/pkg/escrow"
	"github.com/speedrun-hq/execregistry/pkg/logger"
	"github.com/speedrun-hq/execregistry/pkg/models"
	"github.com/speedrun-hq/execregistry/pkg/registry"
	"github.com/speedrun-hq/execregistry/pkg/store"
)

// Server hosts the registry REST API.
type Server struct {
	registry *registry.Registry
	journal  *store.SQLiteStore
	logger   logger.Logger
}

// NewServer creates an API server over the registry. journal may be nil, in
// which case the list endpoint is unavailable.
func NewServer(reg *registry.Registry, journal *store.SQLiteStore, log logger.Logger) *Server {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Server{registry: reg, journal: journal, logger: log}
}

// Router builds the chi router for the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/registry", s.handleRegistryInfo)

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", s.handleCreateRequest)
			r.Get("/", s.handleListRequests)

			r.Route("/{hash}", func(r chi.Router) {
				r.Get("/", s.handleGetRequest)
				r.Get("/inputs", s.handleGetInputs)
				r.Get("/unlock-timestamp", s.handleGetUnlockTimestamp)
				r.Post("/speedup", s.handleSpeedUp)
				r.Post("/unlock", s.handleUnlock)
				r.Post("/relock", s.handleRelock)
				r.Post("/withdraw", s.handleWithdraw)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/owner", s.handleSetOwner)
			r.Post("/execution-manager", s.handleConnectExecutionManager)
		})
	})

	return r
}

// Start serves the API on the given port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{Addr: ":" + port, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	s.logger.InfoWith(logger.API, "Starting API server on port %s", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// writeError maps a registry failure reason to an HTTP status code and
// emits the stable reason string verbatim.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, registry.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrNotCreator),
		errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, registry.ErrUnlockAlreadyScheduled),
		errors.Is(err, registry.ErrRequestClosed),
		errors.Is(err, registry.ErrRequestSuperseded),
		errors.Is(err, registry.ErrNoUnlockScheduled),
		errors.Is(err, registry.ErrUnlockNotElapsed),
		errors.Is(err, registry.ErrUnlockPassed):
		status = http.StatusConflict
	case errors.Is(err, escrow.ErrInsufficientAllowance),
		errors.Is(err, escrow.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func hashParam(r *http.Request) (common.Hash, error) {
	raw := chi.URLParam(r, "hash")
	if !has0xPrefix(raw) || len(raw) != 2+2*common.HashLength {
		return common.Hash{}, errors.New("invalid exec hash")
	}
	return common.HexToHash(raw), nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// requestView is the wire form of a request record.
type requestView struct {
	ExecHash        string           `json:"exec_hash"`
	Nonce           uint64           `json:"nonce"`
	Strategy        string           `json:"strategy"`
	Calldata        string           `json:"calldata"`
	GasLimit        uint64           `json:"gas_limit"`
	GasPrice        string           `json:"gas_price"`
	Tip             string           `json:"tip"`
	Creator         string           `json:"creator"`
	InputTokens     []inputTokenView `json:"input_tokens"`
	UnlockTimestamp uint64           `json:"unlock_timestamp"`
	Status          string           `json:"status"`
	Uncle           string           `json:"uncle,omitempty"`
	Successor       string           `json:"successor,omitempty"`
}

type inputTokenView struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

func viewOf(req *models.Request) requestView {
	v := requestView{
		ExecHash:        req.ExecHash.Hex(),
		Nonce:           req.Nonce,
		Strategy:        req.Strategy.Hex(),
		Calldata:        hexEncode(req.Calldata),
		GasLimit:        req.GasLimit,
		GasPrice:        req.GasPrice.String(),
		Tip:             req.Tip.String(),
		Creator:         req.Creator.Hex(),
		UnlockTimestamp: req.UnlockTimestamp,
		Status:          string(req.Status),
	}
	for _, it := range req.InputTokens {
		v.InputTokens = append(v.InputTokens, inputTokenView{Token: it.Token.Hex(), Amount: it.Amount.String()})
	}
	if req.Uncle != (common.Hash{}) {
		v.Uncle = req.Uncle.Hex()
	}
	if req.Successor != (common.Hash{}) {
		v.Successor = req.Successor.Hex()
	}
	return v
}
