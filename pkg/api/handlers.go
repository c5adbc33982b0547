package api

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/speedrun-hq/execregistry/pkg/logger"
	"github.com/speedrun-hq/execregistry/pkg/models"
	"github.com/speedrun-hq/execregistry/pkg/registry"
)

type inputTokenRequest struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type createRequestBody struct {
	Caller             string              `json:"caller"`
	Strategy           string              `json:"strategy"`
	Calldata           string              `json:"calldata"`
	GasLimit           uint64              `json:"gas_limit"`
	GasPrice           string              `json:"gas_price"`
	Tip                string              `json:"tip"`
	InputTokens        []inputTokenRequest `json:"input_tokens"`
	UnlockDelaySeconds uint64              `json:"unlock_delay_seconds,omitempty"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, errors.New("invalid request body"))
		return
	}

	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.writeError(w, errors.New("invalid caller address"))
		return
	}
	strategy, err := parseAddress(body.Strategy)
	if err != nil {
		s.writeError(w, errors.New("invalid strategy address"))
		return
	}
	calldata, err := hexDecode(body.Calldata)
	if err != nil {
		s.writeError(w, errors.New("invalid calldata"))
		return
	}
	gasPrice, err := parseAmount(body.GasPrice)
	if err != nil {
		s.writeError(w, errors.New("invalid gas price"))
		return
	}
	tip, err := parseAmount(body.Tip)
	if err != nil {
		s.writeError(w, errors.New("invalid tip"))
		return
	}
	inputTokens, err := parseInputTokens(body.InputTokens)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var execHash common.Hash
	if body.UnlockDelaySeconds > 0 {
		execHash, err = s.registry.CreateRequestWithTimeout(r.Context(), caller, strategy, calldata,
			body.GasLimit, gasPrice, tip, inputTokens, body.UnlockDelaySeconds)
	} else {
		execHash, err = s.registry.CreateRequest(r.Context(), caller, strategy, calldata,
			body.GasLimit, gasPrice, tip, inputTokens)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"exec_hash": execHash.Hex()})
}

type speedUpBody struct {
	Caller   string `json:"caller"`
	GasPrice string `json:"gas_price"`
}

func (s *Server) handleSpeedUp(w http.ResponseWriter, r *http.Request) {
	execHash, err := hashParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var body speedUpBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, errors.New("invalid request body"))
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.writeError(w, errors.New("invalid caller address"))
		return
	}
	gasPrice, err := parseAmount(body.GasPrice)
	if err != nil {
		s.writeError(w, errors.New("invalid gas price"))
		return
	}

	newHash, err := s.registry.SpeedUpRequest(r.Context(), caller, execHash, gasPrice)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"exec_hash": newHash.Hex()})
}

type unlockBody struct {
	Caller             string `json:"caller"`
	UnlockDelaySeconds uint64 `json:"unlock_delay_seconds"`
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	execHash, err := hashParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var body unlockBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, errors.New("invalid request body"))
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.writeError(w, errors.New("invalid caller address"))
		return
	}

	if err := s.registry.UnlockTokens(r.Context(), caller, execHash, body.UnlockDelaySeconds); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlock scheduled"})
}

type callerBody struct {
	Caller string `json:"caller"`
}

func (s *Server) handleRelock(w http.ResponseWriter, r *http.Request) {
	execHash, err := hashParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var body callerBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, errors.New("invalid request body"))
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.writeError(w, errors.New("invalid caller address"))
		return
	}

	if err := s.registry.RelockTokens(r.Context(), caller, execHash); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "relocked"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	execHash, err := hashParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var body callerBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, errors.New("invalid request body"))
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.writeError(w, errors.New("invalid caller address"))
		return
	}

	if err := s.registry.WithdrawTokens(r.Context(), caller, execHash); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	execHash, err := hashParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	req, err := s.registry.GetRequest(execHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(req))
}

func (s *Server) handleGetInputs(w http.ResponseWriter, r *http.Request) {
	execHash, err := hashParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	inputs, err := s.registry.GetRequestInputTokens(execHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := []inputTokenView{}
	for _, it := range inputs {
		views = append(views, inputTokenView{Token: it.Token.Hex(), Amount: it.Amount.String()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"input_tokens": views})
}

func (s *Server) handleGetUnlockTimestamp(w http.ResponseWriter, r *http.Request) {
	execHash, err := hashParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ts, err := s.registry.GetRequestUnlockTimestamp(execHash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"unlock_timestamp": ts})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, errors.New("request journal disabled"))
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	requests, total, err := s.journal.ListRequests(r.Context(), limit, offset)
	if err != nil {
		s.logger.ErrorWith(logger.API, "Failed to list requests: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list requests"})
		return
	}

	views := []requestView{}
	for _, req := range requests {
		views = append(views, viewOf(req))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests":    views,
		"total_count": total,
	})
}

func (s *Server) handleRegistryInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nonce":                    s.registry.Nonce(),
		"owner":                    s.registry.Owner().Hex(),
		"authority_set":            s.registry.Authority() != nil,
		"messenger":                s.registry.Messenger().Hex(),
		"execution_manager":        s.registry.ExecutionManager().Hex(),
		"payment_token":            s.registry.PaymentToken().Hex(),
		"min_unlock_delay_seconds": registry.MinUnlockDelaySeconds,
	})
}

type setOwnerBody struct {
	Caller string `json:"caller"`
	Owner  string `json:"owner"`
}

func (s *Server) handleSetOwner(w http.ResponseWriter, r *http.Request) {
	var body setOwnerBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, errors.New("invalid request body"))
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.writeError(w, errors.New("invalid caller address"))
		return
	}
	newOwner, err := parseAddress(body.Owner)
	if err != nil {
		s.writeError(w, errors.New("invalid owner address"))
		return
	}

	if err := s.registry.SetOwner(caller, newOwner); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": newOwner.Hex()})
}

type connectManagerBody struct {
	Caller  string `json:"caller"`
	Manager string `json:"manager"`
}

func (s *Server) handleConnectExecutionManager(w http.ResponseWriter, r *http.Request) {
	var body connectManagerBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, errors.New("invalid request body"))
		return
	}
	caller, err := parseAddress(body.Caller)
	if err != nil {
		s.writeError(w, errors.New("invalid caller address"))
		return
	}
	manager, err := parseAddress(body.Manager)
	if err != nil {
		s.writeError(w, errors.New("invalid manager address"))
		return
	}

	if err := s.registry.ConnectExecutionManager(caller, manager); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"execution_manager": manager.Hex()})
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, errors.New("invalid address")
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(raw string) (*big.Int, error) {
	if raw == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, errors.New("invalid amount")
	}
	return amount, nil
}

func parseInputTokens(raw []inputTokenRequest) ([]models.InputToken, error) {
	var inputs []models.InputToken
	for _, it := range raw {
		token, err := parseAddress(it.Token)
		if err != nil {
			return nil, errors.New("invalid input token address")
		}
		amount, err := parseAmount(it.Amount)
		if err != nil {
			return nil, errors.New("invalid input token amount")
		}
		inputs = append(inputs, models.InputToken{Token: token, Amount: amount})
	}
	return inputs, nil
}

func hexDecode(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	return hexutil.Decode(raw)
}

func hexEncode(data []byte) string {
	if len(data) == 0 {
		return "0x"
	}
	return hexutil.Encode(data)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
