package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MaxInputTokens is the maximum number of input tokens a request may bond.
const MaxInputTokens = 5

// RequestStatus represents where a request sits in its lifecycle.
type RequestStatus string

const (
	// StatusOpen is a live request whose escrow is held by the registry
	StatusOpen RequestStatus = "open"
	// StatusClaimed is a request whose escrow was released to an executor
	StatusClaimed RequestStatus = "claimed"
	// StatusWithdrawn is a request whose escrow was returned to the creator
	StatusWithdrawn RequestStatus = "withdrawn"
	// StatusSuperseded is a request replaced by a speed-up successor
	StatusSuperseded RequestStatus = "superseded"
)

// InputToken is a (token, amount) pair bonded at request creation and owed
// to the eventual executor.
type InputToken struct {
	Token  common.Address `json:"token"`
	Amount *big.Int       `json:"amount"`
}

// Request is the canonical record for a single exec hash.
type Request struct {
	ExecHash common.Hash    `json:"exec_hash"`
	Nonce    uint64         `json:"nonce"`
	Strategy common.Address `json:"strategy"`
	Calldata []byte         `json:"calldata"`
	GasLimit uint64         `json:"gas_limit"`
	GasPrice *big.Int       `json:"gas_price"`
	Tip      *big.Int       `json:"tip"`
	Creator  common.Address `json:"creator"`

	InputTokens []InputToken `json:"input_tokens"`

	// UnlockTimestamp is 0 while locked, otherwise the unix time at which
	// the creator may withdraw.
	UnlockTimestamp uint64 `json:"unlock_timestamp"`

	Status RequestStatus `json:"status"`

	// Uncle and Successor link a speed-up lineage: the successor carries
	// the escrow, the uncle is the superseded record.
	Uncle     common.Hash `json:"uncle,omitempty"`
	Successor common.Hash `json:"successor,omitempty"`
}

// PaymentReservation returns gasLimit*gasPrice + tip, the amount of payment
// token escrowed for this request.
func (r *Request) PaymentReservation() *big.Int {
	reservation := new(big.Int).Mul(new(big.Int).SetUint64(r.GasLimit), r.GasPrice)
	return reservation.Add(reservation, r.Tip)
}

// Closed reports whether the record has reached a terminal state and can no
// longer move funds.
func (r *Request) Closed() bool {
	return r.Status != StatusOpen
}

// CopyInputTokens returns a copy of the bonded input token list that the
// caller may mutate freely.
func (r *Request) CopyInputTokens() []InputToken {
	if len(r.InputTokens) == 0 {
		return nil
	}
	out := make([]InputToken, len(r.InputTokens))
	for i, it := range r.InputTokens {
		out[i] = InputToken{Token: it.Token, Amount: new(big.Int).Set(it.Amount)}
	}
	return out
}
