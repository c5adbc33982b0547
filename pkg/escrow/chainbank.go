package escrow

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ERC20ABI contains the ABI for the ERC20 functions the escrow needs.
const ERC20ABI = `[
	{
		"constant": true,
		"inputs": [
			{"name": "_owner", "type": "address"},
			{"name": "_spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"payable": false,
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"payable": false,
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_to", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"payable": false,
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_from", "type": "address"},
			{"name": "_to", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"payable": false,
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// ChainBank is a Bank backed by ERC20 contracts on a live chain. The
// operator is the address of the signing key in auth; on-chain token
// contracts enforce the same allowance semantics MemoryBank models.
type ChainBank struct {
	client *ethclient.Client
	auth   *bind.TransactOpts
	abi    abi.ABI
}

var _ Bank = (*ChainBank)(nil)

// NewChainBank creates a bank that signs token transfers with auth against
// the given RPC client.
func NewChainBank(client *ethclient.Client, auth *bind.TransactOpts) (*ChainBank, error) {
	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %v", err)
	}
	return &ChainBank{client: client, auth: auth, abi: parsed}, nil
}

func (b *ChainBank) contract(token common.Address) *bind.BoundContract {
	return bind.NewBoundContract(token, b.abi, b.client, b.client, b.client)
}

func (b *ChainBank) TransferFrom(ctx context.Context, token, owner, recipient common.Address, amount *big.Int) error {
	opts := *b.auth
	opts.Context = ctx
	tx, err := b.contract(token).Transact(&opts, "transferFrom", owner, recipient, amount)
	if err != nil {
		return fmt.Errorf("failed to send transferFrom: %v", err)
	}
	receipt, err := bind.WaitMined(ctx, b.client, tx)
	if err != nil {
		return fmt.Errorf("failed to wait for transferFrom: %v", err)
	}
	if receipt.Status == 0 {
		return ErrInsufficientAllowance
	}
	return nil
}

func (b *ChainBank) Transfer(ctx context.Context, token, recipient common.Address, amount *big.Int) error {
	opts := *b.auth
	opts.Context = ctx
	tx, err := b.contract(token).Transact(&opts, "transfer", recipient, amount)
	if err != nil {
		return fmt.Errorf("failed to send transfer: %v", err)
	}
	receipt, err := bind.WaitMined(ctx, b.client, tx)
	if err != nil {
		return fmt.Errorf("failed to wait for transfer: %v", err)
	}
	if receipt.Status == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (b *ChainBank) Allowance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	var out []interface{}
	callOpts := &bind.CallOpts{Context: ctx}
	if err := b.contract(token).Call(callOpts, &out, "allowance", owner, b.auth.From); err != nil {
		return nil, fmt.Errorf("failed to check allowance: %v", err)
	}
	if len(out) == 0 || out[0] == nil {
		return nil, fmt.Errorf("empty result from allowance call")
	}
	allowance, ok := out[0].(*big.Int)
	if !ok || allowance == nil {
		return nil, fmt.Errorf("invalid allowance result type")
	}
	return allowance, nil
}

func (b *ChainBank) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	var out []interface{}
	callOpts := &bind.CallOpts{Context: ctx}
	if err := b.contract(token).Call(callOpts, &out, "balanceOf", holder); err != nil {
		return nil, fmt.Errorf("failed to check balance: %v", err)
	}
	if len(out) == 0 || out[0] == nil {
		return nil, fmt.Errorf("empty result from balanceOf call")
	}
	balance, ok := out[0].(*big.Int)
	if !ok || balance == nil {
		return nil, fmt.Errorf("invalid balance result type")
	}
	return balance, nil
}
