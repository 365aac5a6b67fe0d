package raffle

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:embed abi.json
var raffleABI string

// Raffle contract methods used by the panel.
const (
	MethodEnterRaffle        = "enterRaffle"
	MethodGetEntranceFee     = "getEntranceFee"
	MethodGetNumberOfPlayers = "getNumberOfPlayers"
	MethodGetRecentWinner    = "getRecentWinner"
)

var (
	// ErrReadOnly is returned by Transact on a contract bound without a signer.
	ErrReadOnly = errors.New("raffle: contract bound without a transactor")
	// ErrReverted is returned when a mined transaction has a failed status.
	ErrReverted = errors.New("raffle: transaction reverted")
)

var (
	parseOnce sync.Once
	parsedABI abi.ABI
	parseErr  error
)

// ABI returns the parsed raffle ABI.
func ABI() (abi.ABI, error) {
	parseOnce.Do(func() {
		parsedABI, parseErr = abi.JSON(strings.NewReader(raffleABI))
	})
	return parsedABI, parseErr
}

// ContractClient calls functions of one deployed contract.
type ContractClient interface {
	// Call runs a read-only function and returns its decoded outputs.
	Call(ctx context.Context, method string, params ...any) ([]any, error)
	// Transact submits a state-changing function carrying value wei.
	Transact(ctx context.Context, value *big.Int, method string, params ...any) (Transaction, error)
}

// Transaction is a submitted transaction.
type Transaction interface {
	Hash() common.Hash
	// WaitForConfirmations blocks until the transaction is mined and n blocks
	// deep (n = 1 means included in the head block).
	WaitForConfirmations(ctx context.Context, n uint64) (*types.Receipt, error)
}

// Backend is the chain access a bound contract needs.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// BoundContract is a ContractClient over go-ethereum's bound contract.
type BoundContract struct {
	address    common.Address
	backend    Backend
	contract   *bind.BoundContract
	transactor *bind.TransactOpts
}

// NewBoundContract binds the raffle ABI at address. transactor may be nil for
// a read-only client.
func NewBoundContract(address common.Address, backend Backend, transactor *bind.TransactOpts) (*BoundContract, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse raffle abi: %w", err)
	}
	return &BoundContract{
		address:    address,
		backend:    backend,
		contract:   bind.NewBoundContract(address, parsed, backend, backend, backend),
		transactor: transactor,
	}, nil
}

// Address returns the bound contract address.
func (c *BoundContract) Address() common.Address { return c.address }

func (c *BoundContract) Call(ctx context.Context, method string, params ...any) ([]any, error) {
	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BoundContract) Transact(ctx context.Context, value *big.Int, method string, params ...any) (Transaction, error) {
	if c.transactor == nil {
		return nil, ErrReadOnly
	}
	opts := *c.transactor
	opts.Context = ctx
	opts.Value = value

	tx, err := c.contract.Transact(&opts, method, params...)
	if err != nil {
		return nil, err
	}
	return &minedWaiter{tx: tx, backend: c.backend, poll: time.Second}, nil
}

type minedWaiter struct {
	tx      *types.Transaction
	backend Backend
	poll    time.Duration
}

func (w *minedWaiter) Hash() common.Hash { return w.tx.Hash() }

func (w *minedWaiter) WaitForConfirmations(ctx context.Context, n uint64) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, w.backend, w.tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for transaction: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, ErrReverted
	}
	if n <= 1 || receipt.BlockNumber == nil {
		return receipt, nil
	}

	target := new(big.Int).Add(receipt.BlockNumber, new(big.Int).SetUint64(n-1))
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		head, err := w.backend.HeaderByNumber(ctx, nil)
		if err == nil && head.Number.Cmp(target) >= 0 {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return receipt, ctx.Err()
		case <-ticker.C:
		}
	}
}
