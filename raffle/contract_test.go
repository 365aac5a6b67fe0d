package raffle

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// stubBackend answers raffle calls from canned values and records sent
// transactions.
type stubBackend struct {
	t *testing.T

	mu   sync.Mutex
	fee  *big.Int
	sent []*types.Transaction
	head uint64
	// minedAt is the head at the time each transaction was sent
	minedAt  map[common.Hash]uint64
	reverted bool
}

func (b *stubBackend) setHead(n uint64) {
	b.mu.Lock()
	b.head = n
	b.mu.Unlock()
}

func (b *stubBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (b *stubBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	parsed, err := ABI()
	require.NoError(b.t, err)

	for name, value := range map[string]any{
		MethodGetEntranceFee:     b.fee,
		MethodGetNumberOfPlayers: big.NewInt(int64(len(b.sent))),
		MethodGetRecentWinner:    testWinner,
	} {
		method := parsed.Methods[name]
		if bytes.Equal(call.Data[:4], method.ID) {
			return method.Outputs.Pack(value)
		}
	}
	return nil, errors.New("unexpected call")
}

func (b *stubBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.head), BaseFee: big.NewInt(1_000_000_000)}, nil
}

func (b *stubBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return b.CodeAt(ctx, account, nil)
}

func (b *stubBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(b.sent)), nil
}

func (b *stubBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (b *stubBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *stubBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 120_000, nil
}

func (b *stubBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	if b.minedAt == nil {
		b.minedAt = make(map[common.Hash]uint64)
	}
	b.minedAt[tx.Hash()] = b.head
	return nil
}

func (b *stubBackend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (b *stubBackend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (b *stubBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	block, ok := b.minedAt[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	status := types.ReceiptStatusSuccessful
	if b.reverted {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{
		Status:      status,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(block),
	}, nil
}

func TestABI(t *testing.T) {
	parsed, err := ABI()
	require.NoError(t, err)

	for _, name := range []string{MethodEnterRaffle, MethodGetEntranceFee, MethodGetNumberOfPlayers, MethodGetRecentWinner} {
		method, ok := parsed.Methods[name]
		require.True(t, ok, name)
		require.Equal(t, crypto.Keccak256([]byte(name + "()"))[:4], method.ID, name)
	}
	require.True(t, parsed.Methods[MethodEnterRaffle].IsPayable())
}

func TestBoundContract_Refresh(t *testing.T) {
	backend := &stubBackend{t: t, fee: big.NewInt(10000000000000000)}
	c, err := NewBoundContract(testRaffle, backend, nil)
	require.NoError(t, err)
	require.Equal(t, testRaffle, c.Address())

	v, err := Refresh(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, View{
		EntranceFee:     "10000000000000000",
		NumberOfPlayers: "0",
		RecentWinner:    testWinner.Hex(),
	}, v)
}

func TestBoundContract_ReadOnly(t *testing.T) {
	c, err := NewBoundContract(testRaffle, &stubBackend{t: t, fee: big.NewInt(1)}, nil)
	require.NoError(t, err)

	_, err = Enter(context.Background(), c, big.NewInt(1))
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestBoundContract_Enter(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(1337))
	require.NoError(t, err)

	backend := &stubBackend{t: t, fee: big.NewInt(10000000000000000), head: 7}
	c, err := NewBoundContract(testRaffle, backend, opts)
	require.NoError(t, err)

	fee := big.NewInt(10000000000000000)
	tx, err := Enter(context.Background(), c, fee)
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	sent := backend.sent[0]
	require.Equal(t, tx.Hash(), sent.Hash())
	require.Equal(t, testRaffle, *sent.To())
	require.Zero(t, sent.Value().Cmp(fee))

	parsed, _ := ABI()
	require.Equal(t, parsed.Methods[MethodEnterRaffle].ID, sent.Data()[:4])

	// the shared transactor must not pick up the value
	require.Nil(t, opts.Value)

	receipt, err := tx.WaitForConfirmations(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, uint64(7), receipt.BlockNumber.Uint64())
}

func enterOnStub(t *testing.T, backend *stubBackend) Transaction {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(1337))
	require.NoError(t, err)

	c, err := NewBoundContract(testRaffle, backend, opts)
	require.NoError(t, err)
	tx, err := Enter(context.Background(), c, backend.fee)
	require.NoError(t, err)

	tx.(*minedWaiter).poll = 10 * time.Millisecond
	return tx
}

func TestBoundContract_Reverted(t *testing.T) {
	backend := &stubBackend{t: t, fee: big.NewInt(10000000000000000), head: 7, reverted: true}
	tx := enterOnStub(t, backend)

	receipt, err := tx.WaitForConfirmations(context.Background(), 1)
	require.ErrorIs(t, err, ErrReverted)
	require.NotNil(t, receipt)
	require.Equal(t, types.ReceiptStatusFailed, receipt.Status)
}

func TestBoundContract_ConfirmationDepth(t *testing.T) {
	backend := &stubBackend{t: t, fee: big.NewInt(10000000000000000), head: 7}
	tx := enterOnStub(t, backend)

	type result struct {
		receipt *types.Receipt
		err     error
	}
	done := make(chan result, 1)
	go func() {
		receipt, err := tx.WaitForConfirmations(context.Background(), 3)
		done <- result{receipt, err}
	}()

	// mined at 7, three confirmations need head 9
	backend.setHead(8)
	select {
	case <-done:
		t.Fatal("returned before the third confirmation")
	case <-time.After(100 * time.Millisecond):
	}

	backend.setHead(9)
	select {
	case res := <-done:
		require.NoError(t, res.err)
		require.Equal(t, uint64(7), res.receipt.BlockNumber.Uint64())
	case <-time.After(5 * time.Second):
		t.Fatal("confirmation wait did not return")
	}
}

func TestBoundContract_ConfirmationCancelled(t *testing.T) {
	backend := &stubBackend{t: t, fee: big.NewInt(10000000000000000), head: 7}
	tx := enterOnStub(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := tx.WaitForConfirmations(ctx, 2)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
