package raffle

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	testRaffle = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testWinner = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

type fakeTx struct{ hash common.Hash }

func (tx fakeTx) Hash() common.Hash { return tx.hash }

func (tx fakeTx) WaitForConfirmations(context.Context, uint64) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.hash}, nil
}

type fakeClient struct {
	mu       sync.Mutex
	fee      *big.Int
	players  *big.Int
	winner   common.Address
	failOn   string
	calls    map[string]int
	paid     []*big.Int
	enterErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		fee:     big.NewInt(10000000000000000),
		players: big.NewInt(3),
		winner:  testWinner,
		calls:   make(map[string]int),
	}
}

func (c *fakeClient) Call(_ context.Context, method string, _ ...any) ([]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	if method == c.failOn {
		return nil, errors.New("execution reverted")
	}
	switch method {
	case MethodGetEntranceFee:
		return []any{new(big.Int).Set(c.fee)}, nil
	case MethodGetNumberOfPlayers:
		return []any{new(big.Int).Set(c.players)}, nil
	case MethodGetRecentWinner:
		return []any{c.winner}, nil
	}
	return nil, errors.New("unknown method")
}

func (c *fakeClient) Transact(_ context.Context, value *big.Int, method string, _ ...any) (Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	if c.enterErr != nil {
		return nil, c.enterErr
	}
	c.paid = append(c.paid, value)
	c.players.Add(c.players, big.NewInt(1))
	return fakeTx{hash: common.HexToHash("0x01")}, nil
}

func testPanel() *Panel {
	return NewPanel(Registry{1337: {testRaffle}})
}

func TestRefresh(t *testing.T) {
	client := newFakeClient()

	v, err := Refresh(context.Background(), client)
	require.NoError(t, err)
	require.Equal(t, View{
		EntranceFee:     "10000000000000000",
		NumberOfPlayers: "3",
		RecentWinner:    testWinner.Hex(),
	}, v)

	require.Equal(t, 1, client.calls[MethodGetEntranceFee])
	require.Equal(t, 1, client.calls[MethodGetNumberOfPlayers])
	require.Equal(t, 1, client.calls[MethodGetRecentWinner])
}

func TestRefresh_Idempotent(t *testing.T) {
	client := newFakeClient()

	first, err := Refresh(context.Background(), client)
	require.NoError(t, err)
	second, err := Refresh(context.Background(), client)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRefresh_ReadFailure(t *testing.T) {
	client := newFakeClient()
	client.failOn = MethodGetNumberOfPlayers

	_, err := Refresh(context.Background(), client)
	require.Error(t, err)
	require.Contains(t, err.Error(), MethodGetNumberOfPlayers)
}

func TestPanel_UnknownChain(t *testing.T) {
	p := testPanel()
	p.SetChain(5)

	_, ok := p.Address()
	require.False(t, ok)
	require.False(t, p.CanSubmit())
	require.ErrorIs(t, p.BeginRefresh(), ErrNoAddress)

	_, err := p.BeginSubmit()
	require.ErrorIs(t, err, ErrNoAddress)
}

func TestPanel_KnownChain(t *testing.T) {
	p := testPanel()
	p.SetChain(1337)

	addr, ok := p.Address()
	require.True(t, ok)
	require.Equal(t, testRaffle, addr)
	require.True(t, p.CanSubmit())
	require.Equal(t, ZeroView(), p.View())
}

func TestPanel_FailedRefreshKeepsView(t *testing.T) {
	p := testPanel()
	p.SetChain(1337)

	require.NoError(t, p.BeginRefresh())
	v, err := Refresh(context.Background(), newFakeClient())
	p.EndRefresh(v, err)
	committed := p.View()
	require.Equal(t, "3", committed.NumberOfPlayers)
	require.False(t, p.UpdatedAt().IsZero())

	failing := newFakeClient()
	failing.failOn = MethodGetRecentWinner
	require.NoError(t, p.BeginRefresh())
	v, err = Refresh(context.Background(), failing)
	p.EndRefresh(v, err)

	require.Equal(t, committed, p.View())
	require.False(t, p.Refreshing())
}

func TestPanel_SubmitGuards(t *testing.T) {
	p := testPanel()
	p.SetChain(1337)

	require.NoError(t, p.BeginRefresh())
	require.False(t, p.CanSubmit())
	_, err := p.BeginSubmit()
	require.ErrorIs(t, err, ErrBusy)
	require.ErrorIs(t, p.BeginRefresh(), ErrBusy)

	p.EndRefresh(View{EntranceFee: "10000000000000000", NumberOfPlayers: "0", RecentWinner: "0"}, nil)
	require.True(t, p.CanSubmit())

	fee, err := p.BeginSubmit()
	require.NoError(t, err)
	require.Zero(t, fee.Cmp(big.NewInt(10000000000000000)))
	require.False(t, p.CanSubmit())
	_, err = p.BeginSubmit()
	require.ErrorIs(t, err, ErrBusy)

	p.EndSubmit(common.Hash{}, errors.New("user denied transaction signature"))
	require.True(t, p.CanSubmit())
	_, pending := p.Pending()
	require.False(t, pending)
}

func TestPanel_SubmitAccepted(t *testing.T) {
	p := testPanel()
	p.SetChain(1337)
	client := newFakeClient()

	require.NoError(t, p.BeginRefresh())
	v, err := Refresh(context.Background(), client)
	p.EndRefresh(v, err)

	fee, err := p.BeginSubmit()
	require.NoError(t, err)
	tx, err := Enter(context.Background(), client, fee)
	require.NoError(t, err)
	p.EndSubmit(tx.Hash(), nil)

	require.True(t, p.CanSubmit())
	hash, ok := p.Pending()
	require.True(t, ok)
	require.Equal(t, tx.Hash(), hash)

	_, err = tx.WaitForConfirmations(context.Background(), 1)
	require.NoError(t, err)
	p.Confirmed(common.HexToHash("0x02"))
	_, ok = p.Pending()
	require.True(t, ok)
	p.Confirmed(hash)
	_, ok = p.Pending()
	require.False(t, ok)

	require.Len(t, client.paid, 1)
	require.Zero(t, client.paid[0].Cmp(fee))
}

func TestPanel_QueuedRefresh(t *testing.T) {
	p := testPanel()
	p.SetChain(1337)

	require.NoError(t, p.BeginRefresh())
	require.ErrorIs(t, p.BeginRefresh(), ErrBusy)
	require.ErrorIs(t, p.BeginRefresh(), ErrBusy)

	// both requests coalesce into one follow-up
	require.True(t, p.EndRefresh(View{EntranceFee: "1", NumberOfPlayers: "0", RecentWinner: "x"}, nil))
	require.NoError(t, p.BeginRefresh())
	require.False(t, p.EndRefresh(View{EntranceFee: "1", NumberOfPlayers: "1", RecentWinner: "x"}, nil))
	require.Equal(t, "1", p.View().NumberOfPlayers)

	// a failed read still reports the queued request
	require.NoError(t, p.BeginRefresh())
	require.ErrorIs(t, p.BeginRefresh(), ErrBusy)
	require.True(t, p.EndRefresh(View{}, errors.New("timeout")))

	// reset drops it
	require.NoError(t, p.BeginRefresh())
	require.ErrorIs(t, p.BeginRefresh(), ErrBusy)
	p.Reset()
	p.SetChain(1337)
	require.NoError(t, p.BeginRefresh())
	require.False(t, p.EndRefresh(ZeroView(), nil))
}

func TestPanel_Reset(t *testing.T) {
	p := testPanel()
	p.SetChain(1337)
	require.NoError(t, p.BeginRefresh())
	p.EndRefresh(View{EntranceFee: "1", NumberOfPlayers: "1", RecentWinner: "x"}, nil)

	p.Reset()
	require.Equal(t, ZeroView(), p.View())
	_, ok := p.Address()
	require.False(t, ok)
	require.False(t, p.Refreshing())
}

func TestPaymentURI(t *testing.T) {
	uri := PaymentURI(testRaffle, 1337, "10000000000000000")
	require.Equal(t, "ethereum:0x5FbDB2315678afecb367f032d93F642f64180aa3@1337?value=10000000000000000", uri)
}
