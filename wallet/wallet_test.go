package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"raffle-tui/session"
)

// hardhat / anvil dev account #0
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var devAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

type simChain struct {
	simulated.Client
	closed *int
}

func (c simChain) Close() { *c.closed++ }

func simDialer(t *testing.T, funded ...common.Address) (Dialer, *simulated.Backend, *int) {
	t.Helper()

	alloc := types.GenesisAlloc{}
	for _, a := range funded {
		alloc[a] = types.Account{Balance: new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))}
	}
	backend := simulated.NewBackend(alloc)
	t.Cleanup(func() { _ = backend.Close() })

	closed := new(int)
	dial := func(context.Context, string) (Chain, error) {
		return simChain{Client: backend.Client(), closed: closed}, nil
	}
	return dial, backend, closed
}

// sendValue proves the transactor signs for the enabled chain.
func sendValue(t *testing.T, info session.Info, backend *simulated.Backend) {
	t.Helper()
	ctx := context.Background()

	nonce, err := info.Backend.PendingNonceAt(ctx, info.Account)
	require.NoError(t, err)
	gasPrice, err := info.Backend.SuggestGasPrice(ctx)
	require.NoError(t, err)

	to := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(1),
		Gas:      params.TxGas,
		GasPrice: gasPrice,
	})
	signed, err := info.Transactor.Signer(info.Account, tx)
	require.NoError(t, err)
	require.NoError(t, info.Backend.SendTransaction(ctx, signed))
	backend.Commit()

	receipt, err := bind.WaitMined(ctx, info.Backend, signed)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
}

func TestKeyed_Enable(t *testing.T) {
	dial, backend, closed := simDialer(t, devAddress)

	k, err := NewKeyed(devKey, Options{RPCURL: "sim", Dial: dial})
	require.NoError(t, err)
	require.Equal(t, devAddress, k.Address())

	info, err := k.Enable(context.Background())
	require.NoError(t, err)
	require.Equal(t, devAddress, info.Account)
	require.Equal(t, devAddress, info.Transactor.From)

	id, err := session.ParseChainID(info.ChainIDHex)
	require.NoError(t, err)
	require.Equal(t, uint64(1337), id)

	sendValue(t, info, backend)

	require.NoError(t, k.Disable())
	require.Equal(t, 1, *closed)
	require.NoError(t, k.Close())
	require.Equal(t, 1, *closed)
}

func TestKeyed_InvalidKey(t *testing.T) {
	_, err := NewKeyed("0x1234", Options{})
	require.Error(t, err)
}

func TestKeyed_DialFailure(t *testing.T) {
	k, err := NewKeyed(devKey, Options{Dial: func(context.Context, string) (Chain, error) {
		return nil, errors.New("connection refused")
	}})
	require.NoError(t, err)

	_, err = k.Enable(context.Background())
	require.ErrorContains(t, err, "connection refused")
}

func newTestKeystore(t *testing.T, dial Dialer) (*Keystore, common.Address) {
	t.Helper()

	k := NewKeystore(KeystoreOptions{
		Options: Options{RPCURL: "sim", Dial: dial},
		Dir:     t.TempDir(),
		Light:   true,
	})
	t.Cleanup(func() { _ = k.Close() })

	acct, err := k.KeyStore().NewAccount("correct horse")
	require.NoError(t, err)
	return k, acct.Address
}

func TestKeystore_NoAccount(t *testing.T) {
	k := NewKeystore(KeystoreOptions{Dir: t.TempDir(), Light: true, Passphrase: "x"})
	defer k.Close()

	_, err := k.Enable(context.Background())
	require.ErrorIs(t, err, ErrNoAccount)
}

func TestKeystore_Passphrase(t *testing.T) {
	dial, _, _ := simDialer(t)
	k, _ := newTestKeystore(t, dial)

	require.True(t, k.NeedsPassphrase())
	_, err := k.Enable(context.Background())
	require.ErrorIs(t, err, ErrPassphraseRequired)

	k.SetPassphrase("wrong")
	require.False(t, k.NeedsPassphrase())
	_, err = k.Enable(context.Background())
	require.ErrorIs(t, err, ErrPassphraseRequired)
	require.ErrorIs(t, err, keystore.ErrDecrypt)

	// the rejected passphrase is dropped, so the prompt opens again
	require.True(t, k.NeedsPassphrase())

	k.SetPassphrase("correct horse")
	info, err := k.Enable(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info.Transactor)
}

func TestKeystore_EnableAndDrop(t *testing.T) {
	var k *Keystore
	var addr common.Address

	// the account must exist before the chain is funded
	dialHolder := new(Dialer)
	k, addr = newTestKeystore(t, func(ctx context.Context, url string) (Chain, error) {
		return (*dialHolder)(ctx, url)
	})
	dial, backend, _ := simDialer(t, addr)
	*dialHolder = dial

	changes := make(chan session.AccountChange, 1)
	sub := k.SubscribeAccountChanges(changes)
	defer sub.Unsubscribe()

	k.SetPassphrase("correct horse")
	info, err := k.Enable(context.Background())
	require.NoError(t, err)
	require.Equal(t, addr, info.Account)
	require.Equal(t, "0x539", info.ChainIDHex)

	sendValue(t, info, backend)

	acct, err := k.KeyStore().Find(k.KeyStore().Accounts()[0])
	require.NoError(t, err)
	require.NoError(t, k.KeyStore().Delete(acct, "correct horse"))

	select {
	case change := <-changes:
		require.Nil(t, change.Account)
	case <-time.After(10 * time.Second):
		t.Fatal("no account change after the key file was removed")
	}
}

func TestKeystore_DroppedIgnoresOtherAccounts(t *testing.T) {
	dial, _, _ := simDialer(t)
	k, _ := newTestKeystore(t, dial)

	changes := make(chan session.AccountChange, 1)
	sub := k.SubscribeAccountChanges(changes)
	defer sub.Unsubscribe()

	// nothing active yet
	k.dropped(k.KeyStore().Accounts())
	require.Empty(t, changes)
}
