package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"

	"raffle-tui/session"
)

// KeystoreOptions configures a Keystore provider.
type KeystoreOptions struct {
	Options
	// Dir is the keystore directory.
	Dir string
	// Account selects a key by address. The first account is used when empty.
	Account    string
	Passphrase string
	// Light selects the cheap scrypt parameters, for tests and dev keys.
	Light bool
}

// Keystore is a provider backed by a go-ethereum keystore directory. Dropping
// the active key file is reported as a nil account change.
type Keystore struct {
	ks     *keystore.KeyStore
	opts   KeystoreOptions
	logger *log.Logger

	mu         sync.Mutex
	passphrase string
	active     *accounts.Account
	chain      Chain

	feed      event.Feed
	sub       event.Subscription
	done      chan struct{}
	closeOnce sync.Once
}

// NewKeystore opens the keystore directory and starts watching it.
func NewKeystore(opts KeystoreOptions) *Keystore {
	opts.Options = opts.Options.withDefaults()

	scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
	if opts.Light {
		scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	}

	k := &Keystore{
		ks:         keystore.NewKeyStore(opts.Dir, scryptN, scryptP),
		opts:       opts,
		logger:     opts.Logger.WithPrefix("keystore"),
		passphrase: opts.Passphrase,
		done:       make(chan struct{}),
	}

	events := make(chan accounts.WalletEvent, 16)
	k.sub = k.ks.Subscribe(events)
	go k.watch(events)

	return k
}

// KeyStore exposes the underlying go-ethereum keystore.
func (k *Keystore) KeyStore() *keystore.KeyStore { return k.ks }

func (k *Keystore) watch(events <-chan accounts.WalletEvent) {
	for {
		select {
		case ev := <-events:
			if ev.Kind == accounts.WalletDropped {
				k.dropped(ev.Wallet.Accounts())
			}
		case err := <-k.sub.Err():
			if err != nil {
				k.logger.Error("wallet event subscription failed", "err", err)
			}
			return
		case <-k.done:
			return
		}
	}
}

// dropped publishes a nil account when the active account is among accts.
func (k *Keystore) dropped(accts []accounts.Account) {
	k.mu.Lock()
	active := k.active
	k.mu.Unlock()
	if active == nil {
		return
	}

	for _, a := range accts {
		if a.Address == active.Address {
			k.logger.Warn("active key file removed", "account", a.Address.Hex())
			k.feed.Send(session.AccountChange{})
			return
		}
	}
}

// NeedsPassphrase reports whether Enable would fail for lack of a passphrase.
func (k *Keystore) NeedsPassphrase() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.passphrase == ""
}

// SetPassphrase sets the passphrase used by the next Enable.
func (k *Keystore) SetPassphrase(passphrase string) {
	k.mu.Lock()
	k.passphrase = passphrase
	k.mu.Unlock()
}

// SetRPCURL sets the endpoint dialled by the next Enable.
func (k *Keystore) SetRPCURL(url string) {
	k.mu.Lock()
	k.opts.RPCURL = url
	k.mu.Unlock()
}

func (k *Keystore) account() (accounts.Account, error) {
	if k.opts.Account != "" {
		if !common.IsHexAddress(k.opts.Account) {
			return accounts.Account{}, fmt.Errorf("invalid account %q", k.opts.Account)
		}
		acct, err := k.ks.Find(accounts.Account{Address: common.HexToAddress(k.opts.Account)})
		if err != nil {
			return accounts.Account{}, fmt.Errorf("find %s: %w", k.opts.Account, err)
		}
		return acct, nil
	}

	all := k.ks.Accounts()
	if len(all) == 0 {
		return accounts.Account{}, fmt.Errorf("%w in %s", ErrNoAccount, k.opts.Dir)
	}
	return all[0], nil
}

// Enable implements session.Provider.
func (k *Keystore) Enable(ctx context.Context) (session.Info, error) {
	acct, err := k.account()
	if err != nil {
		return session.Info{}, err
	}

	k.mu.Lock()
	passphrase, url := k.passphrase, k.opts.RPCURL
	k.mu.Unlock()

	if err := k.ks.Unlock(acct, passphrase); err != nil {
		if passphrase == "" {
			return session.Info{}, ErrPassphraseRequired
		}
		if errors.Is(err, keystore.ErrDecrypt) {
			// wrong passphrase: forget it so the next connect prompts again
			k.mu.Lock()
			if k.passphrase == passphrase {
				k.passphrase = ""
			}
			k.mu.Unlock()
			return session.Info{}, fmt.Errorf("unlock %s: %w: %w", acct.Address.Hex(), ErrPassphraseRequired, err)
		}
		return session.Info{}, fmt.Errorf("unlock %s: %w", acct.Address.Hex(), err)
	}

	chain, err := k.opts.Dial(ctx, url)
	if err != nil {
		_ = k.ks.Lock(acct.Address)
		return session.Info{}, err
	}

	chainID, err := chain.ChainID(ctx)
	if err != nil {
		chain.Close()
		_ = k.ks.Lock(acct.Address)
		return session.Info{}, fmt.Errorf("query chain id: %w", err)
	}

	opts, err := bind.NewKeyStoreTransactorWithChainID(k.ks, acct, chainID)
	if err != nil {
		chain.Close()
		_ = k.ks.Lock(acct.Address)
		return session.Info{}, fmt.Errorf("failed to create transactor: %w", err)
	}

	k.mu.Lock()
	if k.chain != nil {
		k.chain.Close()
	}
	k.active = &acct
	k.chain = chain
	k.mu.Unlock()

	k.logger.Info("unlocked", "account", acct.Address.Hex(), "chain", chainID)

	return session.Info{
		Account:    acct.Address,
		ChainIDHex: hexutil.EncodeBig(chainID),
		Backend:    chain,
		Transactor: opts,
	}, nil
}

// Disable implements session.Provider. It locks the key and closes the RPC
// connection.
func (k *Keystore) Disable() error {
	k.mu.Lock()
	active, chain := k.active, k.chain
	k.active, k.chain = nil, nil
	k.mu.Unlock()

	if chain != nil {
		chain.Close()
	}
	if active == nil {
		return nil
	}
	k.logger.Info("locked", "account", active.Address.Hex())
	return k.ks.Lock(active.Address)
}

// SubscribeAccountChanges implements session.Provider.
func (k *Keystore) SubscribeAccountChanges(ch chan<- session.AccountChange) event.Subscription {
	return k.feed.Subscribe(ch)
}

// Close stops watching the keystore and disables any active session.
func (k *Keystore) Close() error {
	k.closeOnce.Do(func() {
		close(k.done)
		k.sub.Unsubscribe()
	})
	return k.Disable()
}
