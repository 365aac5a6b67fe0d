package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"

	"raffle-tui/session"
)

// Keyed is a provider holding a raw private key, for hardhat and anvil dev
// accounts. Its account never changes.
type Keyed struct {
	key     *ecdsa.PrivateKey
	address common.Address
	opts    Options
	logger  *log.Logger

	mu    sync.Mutex
	chain Chain
	feed  event.Feed
}

// NewKeyed parses a hex private key, with or without the 0x prefix.
func NewKeyed(hexKey string, opts Options) (*Keyed, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	opts = opts.withDefaults()
	return &Keyed{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		opts:    opts,
		logger:  opts.Logger.WithPrefix("keyed"),
	}, nil
}

// Address returns the key's account.
func (k *Keyed) Address() common.Address { return k.address }

// SetRPCURL sets the endpoint dialled by the next Enable.
func (k *Keyed) SetRPCURL(url string) {
	k.mu.Lock()
	k.opts.RPCURL = url
	k.mu.Unlock()
}

// Enable implements session.Provider.
func (k *Keyed) Enable(ctx context.Context) (session.Info, error) {
	k.mu.Lock()
	url := k.opts.RPCURL
	k.mu.Unlock()

	chain, err := k.opts.Dial(ctx, url)
	if err != nil {
		return session.Info{}, err
	}

	chainID, err := chain.ChainID(ctx)
	if err != nil {
		chain.Close()
		return session.Info{}, fmt.Errorf("query chain id: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(k.key, chainID)
	if err != nil {
		chain.Close()
		return session.Info{}, fmt.Errorf("failed to create transactor: %w", err)
	}

	k.mu.Lock()
	if k.chain != nil {
		k.chain.Close()
	}
	k.chain = chain
	k.mu.Unlock()

	k.logger.Info("enabled", "account", k.address.Hex(), "chain", chainID)

	return session.Info{
		Account:    k.address,
		ChainIDHex: hexutil.EncodeBig(chainID),
		Backend:    chain,
		Transactor: opts,
	}, nil
}

// Disable implements session.Provider.
func (k *Keyed) Disable() error {
	k.mu.Lock()
	chain := k.chain
	k.chain = nil
	k.mu.Unlock()

	if chain != nil {
		chain.Close()
	}
	return nil
}

// SubscribeAccountChanges implements session.Provider. A raw key never
// publishes a change.
func (k *Keyed) SubscribeAccountChanges(ch chan<- session.AccountChange) event.Subscription {
	return k.feed.Subscribe(ch)
}

// Close disables the provider.
func (k *Keyed) Close() error { return k.Disable() }
