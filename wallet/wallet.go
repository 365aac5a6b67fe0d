// Package wallet implements the wallet providers the session manager drives:
// a go-ethereum keystore directory and a raw hex private key.
package wallet

import (
	"context"
	"errors"
	"io"
	"math/big"

	"github.com/charmbracelet/log"

	"raffle-tui/rpc"
	"raffle-tui/session"
)

var (
	// ErrNoAccount is returned by Enable when the keystore holds no usable
	// account.
	ErrNoAccount = errors.New("wallet: no account available")
	// ErrPassphraseRequired is returned by Enable when the keystore account
	// cannot be unlocked without a passphrase.
	ErrPassphraseRequired = errors.New("wallet: passphrase required")
)

// Chain is a connected endpoint as the providers use it.
type Chain interface {
	session.Backend
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// Dialer opens a Chain for url.
type Dialer func(ctx context.Context, url string) (Chain, error)

// DialRPC is the Dialer backed by ethclient.
func DialRPC(ctx context.Context, url string) (Chain, error) {
	res := rpc.ConnectContext(ctx, url)
	if res.Error != nil {
		return nil, res.Error
	}
	return res.Client, nil
}

// PassphraseSetter is implemented by providers that need a passphrase before
// they can enable.
type PassphraseSetter interface {
	NeedsPassphrase() bool
	SetPassphrase(passphrase string)
}

// EndpointSetter is implemented by providers whose RPC endpoint can change
// between sessions.
type EndpointSetter interface {
	SetRPCURL(url string)
}

// Options are shared by every provider.
type Options struct {
	RPCURL string
	Dial   Dialer
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Dial == nil {
		o.Dial = DialRPC
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}
