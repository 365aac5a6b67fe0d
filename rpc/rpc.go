package rpc

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mdp/qrterminal/v3"
)

// DefaultTimeout bounds the dial and the first chain id query.
const DefaultTimeout = 8 * time.Second

// Client wraps an Ethereum RPC client
type Client struct {
	*ethclient.Client
	URL string
}

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client *Client
	Error  error
}

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, DefaultTimeout)
}

// ConnectWithTimeout attempts to connect with a custom timeout
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return ConnectContext(ctx, url)
}

// ConnectContext dials url and checks the endpoint answers eth_chainId, so a
// wrong URL fails here rather than on the first contract call.
func ConnectContext(ctx context.Context, url string) ConnectResult {
	if url == "" {
		return ConnectResult{Error: fmt.Errorf("no RPC url configured")}
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Error: fmt.Errorf("dial %s: %w", url, err)}
	}

	if _, err := client.ChainID(ctx); err != nil {
		client.Close()
		return ConnectResult{Error: fmt.Errorf("query chain id on %s: %w", url, err)}
	}

	return ConnectResult{
		Client: &Client{
			Client: client,
			URL:    url,
		},
	}
}

// ChainIDHex returns the endpoint's chain id hex encoded ("0x539").
func (c *Client) ChainIDHex(ctx context.Context) (string, error) {
	id, err := c.ChainID(ctx)
	if err != nil {
		return "", err
	}
	return hexutil.EncodeBig(id), nil
}

// GenerateQRCode renders data as a half-block terminal QR code.
func GenerateQRCode(data string) string {
	var buf bytes.Buffer
	qrterminal.GenerateHalfBlock(data, qrterminal.L, &buf)
	return buf.String()
}
