package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// ProviderStatus reports how far wallet connectivity got.
type ProviderStatus int

const (
	// StatusNoProvider means no RPC endpoint is configured at all.
	StatusNoProvider ProviderStatus = iota
	// StatusNotConnected means an endpoint is configured but unreachable.
	StatusNotConnected
	// StatusConnected means the endpoint answered a chain id probe.
	StatusConnected
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusNoProvider:
		return "no provider"
	case StatusNotConnected:
		return "not connected"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// SupportedNetworks maps chain ids to display names.
var SupportedNetworks = map[int64]string{
	1:        "Ethereum Mainnet",
	5:        "Goerli Testnet",
	11155111: "Sepolia Testnet",
	80001:    "Mumbai Testnet",
}

// NetworkName resolves a chain id to a display name.
func NetworkName(chainID int64) string {
	if name, ok := SupportedNetworks[chainID]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Network (%d)", chainID)
}

// Transaction is an outbound value transfer request.
type Transaction struct {
	From  string
	To    string
	Value *big.Int
}

// Client abstracts an Ethereum wallet provider.
type Client interface {
	Detect(ctx context.Context) ProviderStatus
	ChainID(ctx context.Context) (int64, error)
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
	SendTransaction(ctx context.Context, tx Transaction) (string, error)
}

// RPCClient talks JSON-RPC 2.0 to an Ethereum node over HTTP.
type RPCClient struct {
	url    string
	client *http.Client
}

func NewRPCClient(url string) *RPCClient {
	return &RPCClient{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return fmt.Errorf("failed to encode rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to decode rpc result: %w", err)
		}
	}

	return nil
}

// Detect probes the endpoint with a chain id request.
func (c *RPCClient) Detect(ctx context.Context) ProviderStatus {
	if c.url == "" {
		return StatusNoProvider
	}
	if _, err := c.ChainID(ctx); err != nil {
		return StatusNotConnected
	}
	return StatusConnected
}

func (c *RPCClient) ChainID(ctx context.Context) (int64, error) {
	var hexID string
	if err := c.call(ctx, "eth_chainId", []any{}, &hexID); err != nil {
		return 0, err
	}

	id, err := parseHexBig(hexID)
	if err != nil {
		return 0, fmt.Errorf("failed to parse chain id %q: %w", hexID, err)
	}
	return id.Int64(), nil
}

func (c *RPCClient) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	var hexBalance string
	if err := c.call(ctx, "eth_getBalance", []any{address, "latest"}, &hexBalance); err != nil {
		return nil, err
	}

	balance, err := parseHexBig(hexBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance %q: %w", hexBalance, err)
	}
	return balance, nil
}

func (c *RPCClient) SendTransaction(ctx context.Context, tx Transaction) (string, error) {
	params := map[string]string{
		"from":  tx.From,
		"to":    tx.To,
		"value": "0x" + tx.Value.Text(16),
	}

	var txHash string
	if err := c.call(ctx, "eth_sendTransaction", []any{params}, &txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

func parseHexBig(hexValue string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(hexValue, "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("empty hex value")
	}
	value, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex value")
	}
	return value, nil
}

var weiPerEth = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// FormatEth renders a wei amount as a four decimal ETH string.
func FormatEth(wei *big.Int) string {
	if wei == nil {
		return "0.0000"
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEth)
	return eth.Text('f', 4)
}

// ParseEth converts a decimal ETH amount into wei.
func ParseEth(amount string) (*big.Int, error) {
	eth, ok := new(big.Float).SetString(strings.TrimSpace(amount))
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if eth.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	wei, _ := new(big.Float).Mul(eth, weiPerEth).Int(nil)
	return wei, nil
}

// ValidAddress reports whether the value looks like a hex Ethereum
// address.
var addressRegexp = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func ValidAddress(address string) bool {
	return addressRegexp.MatchString(address)
}

var _ Client = (*RPCClient)(nil)
