package wallet

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
)

func rpcServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode rpc request: %v", err)
		}

		result, ok := results[req.Method]
		if !ok {
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"id":      1,
				"error":   map[string]any{"code": -32601, "message": "method not found"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  result,
		})
	}))
}

func TestDetect(t *testing.T) {
	srv := rpcServer(t, map[string]string{"eth_chainId": "0x1"})
	defer srv.Close()

	if got := NewRPCClient("").Detect(context.Background()); got != StatusNoProvider {
		t.Errorf("empty url: expected StatusNoProvider, got %v", got)
	}
	if got := NewRPCClient("http://127.0.0.1:1").Detect(context.Background()); got != StatusNotConnected {
		t.Errorf("unreachable url: expected StatusNotConnected, got %v", got)
	}
	if got := NewRPCClient(srv.URL).Detect(context.Background()); got != StatusConnected {
		t.Errorf("reachable url: expected StatusConnected, got %v", got)
	}
}

func TestChainID(t *testing.T) {
	srv := rpcServer(t, map[string]string{"eth_chainId": "0xaa36a7"})
	defer srv.Close()

	id, err := NewRPCClient(srv.URL).ChainID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 11155111 {
		t.Errorf("expected chain id 11155111, got %d", id)
	}
	if name := NetworkName(id); name != "Sepolia Testnet" {
		t.Errorf("expected Sepolia Testnet, got %q", name)
	}
}

func TestBalanceOf(t *testing.T) {
	// 1.5 ETH in wei.
	srv := rpcServer(t, map[string]string{"eth_getBalance": "0x14d1120d7b160000"})
	defer srv.Close()

	balance, err := NewRPCClient(srv.URL).BalanceOf(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	if balance.Cmp(want) != 0 {
		t.Errorf("expected balance %v, got %v", want, balance)
	}
	if got := FormatEth(balance); got != "1.5000" {
		t.Errorf("expected 1.5000, got %q", got)
	}
}

func TestSendTransaction(t *testing.T) {
	srv := rpcServer(t, map[string]string{"eth_sendTransaction": "0xdeadbeef"})
	defer srv.Close()

	hash, err := NewRPCClient(srv.URL).SendTransaction(context.Background(), Transaction{
		From:  "0xaaa",
		To:    "0xbbb",
		Value: big.NewInt(1000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != "0xdeadbeef" {
		t.Errorf("expected tx hash 0xdeadbeef, got %q", hash)
	}
}

func TestRPCError(t *testing.T) {
	srv := rpcServer(t, map[string]string{})
	defer srv.Close()

	if _, err := NewRPCClient(srv.URL).ChainID(context.Background()); err == nil {
		t.Fatal("expected rpc error")
	}
}

func TestParseEth(t *testing.T) {
	wei, err := ParseEth("1.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	if wei.Cmp(want) != 0 {
		t.Errorf("expected %v wei, got %v", want, wei)
	}

	for _, bad := range []string{"", "abc", "-1", "0"} {
		if _, err := ParseEth(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestValidAddress(t *testing.T) {
	if !ValidAddress("0x52908400098527886E0F7030069857D2E4169EE7") {
		t.Error("expected checksummed address to validate")
	}
	for _, bad := range []string{"", "0x123", "52908400098527886E0F7030069857D2E4169EE7", "0xZZ08400098527886E0F7030069857D2E4169EE7a"} {
		if ValidAddress(bad) {
			t.Errorf("expected %q to be invalid", bad)
		}
	}
}

func TestNetworkNameUnknown(t *testing.T) {
	if got := NetworkName(999); got != "Unknown Network (999)" {
		t.Errorf("unexpected name %q", got)
	}
}
