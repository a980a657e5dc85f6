package infra_test

import (
	"context"
	"testing"
	"time"

	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/config"
	"github.com/congo-pay/dot_balance/internal/infra"
	"github.com/congo-pay/dot_balance/internal/logging"
	"github.com/congo-pay/dot_balance/internal/substrate/substratetest"
)

func TestNewConnectorWarmsPool(t *testing.T) {
	node := substratetest.NewNode()
	defer node.Close()

	cfg := config.LightClient{
		Mode:         config.ModeRemote,
		RPCURL:       node.URL(),
		StartTimeout: 5 * time.Second,
		PoolSize:     2,
	}
	connector, closeConnector, err := infra.NewConnector(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("new connector: %v", err)
	}
	waitAccepted(t, node, 2)

	conn, err := connector.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	connector.Release(conn)
	if got := node.Accepted(); got != 2 {
		t.Fatalf("expected checkout to reuse a warmed connection, node accepted %d", got)
	}

	if err := closeConnector(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewConnectorColdWhenPoolDisabled(t *testing.T) {
	node := substratetest.NewNode()
	defer node.Close()

	cfg := config.LightClient{Mode: config.ModeRemote, RPCURL: node.URL()}
	_, closeConnector, err := infra.NewConnector(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("new connector: %v", err)
	}
	defer closeConnector(context.Background())
	if got := node.Accepted(); got != 0 {
		t.Fatalf("expected no connections before first lookup, got %d", got)
	}
}

func TestChainSpecCarriesOnlyChainIdentity(t *testing.T) {
	cfg := config.LightClient{ChainName: "polkadot", ChainSpecPath: "chainspecs/polkadot.json", TokenDecimals: 12, TokenSymbol: "KSM"}
	want := chain.Spec{Name: "polkadot", Path: "chainspecs/polkadot.json"}
	if got := infra.ChainSpec(cfg); got != want {
		t.Fatalf("ChainSpec = %+v want %+v", got, want)
	}
}

// waitAccepted polls until the node has seen n connections; the server side
// records a connection just after the handshake completes.
func waitAccepted(t *testing.T, node *substratetest.Node, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for node.Accepted() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connections, node accepted %d", n, node.Accepted())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
