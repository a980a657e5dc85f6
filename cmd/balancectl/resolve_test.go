package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/config"
	"github.com/congo-pay/dot_balance/internal/substrate"
	"github.com/congo-pay/dot_balance/internal/substrate/substratetest"
)

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := config.Config{LightClient: config.LightClient{Mode: config.ModeProcess, PoolSize: 3, SyncTimeout: time.Minute}}
	flags := &rootFlags{mode: "REMOTE", rpcURL: "ws://127.0.0.1:9944", syncTimeout: "90s"}
	if err := flags.apply(&cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	lc := cfg.LightClient
	if lc.Mode != config.ModeRemote || lc.RPCURL != "ws://127.0.0.1:9944" || lc.SyncTimeout != 90*time.Second {
		t.Fatalf("unexpected config %+v", lc)
	}
	if lc.PoolSize != 0 {
		t.Fatalf("one-shot lookups must not pool, got %d", lc.PoolSize)
	}
}

func TestFlagsRejectInvalidValues(t *testing.T) {
	for _, flags := range []*rootFlags{{mode: "embedded"}, {syncTimeout: "later"}, {syncTimeout: "-1s"}} {
		cfg := config.Config{}
		if err := flags.apply(&cfg); err == nil {
			t.Fatalf("expected error for %+v", flags)
		}
	}
}

func TestResolveCommandAgainstNode(t *testing.T) {
	node := substratetest.NewNode()
	defer node.Close()
	node.Heads = []uint64{11}

	const address = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	id, _, err := substrate.DecodeAddress(address)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	state := substrate.EncodeAccountInfo(accountWithFree(20000000000))
	node.Storage[substrate.HexEncode(substrate.SystemAccountKey(id))] = substrate.HexEncode(state)

	t.Setenv("LIGHT_CLIENT_MODE", "remote")
	t.Setenv("RPC_URL", node.URL())
	t.Setenv("SYNC_TIMEOUT", "5s")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"resolve", "--log-level", "error", address})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v (stderr %s)", err, stderr.String())
	}

	var out resolveOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("decode output %q: %v", stdout.String(), err)
	}
	if out.Free.String() != "2" || out.Total.String() != "2" || out.BlockNumber != 11 || !out.Found {
		t.Fatalf("unexpected output %+v", out)
	}
}

func accountWithFree(planck uint64) chain.AccountState {
	state := chain.EmptyAccountState()
	state.Free.SetUint64(planck)
	return state
}
