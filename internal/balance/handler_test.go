package balance_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/dot_balance/internal/balance"
	"github.com/congo-pay/dot_balance/internal/chain"
	"github.com/congo-pay/dot_balance/internal/lightclient/lightclienttest"
	"github.com/congo-pay/dot_balance/internal/logging"
)

func setupHandlerApp(t *testing.T, launcher *lightclienttest.Launcher, syncTimeout time.Duration) *fiber.App {
	t.Helper()
	svc, _ := newService(t, launcher, balance.Options{SyncTimeout: syncTimeout})
	h := balance.NewHandler(svc, "DOT", logging.Discard())
	app := fiber.New()
	app.Get("/api/balance/:address", h.Get)
	app.Get("/api/lookups", h.Recent)
	return app
}

func doGet(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %s: %v", raw, err)
	}
	return resp.StatusCode, body
}

func TestHandlerReturnsBalance(t *testing.T) {
	launcher := &lightclienttest.Launcher{
		Heads:    []uint64{42},
		Accounts: map[string]chain.AccountState{testAddress: lightclienttest.Account(1234500000000, 5000000000, 0)},
	}
	app := setupHandlerApp(t, launcher, time.Second)

	status, body := doGet(t, app, "/api/balance/"+testAddress)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d (%v)", status, body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data in %v", body)
	}
	if data["free"] != 123.45 || data["reserved"] != 0.5 || data["total"] != 123.95 {
		t.Fatalf("unexpected balance %v", data)
	}
	if data["symbol"] != "DOT" || data["block_number"] != float64(42) {
		t.Fatalf("unexpected metadata %v", data)
	}
}

func TestHandlerMapsFailures(t *testing.T) {
	cases := []struct {
		name     string
		launcher *lightclienttest.Launcher
		status   int
	}{
		{"invalid address", &lightclienttest.Launcher{Heads: []uint64{1}, QueryErr: &chain.QueryError{Err: errors.New("checksum")}}, fiber.StatusBadRequest},
		{"sync timeout", &lightclienttest.Launcher{}, fiber.StatusServiceUnavailable},
		{"missing worker", &lightclienttest.Launcher{ResolveErr: errors.New("not installed")}, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		app := setupHandlerApp(t, tc.launcher, 20*time.Millisecond)
		status, body := doGet(t, app, "/api/balance/"+testAddress)
		if status != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.status, status)
		}
		if body["success"] != false || body["error"] != "Failed to fetch balance" {
			t.Fatalf("%s: unexpected body %v", tc.name, body)
		}
	}
}

func TestHandlerListsRecentLookups(t *testing.T) {
	launcher := &lightclienttest.Launcher{Heads: []uint64{9}}
	svc, _ := newService(t, launcher, balance.Options{})
	for i := 0; i < 3; i++ {
		if _, err := svc.Resolve(context.Background(), testAddress); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	h := balance.NewHandler(svc, "DOT", logging.Discard())
	app := fiber.New()
	app.Get("/api/lookups", h.Recent)

	status, body := doGet(t, app, "/api/lookups?limit=2")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	items, ok := body["data"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 lookups got %v", body["data"])
	}
	first := items[0].(map[string]any)
	if first["address"] != testAddress || first["outcome"] != "ok" || first["block_number"] != float64(9) {
		t.Fatalf("unexpected lookup %v", first)
	}
}
