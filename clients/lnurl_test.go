package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/vitwit/l402/types"
)

// testInvoice encodes a minimal BOLT-11 style payment request carrying the
// given payment hash.
func testInvoice(t *testing.T, hash [32]byte) string {
	t.Helper()

	data := make([]byte, 7)
	groups, err := bech32.ConvertBits(hash[:], 8, 5, true)
	if err != nil {
		t.Fatalf("convertbits failed: %v", err)
	}
	data = append(data, 1, 1, 20)
	data = append(data, groups...)

	invoice, err := bech32.Encode("lnbc210n", data)
	if err != nil {
		t.Fatalf("bech32 encode failed: %v", err)
	}
	return invoice
}

// startLNURLServer serves LNURL-pay params for alice plus the invoice
// callback, and records the amount the callback was queried with.
func startLNURLServer(t *testing.T, hash [32]byte, minSendable,
	maxSendable uint64) (*httptest.Server, *string) {

	t.Helper()

	amount := new(string)
	mux := http.NewServeMux()
	server := httptest.NewTLSServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/.well-known/lnurlp/alice", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(lnurlPayParams{
			Callback:    server.URL + "/callback",
			MinSendable: minSendable,
			MaxSendable: maxSendable,
			Tag:         "payRequest",
		})
	})
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		*amount = r.URL.Query().Get("amount")
		json.NewEncoder(w).Encode(lnurlCallbackResponse{
			PR: testInvoice(t, hash),
		})
	})

	return server, amount
}

func TestLNURLAddInvoice(t *testing.T) {
	var hash [32]byte
	for i := range hash {
		hash[i] = byte(i)
	}

	server, amount := startLNURLServer(t, hash, 1000, 100_000_000)

	client, err := newLNURLClient(
		"alice@example.com", server.URL+"/.well-known/lnurlp/alice",
		server.Client(),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	resp, err := client.AddInvoice(context.Background(), &types.InvoiceRequest{
		AmountMsat: 21_000,
		Memo:       "L402",
	})
	if err != nil {
		t.Fatalf("add invoice failed: %v", err)
	}

	if *amount != "21000" {
		t.Fatalf("callback queried with amount %q", *amount)
	}
	if resp.PaymentHash != hash {
		t.Fatalf("expected hash %x, got %x", hash, resp.PaymentHash)
	}
	if resp.PaymentRequest == "" {
		t.Fatal("empty payment request")
	}
}

func TestLNURLAmountBounds(t *testing.T) {
	var hash [32]byte
	server, _ := startLNURLServer(t, hash, 10_000, 20_000)

	client, err := newLNURLClient(
		"alice@example.com", server.URL+"/.well-known/lnurlp/alice",
		server.Client(),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	for _, amount := range []uint64{1000, 30_000} {
		_, err := client.AddInvoice(context.Background(), &types.InvoiceRequest{
			AmountMsat: amount,
		})

		var l402Err *types.L402Error
		if !errors.As(err, &l402Err) || l402Err.Code != types.ErrBackendRejected {
			t.Fatalf("amount %d: expected BACKEND_REJECTED, got %v", amount, err)
		}
	}
}

func TestLNURLNotPayRequest(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewTLSServer(mux)
	defer server.Close()

	mux.HandleFunc("/.well-known/lnurlp/alice", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(lnurlPayParams{Tag: "withdrawRequest"})
	})

	_, err := newLNURLClient(
		"alice@example.com", server.URL+"/.well-known/lnurlp/alice",
		server.Client(),
	)

	var l402Err *types.L402Error
	if !errors.As(err, &l402Err) || l402Err.Code != types.ErrBackendRejected {
		t.Fatalf("expected BACKEND_REJECTED, got %v", err)
	}
}

func TestLNURLCallbackError(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewTLSServer(mux)
	defer server.Close()

	mux.HandleFunc("/.well-known/lnurlp/alice", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(lnurlPayParams{
			Callback:    server.URL + "/callback",
			MinSendable: 1000,
			MaxSendable: 100_000,
			Tag:         "payRequest",
		})
	})
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(lnurlCallbackResponse{
			Status: "ERROR",
			Reason: "wallet offline",
		})
	})

	client, err := newLNURLClient(
		"alice@example.com", server.URL+"/.well-known/lnurlp/alice",
		server.Client(),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = client.AddInvoice(context.Background(), &types.InvoiceRequest{
		AmountMsat: 21_000,
	})

	var l402Err *types.L402Error
	if !errors.As(err, &l402Err) || l402Err.Code != types.ErrBackendRejected {
		t.Fatalf("expected BACKEND_REJECTED, got %v", err)
	}
}
