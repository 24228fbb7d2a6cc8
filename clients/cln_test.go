package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vitwit/l402/types"
)

const testHashHex = "66666666666666666666666666666666" +
	"66666666666666666666666666666666"

// startCLNServer runs a one-shot JSON-RPC server on a unix socket and
// returns the socket path plus a channel delivering the request it saw.
func startCLNServer(t *testing.T, respond func(req clnRequest) clnResponse) (string, chan clnRequest) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "lightning-rpc")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	requests := make(chan clnRequest, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var req clnRequest
		if err := json.NewDecoder(conn).Decode(&req); err != nil {
			return
		}
		requests <- req

		json.NewEncoder(conn).Encode(respond(req))
	}()

	return socketPath, requests
}

func TestCLNAddInvoice(t *testing.T) {
	socketPath, requests := startCLNServer(t, func(clnRequest) clnResponse {
		return clnResponse{
			Result: &clnInvoiceResult{
				Bolt11:      "lnbcrt210n1fake",
				PaymentHash: testHashHex,
			},
		}
	})

	client, err := NewCLNClient(&types.CLNOptions{RPCFile: socketPath})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.AddInvoice(ctx, &types.InvoiceRequest{
		AmountMsat: 21_000,
		Memo:       "L402",
	})
	if err != nil {
		t.Fatalf("add invoice failed: %v", err)
	}

	if resp.PaymentRequest != "lnbcrt210n1fake" {
		t.Fatalf("unexpected invoice: %s", resp.PaymentRequest)
	}
	if resp.PaymentHash.String() != testHashHex {
		t.Fatalf("unexpected payment hash: %s", resp.PaymentHash)
	}

	req := <-requests
	if req.Method != "invoice" {
		t.Fatalf("unexpected method: %s", req.Method)
	}
	params, ok := req.Params.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected params type: %T", req.Params)
	}
	if params["amount_msat"] != float64(21_000) {
		t.Fatalf("unexpected amount: %v", params["amount_msat"])
	}
	label, _ := params["label"].(string)
	if !strings.HasPrefix(label, "l402-") {
		t.Fatalf("unexpected label: %q", label)
	}
	if params["description"] != "L402" {
		t.Fatalf("unexpected description: %v", params["description"])
	}
}

func TestCLNAddInvoiceRejected(t *testing.T) {
	socketPath, _ := startCLNServer(t, func(clnRequest) clnResponse {
		return clnResponse{
			Error: &clnError{Code: -32602, Message: "duplicate label"},
		}
	})

	client, _ := NewCLNClient(&types.CLNOptions{RPCFile: socketPath})
	_, err := client.AddInvoice(context.Background(), &types.InvoiceRequest{
		AmountMsat: 1000,
	})

	var l402Err *types.L402Error
	if !errors.As(err, &l402Err) || l402Err.Code != types.ErrBackendRejected {
		t.Fatalf("expected BACKEND_REJECTED, got %v", err)
	}
}

func TestCLNUnavailable(t *testing.T) {
	client, _ := NewCLNClient(&types.CLNOptions{
		RPCFile: filepath.Join(t.TempDir(), "missing-socket"),
	})

	_, err := client.AddInvoice(context.Background(), &types.InvoiceRequest{
		AmountMsat: 1000,
	})

	var l402Err *types.L402Error
	if !errors.As(err, &l402Err) || l402Err.Code != types.ErrBackendUnavailable {
		t.Fatalf("expected BACKEND_UNAVAILABLE, got %v", err)
	}
}

func TestCLNTimeout(t *testing.T) {
	// A server that accepts but never answers.
	socketPath := filepath.Join(t.TempDir(), "lightning-rpc")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}()

	client, _ := NewCLNClient(&types.CLNOptions{RPCFile: socketPath})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.AddInvoice(ctx, &types.InvoiceRequest{AmountMsat: 1000})

	var l402Err *types.L402Error
	if !errors.As(err, &l402Err) || l402Err.Code != types.ErrBackendTimeout {
		t.Fatalf("expected BACKEND_TIMEOUT, got %v", err)
	}
}
