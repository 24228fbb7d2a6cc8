package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vitwit/l402/types"
)

const eclairTestHashHex = "9999999999999999999999999999999999999999999999999999999999999999"

func TestEclairAddInvoice(t *testing.T) {
	var seen struct {
		path, user, pass, amount, description string
		authOK                                bool
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.path = r.URL.Path
		seen.user, seen.pass, seen.authOK = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("form parse failed: %v", err)
		}
		seen.amount = r.PostFormValue("amountMsat")
		seen.description = r.PostFormValue("description")

		json.NewEncoder(w).Encode(eclairInvoiceResponse{
			Serialized:  "lnbcrt210n1fake",
			PaymentHash: eclairTestHashHex,
		})
	}))
	defer server.Close()

	client, err := NewEclairClient(&types.EclairOptions{
		APIURL:   server.URL,
		Password: "hunter2",
	})
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

	if seen.path != "/createinvoice" {
		t.Fatalf("unexpected path: %s", seen.path)
	}
	if !seen.authOK || seen.user != "" || seen.pass != "hunter2" {
		t.Fatalf("unexpected basic auth: ok=%v user=%q pass=%q",
			seen.authOK, seen.user, seen.pass)
	}
	if seen.amount != "21000" {
		t.Fatalf("unexpected amountMsat: %q", seen.amount)
	}
	if seen.description != "L402" {
		t.Fatalf("unexpected description: %q", seen.description)
	}

	if resp.PaymentRequest != "lnbcrt210n1fake" {
		t.Fatalf("unexpected invoice: %s", resp.PaymentRequest)
	}
	if resp.PaymentHash.String() != eclairTestHashHex {
		t.Fatalf("unexpected payment hash: %s", resp.PaymentHash)
	}
}

func TestEclairURLNormalization(t *testing.T) {
	client, err := NewEclairClient(&types.EclairOptions{
		APIURL:   "localhost:8080/",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if client.apiURL != "http://localhost:8080" {
		t.Fatalf("unexpected API URL: %s", client.apiURL)
	}
	if client.Kind() != types.BackendEclair {
		t.Fatalf("unexpected kind: %s", client.Kind())
	}
}

func TestEclairErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"bad status",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "invalid password", http.StatusUnauthorized)
			},
		},
		{
			"malformed body",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			"empty invoice",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(eclairInvoiceResponse{})
			},
		},
		{
			"bad payment hash",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(eclairInvoiceResponse{
					Serialized:  "lnbcrt1fake",
					PaymentHash: "nothex",
				})
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			client, err := NewEclairClient(&types.EclairOptions{
				APIURL:   server.URL,
				Password: "hunter2",
			})
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			_, err = client.AddInvoice(context.Background(), &types.InvoiceRequest{
				AmountMsat: 1000,
			})

			var l402Err *types.L402Error
			if !errors.As(err, &l402Err) || l402Err.Code != types.ErrBackendRejected {
				t.Fatalf("expected BACKEND_REJECTED, got %v", err)
			}
		})
	}
}

func TestEclairUnavailable(t *testing.T) {
	server := httptest.NewServer(nil)
	server.Close() // nothing listens anymore

	client, err := NewEclairClient(&types.EclairOptions{
		APIURL:   server.URL,
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = client.AddInvoice(context.Background(), &types.InvoiceRequest{
		AmountMsat: 1000,
	})

	var l402Err *types.L402Error
	if !errors.As(err, &l402Err) || l402Err.Code != types.ErrBackendUnavailable {
		t.Fatalf("expected BACKEND_UNAVAILABLE, got %v", err)
	}
}
