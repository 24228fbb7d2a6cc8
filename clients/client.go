// Package clients provides the Lightning backend abstraction consumed by the
// protocol engine and its adapters for LND, Core Lightning, Nostr Wallet
// Connect, LNURL-pay and Eclair. Every adapter normalizes amounts to
// millisatoshis on input and returns the payment hash as raw 32 bytes,
// whatever the backend's wire representation.
package clients

import (
	"context"
	"fmt"

	"github.com/vitwit/l402/types"
)

// Client is the single capability the protocol engine consumes from a
// Lightning backend.
type Client interface {
	// AddInvoice creates a fresh invoice for the given amount and returns
	// the BOLT-11 payment request together with its payment hash.
	AddInvoice(ctx context.Context, req *types.InvoiceRequest) (*types.InvoiceResponse, error)

	// Kind reports which backend the client talks to.
	Kind() types.BackendKind

	// Close releases the backend connection, if any.
	Close()
}

// New constructs the backend client selected by the config. Dispatch is
// static: the client is built once at startup and shared by all requests.
func New(cfg *types.BackendConfig) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case types.BackendLND:
		return NewLNDClient(cfg.LND)
	case types.BackendCLN:
		return NewCLNClient(cfg.CLN)
	case types.BackendNWC:
		return NewNWCClient(cfg.NWC)
	case types.BackendLNURL:
		return NewLNURLClient(cfg.LNURL)
	case types.BackendEclair:
		return NewEclairClient(cfg.Eclair)
	default:
		return nil, &types.L402Error{
			Code:    types.ErrUnsupportedBackend,
			Message: fmt.Sprintf("LN client type not recognized: %s", cfg.Kind),
		}
	}
}
