package clients

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/macaroons"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	macaroon "gopkg.in/macaroon.v2"

	"github.com/vitwit/l402/types"
)

// LNDClient talks to an lnd node over gRPC, authenticating every RPC with
// the configured macaroon.
type LNDClient struct {
	opts     *types.LNDOptions
	dialOpts []grpc.DialOption

	mu        sync.Mutex
	conn      *grpc.ClientConn
	lightning lnrpc.LightningClient
}

// NewLNDClient loads the TLS certificate and macaroon and prepares the gRPC
// dial options. The channel itself is established lazily on the first call
// and reused afterwards.
func NewLNDClient(opts *types.LNDOptions) (*LNDClient, error) {
	tlsCreds, err := credentials.NewClientTLSFromFile(opts.CertFile, "")
	if err != nil {
		return nil, &types.L402Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("unable to load lnd tls cert: %v", err),
		}
	}

	macBytes, err := os.ReadFile(opts.MacaroonFile)
	if err != nil {
		return nil, &types.L402Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("unable to read lnd macaroon: %v", err),
		}
	}
	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(macBytes); err != nil {
		return nil, &types.L402Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("unable to parse lnd macaroon: %v", err),
		}
	}
	macCred, err := macaroons.NewMacaroonCredential(mac)
	if err != nil {
		return nil, &types.L402Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("unable to build macaroon credential: %v", err),
		}
	}

	return &LNDClient{
		opts: opts,
		dialOpts: []grpc.DialOption{
			grpc.WithTransportCredentials(tlsCreds),
			grpc.WithPerRPCCredentials(macCred),
		},
	}, nil
}

// AddInvoice issues an AddInvoice RPC and normalizes the response. On a
// transport failure the channel is dropped so the next call rebuilds it.
func (c *LNDClient) AddInvoice(ctx context.Context,
	req *types.InvoiceRequest) (*types.InvoiceResponse, error) {

	lightning, err := c.connect()
	if err != nil {
		return nil, errUnavailable(types.BackendLND, err)
	}

	resp, err := lightning.AddInvoice(ctx, &lnrpc.Invoice{
		ValueMsat: int64(req.AmountMsat),
		Memo:      req.Memo,
	})
	if err != nil {
		c.reset()
		return nil, errTransport(types.BackendLND, ctx, err)
	}

	hash, err := lntypes.MakeHash(resp.RHash)
	if err != nil {
		return nil, errRejected(types.BackendLND, "malformed r_hash in response")
	}

	return &types.InvoiceResponse{
		PaymentRequest: resp.PaymentRequest,
		PaymentHash:    hash,
	}, nil
}

func (c *LNDClient) Kind() types.BackendKind {
	return types.BackendLND
}

// Close tears down the gRPC channel.
func (c *LNDClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.lightning = nil
	}
}

// connect returns the shared lightning client, dialing the channel if it is
// not up yet. The gRPC channel itself is safe for concurrent use.
func (c *LNDClient) connect() (lnrpc.LightningClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lightning != nil {
		return c.lightning, nil
	}

	conn, err := grpc.NewClient(c.opts.Address, c.dialOpts...)
	if err != nil {
		return nil, err
	}

	c.conn = conn
	c.lightning = lnrpc.NewLightningClient(conn)
	return c.lightning, nil
}

func (c *LNDClient) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.lightning = nil
}
