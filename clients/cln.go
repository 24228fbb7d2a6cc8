package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/lntypes"

	"github.com/vitwit/l402/types"
)

// CLNClient talks JSON-RPC 2.0 to Core Lightning over its lightning-rpc
// unix socket. The socket is short-lived: one connection per call.
type CLNClient struct {
	opts *types.CLNOptions
}

type clnRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type clnInvoiceParams struct {
	AmountMsat  uint64 `json:"amount_msat"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type clnResponse struct {
	Result *clnInvoiceResult `json:"result"`
	Error  *clnError         `json:"error"`
}

type clnInvoiceResult struct {
	Bolt11      string `json:"bolt11"`
	PaymentHash string `json:"payment_hash"`
	ExpiresAt   uint64 `json:"expires_at"`
}

type clnError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewCLNClient prepares a Core Lightning client. The socket is only opened
// when an invoice is requested, so a node that is down at startup surfaces
// as BackendUnavailable on first use.
func NewCLNClient(opts *types.CLNOptions) (*CLNClient, error) {
	return &CLNClient{opts: opts}, nil
}

// AddInvoice invokes the invoice RPC with a freshly generated label and
// parses bolt11 and payment_hash from the result.
func (c *CLNClient) AddInvoice(ctx context.Context,
	req *types.InvoiceRequest) (*types.InvoiceResponse, error) {

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.opts.RPCFile)
	if err != nil {
		return nil, errTransport(types.BackendCLN, ctx, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	// A context cancelled mid-call (client disconnect) must unblock the
	// socket read, not wait out the deadline.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	rpcReq := clnRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "invoice",
		Params: clnInvoiceParams{
			AmountMsat:  req.AmountMsat,
			Label:       fmt.Sprintf("l402-%s", uuid.NewString()),
			Description: req.Memo,
		},
	}
	if err := json.NewEncoder(conn).Encode(&rpcReq); err != nil {
		return nil, errTransport(types.BackendCLN, ctx, err)
	}

	var rpcResp clnResponse
	if err := json.NewDecoder(conn).Decode(&rpcResp); err != nil {
		return nil, errTransport(types.BackendCLN, ctx, err)
	}

	if rpcResp.Error != nil {
		return nil, errRejected(types.BackendCLN, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil || rpcResp.Result.Bolt11 == "" {
		return nil, errRejected(types.BackendCLN, "empty invoice result")
	}

	hash, err := lntypes.MakeHashFromStr(rpcResp.Result.PaymentHash)
	if err != nil {
		return nil, errRejected(types.BackendCLN, "malformed payment_hash in result")
	}

	return &types.InvoiceResponse{
		PaymentRequest: rpcResp.Result.Bolt11,
		PaymentHash:    hash,
	}, nil
}

func (c *CLNClient) Kind() types.BackendKind {
	return types.BackendCLN
}

func (c *CLNClient) Close() {}
