package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lightningnetwork/lnd/lntypes"

	"github.com/vitwit/l402/types"
	"github.com/vitwit/l402/utils"
)

// LNURLClient fetches invoices from an LNURL-pay endpoint resolved from a
// lightning address. The pay parameters are fetched once at construction;
// each invoice is a single GET against the callback URL.
type LNURLClient struct {
	address     string
	callback    string
	minSendable uint64
	maxSendable uint64
	http        *http.Client
}

type lnurlPayParams struct {
	Callback    string `json:"callback"`
	MinSendable uint64 `json:"minSendable"`
	MaxSendable uint64 `json:"maxSendable"`
	Metadata    string `json:"metadata"`
	Tag         string `json:"tag"`
}

type lnurlCallbackResponse struct {
	PR     string `json:"pr"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// NewLNURLClient resolves the lightning address to its LNURL-pay endpoint
// and loads the pay parameters.
func NewLNURLClient(opts *types.LNURLOptions) (*LNURLClient, error) {
	user, host, err := utils.ParseLightningAddress(opts.Address)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("https://%s/.well-known/lnurlp/%s", host, user)
	return newLNURLClient(opts.Address, endpoint, http.DefaultClient)
}

func newLNURLClient(address, endpoint string,
	httpClient *http.Client) (*LNURLClient, error) {

	var params lnurlPayParams
	err := getJSON(context.Background(), httpClient, endpoint, &params)
	if err != nil {
		return nil, errUnavailable(types.BackendLNURL, err)
	}

	if params.Tag != "payRequest" || params.Callback == "" {
		return nil, errRejected(
			types.BackendLNURL, "endpoint is not an LNURL-pay service",
		)
	}

	return &LNURLClient{
		address:     address,
		callback:    params.Callback,
		minSendable: params.MinSendable,
		maxSendable: params.MaxSendable,
		http:        httpClient,
	}, nil
}

// AddInvoice checks the amount against the sendable bounds, requests an
// invoice from the callback, and derives the payment hash by decoding the
// returned BOLT-11 payment request.
func (c *LNURLClient) AddInvoice(ctx context.Context,
	req *types.InvoiceRequest) (*types.InvoiceResponse, error) {

	if req.AmountMsat < c.minSendable || req.AmountMsat > c.maxSendable {
		return nil, errRejected(types.BackendLNURL, fmt.Sprintf(
			"amount %d msat outside sendable range [%d, %d]",
			req.AmountMsat, c.minSendable, c.maxSendable,
		))
	}

	callbackURL, err := url.Parse(c.callback)
	if err != nil {
		return nil, errRejected(types.BackendLNURL, "malformed callback URL")
	}
	query := callbackURL.Query()
	query.Set("amount", fmt.Sprintf("%d", req.AmountMsat))
	callbackURL.RawQuery = query.Encode()

	var resp lnurlCallbackResponse
	err = getJSON(ctx, c.http, callbackURL.String(), &resp)
	if err != nil {
		return nil, errTransport(types.BackendLNURL, ctx, err)
	}

	if resp.Status == "ERROR" {
		return nil, errRejected(types.BackendLNURL, resp.Reason)
	}
	if resp.PR == "" {
		return nil, errRejected(types.BackendLNURL, "callback returned no invoice")
	}

	hash, err := decodeInvoiceHash(resp.PR)
	if err != nil {
		return nil, err
	}

	return &types.InvoiceResponse{
		PaymentRequest: resp.PR,
		PaymentHash:    hash,
	}, nil
}

func (c *LNURLClient) Kind() types.BackendKind {
	return types.BackendLNURL
}

func (c *LNURLClient) Close() {}

// decodeInvoiceHash extracts the payment hash carried inside a BOLT-11
// payment request.
func decodeInvoiceHash(invoice string) (lntypes.Hash, error) {
	return utils.DecodePaymentHash(invoice)
}

func getJSON(ctx context.Context, client *http.Client, rawURL string,
	out interface{}) error {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
