package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lightningnetwork/lnd/lntypes"

	"github.com/vitwit/l402/types"
)

// EclairClient creates invoices through the Eclair REST API. Eclair
// authenticates with HTTP basic auth using an empty user and the configured
// password.
type EclairClient struct {
	apiURL   string
	password string
	http     *http.Client
}

type eclairInvoiceResponse struct {
	Serialized  string `json:"serialized"`
	PaymentHash string `json:"paymentHash"`
}

// NewEclairClient normalizes the API URL. The API is only contacted when an
// invoice is requested.
func NewEclairClient(opts *types.EclairOptions) (*EclairClient, error) {
	apiURL := opts.APIURL
	if !strings.HasPrefix(apiURL, "http://") &&
		!strings.HasPrefix(apiURL, "https://") {

		apiURL = "http://" + apiURL
	}

	return &EclairClient{
		apiURL:   strings.TrimRight(apiURL, "/"),
		password: opts.Password,
		http:     http.DefaultClient,
	}, nil
}

// AddInvoice posts to /createinvoice and parses the serialized payment
// request and its payment hash.
func (c *EclairClient) AddInvoice(ctx context.Context,
	req *types.InvoiceRequest) (*types.InvoiceResponse, error) {

	form := url.Values{}
	form.Set("amountMsat", fmt.Sprintf("%d", req.AmountMsat))
	form.Set("description", req.Memo)

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apiURL+"/createinvoice",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, errRejected(types.BackendEclair, "unable to build request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth("", c.password)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errTransport(types.BackendEclair, ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errRejected(types.BackendEclair, fmt.Sprintf(
			"unexpected status %d", resp.StatusCode,
		))
	}

	var invoice eclairInvoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&invoice); err != nil {
		return nil, errRejected(types.BackendEclair, "malformed response body")
	}
	if invoice.Serialized == "" {
		return nil, errRejected(types.BackendEclair, "empty invoice in response")
	}

	hash, err := lntypes.MakeHashFromStr(invoice.PaymentHash)
	if err != nil {
		return nil, errRejected(types.BackendEclair, "malformed paymentHash in response")
	}

	return &types.InvoiceResponse{
		PaymentRequest: invoice.Serialized,
		PaymentHash:    hash,
	}, nil
}

func (c *EclairClient) Kind() types.BackendKind {
	return types.BackendEclair
}

func (c *EclairClient) Close() {}
