package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"

	"github.com/vitwit/l402/types"
)

// NIP-47 event kinds.
const (
	nwcKindRequest  = 23194
	nwcKindResponse = 23195
)

// NWCClient requests invoices from a NIP-47 wallet service over a Nostr
// relay. Requests are nip04-encrypted to the wallet; each call opens its own
// subscription for the response, so concurrent use needs no locking.
type NWCClient struct {
	walletPubKey string
	relayURL     string
	secret       string
	clientPubKey string
	sharedSecret []byte
}

type nwcRequest struct {
	Method string           `json:"method"`
	Params nwcInvoiceParams `json:"params"`
}

type nwcInvoiceParams struct {
	Amount      uint64 `json:"amount"`
	Description string `json:"description,omitempty"`
}

type nwcResponse struct {
	ResultType string            `json:"result_type"`
	Error      *nwcError         `json:"error"`
	Result     *nwcInvoiceResult `json:"result"`
}

type nwcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type nwcInvoiceResult struct {
	Invoice     string `json:"invoice"`
	PaymentHash string `json:"payment_hash"`
}

// NewNWCClient parses the nostr+walletconnect:// URI and derives the shared
// encryption secret. The relay is dialed per call.
func NewNWCClient(opts *types.NWCOptions) (*NWCClient, error) {
	walletPubKey, relayURL, secret, err := ParseWalletConnectURI(opts.URI)
	if err != nil {
		return nil, err
	}

	clientPubKey, err := nostr.GetPublicKey(secret)
	if err != nil {
		return nil, &types.L402Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("invalid NWC secret: %v", err),
		}
	}

	sharedSecret, err := nip04.ComputeSharedSecret(walletPubKey, secret)
	if err != nil {
		return nil, &types.L402Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("unable to derive NWC shared secret: %v", err),
		}
	}

	return &NWCClient{
		walletPubKey: walletPubKey,
		relayURL:     relayURL,
		secret:       secret,
		clientPubKey: clientPubKey,
		sharedSecret: sharedSecret,
	}, nil
}

// ParseWalletConnectURI splits a nostr+walletconnect:// URI into the wallet
// pubkey, relay URL and client secret.
func ParseWalletConnectURI(uri string) (string, string, string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "nostr+walletconnect" {
		return "", "", "", &types.L402Error{
			Code:    types.ErrConfig,
			Message: "invalid wallet connect URI",
		}
	}

	walletPubKey := u.Host
	if walletPubKey == "" {
		walletPubKey = u.Opaque
	}

	query := u.Query()
	relayURL := query.Get("relay")
	secret := query.Get("secret")

	if walletPubKey == "" || relayURL == "" || secret == "" {
		return "", "", "", &types.L402Error{
			Code:    types.ErrConfig,
			Message: "wallet connect URI missing pubkey, relay or secret",
		}
	}

	return walletPubKey, relayURL, secret, nil
}

// AddInvoice publishes a make_invoice request event and waits for the
// e-tagged response on the same relay. The subscription is opened before
// publishing so a fast wallet response cannot be missed.
func (c *NWCClient) AddInvoice(ctx context.Context,
	req *types.InvoiceRequest) (*types.InvoiceResponse, error) {

	relay, err := nostr.RelayConnect(ctx, c.relayURL)
	if err != nil {
		return nil, errTransport(types.BackendNWC, ctx, err)
	}
	defer relay.Close()

	body, err := json.Marshal(&nwcRequest{
		Method: "make_invoice",
		Params: nwcInvoiceParams{
			Amount:      req.AmountMsat,
			Description: req.Memo,
		},
	})
	if err != nil {
		return nil, errRejected(types.BackendNWC, "unable to encode request")
	}

	content, err := nip04.Encrypt(string(body), c.sharedSecret)
	if err != nil {
		return nil, errRejected(types.BackendNWC, "unable to encrypt request")
	}

	ev := nostr.Event{
		Kind:      nwcKindRequest,
		CreatedAt: nostr.Now(),
		Tags:      nostr.Tags{{"p", c.walletPubKey}},
		Content:   content,
	}
	if err := ev.Sign(c.secret); err != nil {
		return nil, errRejected(types.BackendNWC, "unable to sign request event")
	}

	sub, err := relay.Subscribe(ctx, nostr.Filters{{
		Kinds:   []int{nwcKindResponse},
		Authors: []string{c.walletPubKey},
		Tags:    nostr.TagMap{"e": []string{ev.ID}},
	}})
	if err != nil {
		return nil, errTransport(types.BackendNWC, ctx, err)
	}
	defer sub.Unsub()

	if err := relay.Publish(ctx, ev); err != nil {
		return nil, errTransport(types.BackendNWC, ctx, err)
	}

	select {
	case <-ctx.Done():
		return nil, errTransport(types.BackendNWC, ctx, ctx.Err())
	case respEv, ok := <-sub.Events:
		if !ok {
			return nil, errUnavailable(
				types.BackendNWC,
				fmt.Errorf("relay closed subscription"),
			)
		}
		return c.parseResponse(respEv)
	}
}

func (c *NWCClient) Kind() types.BackendKind {
	return types.BackendNWC
}

func (c *NWCClient) Close() {}

func (c *NWCClient) parseResponse(ev *nostr.Event) (*types.InvoiceResponse, error) {
	plain, err := nip04.Decrypt(ev.Content, c.sharedSecret)
	if err != nil {
		return nil, errRejected(types.BackendNWC, "unable to decrypt response")
	}

	var resp nwcResponse
	if err := json.Unmarshal([]byte(plain), &resp); err != nil {
		return nil, errRejected(types.BackendNWC, "malformed response payload")
	}
	if resp.Error != nil {
		return nil, errRejected(types.BackendNWC, resp.Error.Message)
	}
	if resp.Result == nil || resp.Result.Invoice == "" {
		return nil, errRejected(types.BackendNWC, "empty make_invoice result")
	}

	hash, err := lntypes.MakeHashFromStr(resp.Result.PaymentHash)
	if err != nil {
		// Some wallets omit payment_hash; fall back to decoding the
		// invoice itself.
		decoded, derr := decodeInvoiceHash(resp.Result.Invoice)
		if derr != nil {
			return nil, errRejected(
				types.BackendNWC, "malformed payment_hash in result",
			)
		}
		hash = decoded
	}

	return &types.InvoiceResponse{
		PaymentRequest: resp.Result.Invoice,
		PaymentHash:    hash,
	}, nil
}
