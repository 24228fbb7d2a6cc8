package types

import (
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/lntypes"
)

// L402Version represents the version of the L402 protocol.
type L402Version int

const (
	L402Version1 L402Version = 1
)

// BackendKind represents supported Lightning backends.
type BackendKind string

const (
	BackendLND    BackendKind = "LND"
	BackendCLN    BackendKind = "CLN"
	BackendNWC    BackendKind = "NWC"
	BackendLNURL  BackendKind = "LNURL"
	BackendEclair BackendKind = "ECLAIR"
)

func (k BackendKind) String() string {
	return string(k)
}

// Classification is the per-request outcome of the protocol engine.
type Classification string

const (
	ClassificationFree            Classification = "FREE"
	ClassificationPaymentRequired Classification = "PAYMENT_REQUIRED"
	ClassificationPaid            Classification = "PAID"
	ClassificationError           Classification = "ERROR"
)

// Canonical response messages. The engine uses PaymentRequiredMessage for
// the body of its 402 response; the other two are for handlers behind the
// middleware.
const (
	FreeContentMessage      = "Free Content"
	ProtectedContentMessage = "Protected Content"
	PaymentRequiredMessage  = "Payment Required"
)

// L402Info is the classification record the engine attaches to each request
// it forwards: FREE, PAID or ERROR. For PAID it carries the presented
// preimage and the payment hash it proved. A challenge ends with the 402
// response before any handler runs, so no record with PAYMENT_REQUIRED
// reaches a handler and the engine never fills Macaroon or Invoice.
type L402Info struct {
	Classification Classification

	// PaymentHash identifies the Lightning payment the token is bound to.
	PaymentHash *lntypes.Hash

	// Preimage is the proof of payment presented by the client. Only set
	// for PAID requests.
	Preimage *lntypes.Preimage

	// Macaroon is the serialized token issued at challenge time.
	Macaroon string

	// Invoice is the BOLT-11 payment request issued at challenge time.
	Invoice string

	// Error holds the opaque reason for ERROR classifications.
	Error string
}

// InvoiceRequest is the normalized invoice-creation request passed to a
// Lightning backend. Amounts are always millisatoshis.
type InvoiceRequest struct {
	AmountMsat uint64 `json:"amountMsat" validate:"required,gte=1000"`
	Memo       string `json:"memo,omitempty"`
}

// InvoiceResponse is the normalized result of invoice creation: the BOLT-11
// payment request and the raw 32-byte payment hash, whatever the backend's
// wire representation was.
type InvoiceResponse struct {
	PaymentRequest string       `json:"paymentRequest"`
	PaymentHash    lntypes.Hash `json:"paymentHash"`
}

// LNDOptions configures the gRPC connection to an lnd node.
type LNDOptions struct {
	// Address is the host:port of the lnd gRPC endpoint.
	Address string `json:"address" validate:"required,hostname_port"`

	// MacaroonFile is the path to the macaroon presented on every RPC.
	MacaroonFile string `json:"macaroonFile" validate:"required"`

	// CertFile is the path to the node's TLS certificate (PEM).
	CertFile string `json:"certFile" validate:"required"`
}

// CLNOptions configures the Core Lightning JSON-RPC connection.
type CLNOptions struct {
	// RPCFile is the path to the lightning-rpc unix socket.
	RPCFile string `json:"rpcFile" validate:"required"`
}

// NWCOptions configures a NIP-47 Nostr Wallet Connect backend.
type NWCOptions struct {
	// URI is the nostr+walletconnect:// connection string.
	URI string `json:"uri" validate:"required"`
}

// LNURLOptions configures an LNURL-pay backend.
type LNURLOptions struct {
	// Address is a Lightning Address of the form user@host.
	Address string `json:"address" validate:"required,contains=@"`
}

// EclairOptions configures an Eclair REST backend.
type EclairOptions struct {
	// APIURL is the base URL of the Eclair REST API.
	APIURL string `json:"apiUrl" validate:"required"`

	// Password is the basic-auth password for the API.
	Password string `json:"password" validate:"required"`
}

// BackendConfig selects and configures one Lightning backend.
type BackendConfig struct {
	Kind BackendKind `json:"kind" validate:"required,oneof=LND CLN NWC LNURL ECLAIR"`

	// RootKey is the macaroon root key shared with the token mint.
	RootKey []byte `json:"-" validate:"required,min=32"`

	LND    *LNDOptions    `json:"lnd,omitempty"`
	CLN    *CLNOptions    `json:"cln,omitempty"`
	NWC    *NWCOptions    `json:"nwc,omitempty"`
	LNURL  *LNURLOptions  `json:"lnurl,omitempty"`
	Eclair *EclairOptions `json:"eclair,omitempty"`

	// Timeout bounds every invoice-creation call. Zero means the
	// engine default of 10s.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Validate checks that the config carries the option record matching its kind.
func (c *BackendConfig) Validate() error {
	if len(c.RootKey) < 32 {
		return &L402Error{
			Code:    ErrConfig,
			Message: "root key must be at least 32 bytes",
		}
	}

	var ok bool
	switch c.Kind {
	case BackendLND:
		ok = c.LND != nil
	case BackendCLN:
		ok = c.CLN != nil
	case BackendNWC:
		ok = c.NWC != nil
	case BackendLNURL:
		ok = c.LNURL != nil
	case BackendEclair:
		ok = c.Eclair != nil
	default:
		return &L402Error{
			Code:    ErrUnsupportedBackend,
			Message: fmt.Sprintf("LN client type not recognized: %s", c.Kind),
		}
	}

	if !ok {
		return &L402Error{
			Code:    ErrConfig,
			Message: fmt.Sprintf("missing %s options", c.Kind),
		}
	}
	return nil
}

// L402Error is the structured error type shared across the library.
type L402Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *L402Error) Error() string {
	return e.Message
}

// Common error codes.
const (
	ErrConfig             = "CONFIG_ERROR"
	ErrUnsupportedBackend = "UNSUPPORTED_BACKEND"
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrBackendRejected    = "BACKEND_REJECTED"
	ErrBackendTimeout     = "BACKEND_TIMEOUT"
	ErrMalformedHeader    = "MALFORMED_HEADER"
	ErrBadBase64          = "BAD_BASE64"
	ErrMalformedToken     = "MALFORMED_TOKEN"
	ErrBadSignature       = "BAD_SIGNATURE"
	ErrCaveatViolated     = "CAVEAT_VIOLATED"
	ErrUnknownCaveat      = "UNKNOWN_CAVEAT"
	ErrInvalidPreimage    = "INVALID_PREIMAGE"
)
