// Package l402 gates HTTP handlers behind Lightning Network micropayments
// using the L402 authentication protocol. For each request to a protected
// route the middleware either passes a free request through, replies with a
// 402 challenge carrying a fresh invoice and macaroon, or verifies a
// presented macaroon/preimage pair and admits the request as paid.
package l402

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lightningnetwork/lnd/lntypes"

	"github.com/vitwit/l402/clients"
	"github.com/vitwit/l402/logger"
	"github.com/vitwit/l402/metrics"
	"github.com/vitwit/l402/mint"
	"github.com/vitwit/l402/types"
	"github.com/vitwit/l402/utils"
)

// DefaultTimeout bounds each invoice-creation call unless overridden.
const DefaultTimeout = 10 * time.Second

// DefaultMemo is the memo attached to minted invoices.
const DefaultMemo = "L402"

// The engine never distinguishes which cryptographic check failed.
const invalidTokenMessage = "invalid token"

// AmountFunc prices a request in millisatoshis. It runs on every challenge
// and must be safe for concurrent use.
type AmountFunc func(r *http.Request) uint64

// CaveatFunc returns the caveats to bind into a freshly minted token. It
// must be safe for concurrent use.
type CaveatFunc func(r *http.Request) []string

// Middleware is the L402 protocol engine. It is immutable after New and
// shared by all requests.
type Middleware struct {
	client   clients.Client
	rootKey  []byte
	amountFn AmountFunc
	caveatFn CaveatFunc
	location string
	memo     string
	timeout  time.Duration
	log      logger.Logger
	rec      metrics.Recorder
}

// New builds the middleware: the Lightning backend is constructed once from
// the config and reused for every challenge.
func New(cfg *types.BackendConfig, amountFn AmountFunc,
	opts ...Option) (*Middleware, error) {

	client, err := clients.New(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		opts = append([]Option{WithTimeout(cfg.Timeout)}, opts...)
	}

	return NewWithClient(client, cfg.RootKey, amountFn, opts...)
}

// NewWithClient builds the middleware around an already constructed backend
// client, for callers that bring their own Client implementation.
func NewWithClient(client clients.Client, rootKey []byte, amountFn AmountFunc,
	opts ...Option) (*Middleware, error) {

	if len(rootKey) < 32 {
		return nil, &types.L402Error{
			Code:    types.ErrConfig,
			Message: "root key must be at least 32 bytes",
		}
	}

	m := &Middleware{
		client:   client,
		rootKey:  rootKey,
		amountFn: amountFn,
		caveatFn: func(*http.Request) []string { return nil },
		location: mint.DefaultLocation,
		memo:     DefaultMemo,
		timeout:  DefaultTimeout,
		log:      logger.NoopLogger{},
		rec:      metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Close releases the backend connection.
func (m *Middleware) Close() {
	m.client.Close()
}

// Handler wraps next with the per-request L402 state machine. Paid and free
// requests are forwarded with their classification in the request context;
// challenges terminate with a 402 response.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Authorization wins over Accept-Authenticate.
		if auth := r.Header.Get(utils.HeaderAuthorization); auth != "" {
			m.verify(w, r, next, auth)
			return
		}

		if acceptAuthenticateRequired &&
			!utils.AcceptsL402(r.Header.Get(utils.HeaderAccept)) {

			m.forward(w, r, next, &types.L402Info{
				Classification: types.ClassificationFree,
			})
			return
		}

		m.challenge(w, r)
	})
}

// verify handles the VERIFY path: parse the Authorization header, check the
// macaroon signature and caveats, then prove the preimage against the
// payment hash bound into the token identifier.
func (m *Middleware) verify(w http.ResponseWriter, r *http.Request,
	next http.Handler, auth string) {

	macB64, preimageHex, err := utils.ParseAuthorization(auth)
	if err != nil {
		m.fail(w, r, next, err.Error())
		return
	}

	mac, err := mint.DecodeString(macB64)
	if err != nil {
		m.fail(w, r, next, err.Error())
		return
	}

	preimage, err := lntypes.MakePreimageFromStr(preimageHex)
	if err != nil {
		m.fail(w, r, next, "invalid preimage hex")
		return
	}

	// Signature and caveats before any hashing of the preimage.
	err = mint.Verify(m.rootKey, mac, &mint.Context{Path: r.URL.Path})
	if err != nil {
		m.log.Warn("macaroon verification failed", map[string]any{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		m.fail(w, r, next, invalidTokenMessage)
		return
	}

	paymentHash, err := mint.PaymentHash(mac)
	if err != nil {
		m.fail(w, r, next, invalidTokenMessage)
		return
	}

	derived := sha256.Sum256(preimage[:])
	if subtle.ConstantTimeCompare(derived[:], paymentHash[:]) != 1 {
		m.fail(w, r, next, invalidTokenMessage)
		return
	}

	m.forward(w, r, next, &types.L402Info{
		Classification: types.ClassificationPaid,
		PaymentHash:    &paymentHash,
		Preimage:       &preimage,
	})
}

// challenge handles the CHALLENGE path: mint an invoice, bind a token to its
// payment hash, and terminate with 402.
func (m *Middleware) challenge(w http.ResponseWriter, r *http.Request) {
	amount := m.amountFn(r)
	if amount < 1000 {
		// 1 sat floor.
		amount = 1000
	}

	ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
	defer cancel()

	start := time.Now()
	invoice, err := m.client.AddInvoice(ctx, &types.InvoiceRequest{
		AmountMsat: amount,
		Memo:       m.memo,
	})
	m.rec.ObserveLatency("add_invoice", time.Since(start), map[string]string{
		"backend": m.client.Kind().String(),
	})
	if err != nil {
		m.log.Error("invoice creation failed", map[string]any{
			"backend": m.client.Kind().String(),
			"error":   err.Error(),
		})
		m.count(types.ClassificationError)
		writeJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	mac, err := mint.Mint(
		m.rootKey, m.location, invoice.PaymentHash, m.caveatFn(r),
	)
	if err != nil {
		m.count(types.ClassificationError)
		writeJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	macB64, err := mint.EncodeToString(mac)
	if err != nil {
		m.count(types.ClassificationError)
		writeJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	m.log.Info("challenge issued", map[string]any{
		"backend":      m.client.Kind().String(),
		"path":         r.URL.Path,
		"amount_msat":  amount,
		"payment_hash": invoice.PaymentHash.String(),
	})
	m.count(types.ClassificationPaymentRequired)

	w.Header().Set(
		utils.HeaderWWWAuthenticate,
		utils.ChallengeHeader(macB64, invoice.PaymentRequest),
	)
	writeJSON(w, http.StatusPaymentRequired, types.PaymentRequiredMessage)
}

// fail forwards the request with an ERROR classification; the handler
// decides how to surface it.
func (m *Middleware) fail(w http.ResponseWriter, r *http.Request,
	next http.Handler, reason string) {

	m.forward(w, r, next, &types.L402Info{
		Classification: types.ClassificationError,
		Error:          reason,
	})
}

func (m *Middleware) forward(w http.ResponseWriter, r *http.Request,
	next http.Handler, info *types.L402Info) {

	m.count(info.Classification)
	next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
}

func (m *Middleware) count(c types.Classification) {
	m.rec.IncCounter(string(c), map[string]string{
		"backend": m.client.Kind().String(),
	})
}

func writeJSON(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    code,
		"message": message,
	})
}
