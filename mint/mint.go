// Package mint creates and verifies the macaroon capability tokens that bind
// protected requests to Lightning payments. A token's identifier embeds the
// payment hash of the invoice issued alongside it, so holding the matching
// preimage proves the payment.
package mint

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/lightningnetwork/lnd/lntypes"
	macaroon "gopkg.in/macaroon.v2"

	"github.com/vitwit/l402/types"
)

// identifierVersion prefixes every token identifier. Verification rejects
// identifiers carrying any other version.
const identifierVersion byte = 0x00

// identifier layout: version byte, 32-byte payment hash, 8-byte nonce.
const (
	nonceLen      = 8
	identifierLen = 1 + lntypes.HashSize + nonceLen
)

// DefaultLocation is the location stamped on minted tokens unless the caller
// overrides it.
const DefaultLocation = "L402"

// Mint constructs a new token bound to the given payment hash. The caveats
// are appended in order as first-party caveats, each extending the HMAC
// chain.
func Mint(rootKey []byte, location string, paymentHash lntypes.Hash,
	caveats []string) (*macaroon.Macaroon, error) {

	if location == "" {
		location = DefaultLocation
	}

	id, err := newIdentifier(paymentHash)
	if err != nil {
		return nil, err
	}

	mac, err := macaroon.New(rootKey, id, location, macaroon.V2)
	if err != nil {
		return nil, fmt.Errorf("unable to create macaroon: %w", err)
	}

	for _, caveat := range caveats {
		if err := mac.AddFirstPartyCaveat([]byte(caveat)); err != nil {
			return nil, fmt.Errorf("unable to add caveat: %w", err)
		}
	}

	return mac, nil
}

// Verify recomputes the token's HMAC chain from the root key and, if the
// signature holds, evaluates every first-party caveat against the request
// context. Signature verification runs before any caveat is interpreted.
func Verify(rootKey []byte, mac *macaroon.Macaroon, ctx *Context) error {
	err := mac.Verify(rootKey, func(string) error { return nil }, nil)
	if err != nil {
		return &types.L402Error{
			Code:    types.ErrBadSignature,
			Message: "macaroon signature mismatch",
		}
	}

	for _, caveat := range mac.Caveats() {
		// Third-party caveats carry a verification id. The mint
		// never issues them, so their presence alone invalidates
		// the token.
		if len(caveat.VerificationId) != 0 {
			return &types.L402Error{
				Code:    types.ErrUnknownCaveat,
				Message: "third party caveats are not supported",
			}
		}

		if err := checkCaveat(string(caveat.Id), ctx); err != nil {
			return err
		}
	}

	if _, err := PaymentHash(mac); err != nil {
		return err
	}

	return nil
}

// PaymentHash extracts the payment hash embedded in the token identifier.
func PaymentHash(mac *macaroon.Macaroon) (lntypes.Hash, error) {
	id := mac.Id()
	if len(id) != identifierLen || id[0] != identifierVersion {
		return lntypes.Hash{}, &types.L402Error{
			Code:    types.ErrMalformedToken,
			Message: "malformed token identifier",
		}
	}

	hash, err := lntypes.MakeHash(id[1 : 1+lntypes.HashSize])
	if err != nil {
		return lntypes.Hash{}, &types.L402Error{
			Code:    types.ErrMalformedToken,
			Message: "malformed token identifier",
		}
	}

	return hash, nil
}

func newIdentifier(paymentHash lntypes.Hash) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(identifierVersion)
	buf.Write(paymentHash[:])

	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("unable to generate nonce: %w", err)
	}
	buf.Write(nonce)

	return buf.Bytes(), nil
}
