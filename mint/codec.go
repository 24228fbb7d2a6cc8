package mint

import (
	"encoding/base64"

	macaroon "gopkg.in/macaroon.v2"

	"github.com/vitwit/l402/types"
)

// EncodeToString serializes the token to its canonical binary form and wraps
// it in standard base64, the framing used on the wire in both the
// WWW-Authenticate and Authorization headers.
func EncodeToString(mac *macaroon.Macaroon) (string, error) {
	raw, err := mac.MarshalBinary()
	if err != nil {
		return "", &types.L402Error{
			Code:    types.ErrMalformedToken,
			Message: "unable to serialize macaroon",
		}
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeString parses a base64 token back into a macaroon.
func DecodeString(s string) (*macaroon.Macaroon, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &types.L402Error{
			Code:    types.ErrBadBase64,
			Message: "invalid macaroon base64",
		}
	}

	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(raw); err != nil {
		return nil, &types.L402Error{
			Code:    types.ErrMalformedToken,
			Message: "invalid macaroon encoding",
		}
	}

	return mac, nil
}
