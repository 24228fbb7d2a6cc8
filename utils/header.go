// Package utils holds the wire-level helpers shared by the protocol engine
// and the Lightning backends: L402 header parsing and emission, lightning
// address handling, and BOLT-11 payment hash extraction.
package utils

import (
	"fmt"
	"strings"

	"github.com/vitwit/l402/types"
)

// Header names and the authentication scheme token.
const (
	HeaderAuthorization   = "Authorization"
	HeaderAccept          = "Accept-Authenticate"
	HeaderWWWAuthenticate = "WWW-Authenticate"

	Scheme = "L402"
)

// Header codec errors.
var (
	ErrMissingScheme = &types.L402Error{
		Code:    types.ErrMalformedHeader,
		Message: "missing authentication scheme",
	}
	ErrUnknownScheme = &types.L402Error{
		Code:    types.ErrMalformedHeader,
		Message: "unknown authentication scheme",
	}
	ErrMalformedParameter = &types.L402Error{
		Code:    types.ErrMalformedHeader,
		Message: "malformed header parameter",
	}
	ErrMissingMacaroon = &types.L402Error{
		Code:    types.ErrMalformedHeader,
		Message: "missing macaroon",
	}
	ErrMissingPreimage = &types.L402Error{
		Code:    types.ErrMalformedHeader,
		Message: "missing preimage",
	}
)

// ChallengeHeader renders the canonical WWW-Authenticate value for a fresh
// challenge. Parameters are always emitted in the order macaroon, invoice.
func ChallengeHeader(macaroon, invoice string) string {
	return fmt.Sprintf("%s macaroon=%q, invoice=%q", Scheme, macaroon, invoice)
}

// AuthorizationHeader renders the canonical Authorization value a paying
// client presents.
func AuthorizationHeader(macaroon, preimageHex string) string {
	return fmt.Sprintf("%s %s:%s", Scheme, macaroon, preimageHex)
}

// AcceptsL402 reports whether an Accept-Authenticate value opts in to the
// L402 flow. The scheme token is matched case-insensitively.
func AcceptsL402(value string) bool {
	for _, part := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(part), Scheme) {
			return true
		}
	}
	return false
}

// ParseAuthorization parses the strict Authorization value format
// "L402 <macaroon_b64>:<preimage_hex>". Both components are required.
func ParseAuthorization(value string) (string, string, error) {
	rest, err := stripScheme(value)
	if err != nil {
		return "", "", err
	}

	mac, preimage, found := strings.Cut(rest, ":")
	if !found {
		return "", "", ErrMissingPreimage
	}

	mac = strings.TrimSpace(mac)
	preimage = strings.TrimSpace(preimage)
	if mac == "" {
		return "", "", ErrMissingMacaroon
	}
	if preimage == "" || strings.Contains(preimage, ":") {
		return "", "", ErrMissingPreimage
	}

	return mac, preimage, nil
}

// ParseChallenge parses a WWW-Authenticate challenge tolerantly: parameter
// order is free, values may be quoted with backslash escapes, and whitespace
// is ignored around tokens.
func ParseChallenge(value string) (string, string, error) {
	rest, err := stripScheme(value)
	if err != nil {
		return "", "", err
	}

	params, err := parseParams(rest)
	if err != nil {
		return "", "", err
	}

	mac, ok := params["macaroon"]
	if !ok || mac == "" {
		return "", "", ErrMissingMacaroon
	}
	invoice := params["invoice"]

	return mac, invoice, nil
}

// stripScheme removes a case-insensitive scheme token and returns the
// remainder of the header value.
func stripScheme(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrMissingScheme
	}

	scheme, rest, found := strings.Cut(value, " ")
	if !found {
		return "", ErrMissingScheme
	}
	if !strings.EqualFold(scheme, Scheme) {
		return "", ErrUnknownScheme
	}

	return strings.TrimSpace(rest), nil
}

// parseParams splits "k1=v1, k2="v2"" parameter lists, honoring quoted
// strings with \" escapes.
func parseParams(s string) (map[string]string, error) {
	params := make(map[string]string)

	for len(s) > 0 {
		s = strings.TrimLeft(s, " \t,")
		if s == "" {
			break
		}

		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return nil, ErrMalformedParameter
		}
		key := strings.TrimSpace(s[:eq])
		s = strings.TrimLeft(s[eq+1:], " \t")

		var value string
		if strings.HasPrefix(s, `"`) {
			var err error
			value, s, err = readQuoted(s[1:])
			if err != nil {
				return nil, err
			}
		} else {
			end := strings.IndexByte(s, ',')
			if end == -1 {
				end = len(s)
			}
			value = strings.TrimSpace(s[:end])
			s = s[end:]
		}

		params[key] = value
	}

	return params, nil
}

func readQuoted(s string) (string, string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", "", ErrMalformedParameter
			}
			i++
			b.WriteByte(s[i])
		case '"':
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", "", ErrMalformedParameter
}
