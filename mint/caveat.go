package mint

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vitwit/l402/types"
)

// Caveat keys understood by the interpreter. Anything else fails closed.
const (
	// CaveatRequestPath restricts a token to one request path.
	CaveatRequestPath = "RequestPath"

	// CaveatExpiresAt bounds the token lifetime against the clock.
	CaveatExpiresAt = "expires_at"
)

// Context carries the request attributes caveats are evaluated against.
type Context struct {
	// Path is the request path, normalized to a single leading slash.
	Path string

	// Now is the evaluation time. The zero value means time.Now.
	Now time.Time
}

// RequestPathCaveat formats the reference caveat restricting a token to path.
func RequestPathCaveat(path string) string {
	return fmt.Sprintf("%s = %s", CaveatRequestPath, normalizePath(path))
}

// ExpiresAtCaveat formats an expiry caveat valid until the given time.
func ExpiresAtCaveat(expiry time.Time) string {
	return fmt.Sprintf("%s < %d", CaveatExpiresAt, expiry.Unix())
}

// checkCaveat evaluates one first-party caveat of the form "key op value"
// against the request context. Supported ops are "=" for exact string match
// and "<"/">" for numeric comparisons. Unknown keys reject the token.
func checkCaveat(caveat string, ctx *Context) error {
	key, op, value, err := splitCaveat(caveat)
	if err != nil {
		return err
	}

	switch key {
	case CaveatRequestPath:
		if op != "=" {
			return caveatError(types.ErrUnknownCaveat, caveat)
		}
		if normalizePath(value) != normalizePath(ctx.Path) {
			return caveatError(types.ErrCaveatViolated, caveat)
		}

	case CaveatExpiresAt:
		if op == "=" {
			return caveatError(types.ErrUnknownCaveat, caveat)
		}
		limit, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return caveatError(types.ErrUnknownCaveat, caveat)
		}
		now := ctx.Now
		if now.IsZero() {
			now = time.Now()
		}
		ts := now.Unix()
		if (op == "<" && ts >= limit) || (op == ">" && ts <= limit) {
			return caveatError(types.ErrCaveatViolated, caveat)
		}

	default:
		return caveatError(types.ErrUnknownCaveat, caveat)
	}

	return nil
}

func splitCaveat(caveat string) (key, op, value string, err error) {
	idx := strings.IndexAny(caveat, "=<>")
	if idx <= 0 || idx == len(caveat)-1 {
		return "", "", "", caveatError(types.ErrUnknownCaveat, caveat)
	}

	key = strings.TrimSpace(caveat[:idx])
	op = string(caveat[idx])
	value = strings.TrimSpace(caveat[idx+1:])
	if key == "" || value == "" {
		return "", "", "", caveatError(types.ErrUnknownCaveat, caveat)
	}

	return key, op, value, nil
}

// normalizePath collapses leading slashes so that "/protected" and
// "protected" name the same resource. Comparison stays case-sensitive.
func normalizePath(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}

func caveatError(code, caveat string) error {
	return &types.L402Error{
		Code:    code,
		Message: fmt.Sprintf("caveat %q not satisfied", caveat),
	}
}
