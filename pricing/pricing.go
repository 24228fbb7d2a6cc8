// Package pricing provides amount functions for the middleware. Fiat
// conversions use decimal arithmetic so a price oracle's quote never loses
// precision on the way to millisatoshis.
package pricing

import (
	"net/http"

	"github.com/shopspring/decimal"
)

const msatPerSat = 1000

var msatPerBTC = decimal.NewFromInt(100_000_000 * msatPerSat)

// FixedSats prices every request at a flat satoshi amount.
func FixedSats(sats uint64) func(*http.Request) uint64 {
	return func(*http.Request) uint64 {
		return sats * msatPerSat
	}
}

// PerPathSats prices requests by path, falling back to a default for paths
// not in the table.
func PerPathSats(table map[string]uint64, defaultSats uint64) func(*http.Request) uint64 {
	return func(r *http.Request) uint64 {
		if sats, ok := table[r.URL.Path]; ok {
			return sats * msatPerSat
		}
		return defaultSats * msatPerSat
	}
}

// FiatMsat converts a fiat amount to millisatoshis at the given fiat-per-BTC
// rate, rounding up so the charge never undercuts the quoted price.
func FiatMsat(amount, fiatPerBTC decimal.Decimal) uint64 {
	if fiatPerBTC.IsZero() || amount.IsNegative() {
		return 0
	}

	msat := amount.Mul(msatPerBTC).Div(fiatPerBTC).Ceil()
	return uint64(msat.IntPart())
}

// FiatRate builds an amount function charging a fixed fiat price using a
// rate quote fetched per request. The quote function may do network I/O and
// must be safe for concurrent use.
func FiatRate(amount decimal.Decimal,
	quote func(r *http.Request) decimal.Decimal) func(*http.Request) uint64 {

	return func(r *http.Request) uint64 {
		return FiatMsat(amount, quote(r))
	}
}
