package utils

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/lightningnetwork/lnd/lntypes"

	"github.com/vitwit/l402/types"
)

// BOLT-11 framing constants: 7 five-bit groups of timestamp before the
// tagged fields, 104 groups of signature after them, and tag type 1 ('p')
// carrying the payment hash in 52 groups.
const (
	bolt11TimestampLen = 7
	bolt11SignatureLen = 104
	bolt11HashTag      = 1
	bolt11HashDataLen  = 52
)

// DecodePaymentHash extracts the payment hash from a BOLT-11 payment
// request. Only the 'p' tagged field is interpreted; the rest of the invoice
// is left to the payer.
func DecodePaymentHash(invoice string) (lntypes.Hash, error) {
	hrp, data, err := bech32.DecodeNoLimit(strings.ToLower(invoice))
	if err != nil {
		return lntypes.Hash{}, invoiceError("invalid bech32 encoding")
	}
	if !strings.HasPrefix(hrp, "ln") {
		return lntypes.Hash{}, invoiceError("not a lightning invoice")
	}
	if len(data) < bolt11TimestampLen {
		return lntypes.Hash{}, invoiceError("invoice data too short")
	}

	tagged := data[bolt11TimestampLen:]
	if len(tagged) >= bolt11SignatureLen {
		tagged = tagged[:len(tagged)-bolt11SignatureLen]
	}

	for len(tagged) >= 3 {
		tag := tagged[0]
		length := int(tagged[1])<<5 | int(tagged[2])
		tagged = tagged[3:]

		if length > len(tagged) {
			return lntypes.Hash{}, invoiceError("truncated tagged field")
		}

		if tag == bolt11HashTag && length == bolt11HashDataLen {
			raw, err := bech32.ConvertBits(tagged[:length], 5, 8, false)
			if err != nil {
				return lntypes.Hash{}, invoiceError("invalid payment hash field")
			}
			hash, err := lntypes.MakeHash(raw)
			if err != nil {
				return lntypes.Hash{}, invoiceError("invalid payment hash field")
			}
			return hash, nil
		}

		tagged = tagged[length:]
	}

	return lntypes.Hash{}, invoiceError("no payment hash in invoice")
}

func invoiceError(msg string) error {
	return &types.L402Error{
		Code:    types.ErrBackendRejected,
		Message: msg,
	}
}
