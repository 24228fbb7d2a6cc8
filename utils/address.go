package utils

import (
	"strings"

	"github.com/vitwit/l402/types"
)

// ParseLightningAddress splits a user@host lightning address.
func ParseLightningAddress(address string) (string, string, error) {
	address = strings.TrimSpace(address)

	parts := strings.Split(address, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &types.L402Error{
			Code:    types.ErrConfig,
			Message: "invalid lightning address",
		}
	}

	return parts[0], parts[1], nil
}
