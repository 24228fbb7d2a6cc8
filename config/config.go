// Package config assembles a backend configuration from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/vitwit/l402/types"
)

// Environment variable names recognized by FromEnv.
const (
	EnvClientType   = "LN_CLIENT_TYPE"
	EnvRootKey      = "ROOT_KEY"
	EnvLNDAddress   = "LND_ADDRESS"
	EnvMacaroonFile = "MACAROON_FILE_PATH"
	EnvCertFile     = "CERT_FILE_PATH"
	EnvCLNRPCFile   = "CLN_LIGHTNING_RPC_FILE_PATH"
	EnvNWCURI       = "NWC_URI"
	EnvLNURLAddress = "LNURL_ADDRESS"
	EnvEclairAPIURL = "ECLAIR_API_URL"
	EnvEclairPass   = "ECLAIR_PASSWORD"
)

var validate = validator.New()

// FromEnv reads the recognized environment variables and returns a validated
// backend config. Missing required variables are fatal startup errors, not
// per-request failures.
func FromEnv() (*types.BackendConfig, error) {
	kind := types.BackendKind(os.Getenv(EnvClientType))
	if kind == "" {
		return nil, missing(EnvClientType)
	}

	rootKey := os.Getenv(EnvRootKey)
	if rootKey == "" {
		return nil, missing(EnvRootKey)
	}

	cfg := &types.BackendConfig{
		Kind:    kind,
		RootKey: []byte(rootKey),
	}

	switch kind {
	case types.BackendLND:
		cfg.LND = &types.LNDOptions{
			Address:      os.Getenv(EnvLNDAddress),
			MacaroonFile: os.Getenv(EnvMacaroonFile),
			CertFile:     os.Getenv(EnvCertFile),
		}
	case types.BackendCLN:
		cfg.CLN = &types.CLNOptions{
			RPCFile: os.Getenv(EnvCLNRPCFile),
		}
	case types.BackendNWC:
		cfg.NWC = &types.NWCOptions{
			URI: os.Getenv(EnvNWCURI),
		}
	case types.BackendLNURL:
		cfg.LNURL = &types.LNURLOptions{
			Address: os.Getenv(EnvLNURLAddress),
		}
	case types.BackendEclair:
		cfg.Eclair = &types.EclairOptions{
			APIURL:   os.Getenv(EnvEclairAPIURL),
			Password: os.Getenv(EnvEclairPass),
		}
	default:
		return nil, &types.L402Error{
			Code:    types.ErrUnsupportedBackend,
			Message: fmt.Sprintf("LN client type not recognized: %s", kind),
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, &types.L402Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("invalid configuration: %v", err),
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func missing(name string) error {
	return &types.L402Error{
		Code:    types.ErrConfig,
		Message: fmt.Sprintf("missing required environment variable %s", name),
	}
}
