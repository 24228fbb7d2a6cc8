package clients

import (
	"errors"
	"testing"

	"github.com/vitwit/l402/types"
)

const (
	testWalletPubKey = "b889ff5b1513b641e2a139f661a661364979c5beee91842f8f0ef42ab558e9d4"
	testNWCSecret    = "71a8c14c1407c113601079c4302dab36460f0ccd0ad506f1f2dc73b5100e4f3c"
)

func TestParseWalletConnectURI(t *testing.T) {
	uri := "nostr+walletconnect://" + testWalletPubKey +
		"?relay=wss%3A%2F%2Frelay.damus.io&secret=" + testNWCSecret

	pubkey, relay, secret, err := ParseWalletConnectURI(uri)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if pubkey != testWalletPubKey {
		t.Fatalf("unexpected pubkey: %s", pubkey)
	}
	if relay != "wss://relay.damus.io" {
		t.Fatalf("unexpected relay: %s", relay)
	}
	if secret != testNWCSecret {
		t.Fatalf("unexpected secret: %s", secret)
	}
}

func TestParseWalletConnectURIOpaqueForm(t *testing.T) {
	// Some wallets omit the double slash after the scheme.
	uri := "nostr+walletconnect:" + testWalletPubKey +
		"?relay=wss://relay.damus.io&secret=" + testNWCSecret

	pubkey, _, _, err := ParseWalletConnectURI(uri)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if pubkey != testWalletPubKey {
		t.Fatalf("unexpected pubkey: %s", pubkey)
	}
}

func TestParseWalletConnectURIErrors(t *testing.T) {
	for _, uri := range []string{
		"",
		"https://example.com",
		"nostr+walletconnect://" + testWalletPubKey,
		"nostr+walletconnect://" + testWalletPubKey + "?relay=wss://r.io",
		"nostr+walletconnect://?relay=wss://r.io&secret=" + testNWCSecret,
	} {
		if _, _, _, err := ParseWalletConnectURI(uri); err == nil {
			t.Fatalf("expected error for %q", uri)
		}
	}
}

func TestNewNWCClient(t *testing.T) {
	client, err := NewNWCClient(&types.NWCOptions{
		URI: "nostr+walletconnect://" + testWalletPubKey +
			"?relay=wss://relay.damus.io&secret=" + testNWCSecret,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	if client.Kind() != types.BackendNWC {
		t.Fatalf("unexpected kind: %s", client.Kind())
	}
	if client.clientPubKey == "" || client.clientPubKey == testWalletPubKey {
		t.Fatalf("unexpected client pubkey: %s", client.clientPubKey)
	}
	if len(client.sharedSecret) == 0 {
		t.Fatal("shared secret not derived")
	}
}

func TestNewNWCClientBadSecret(t *testing.T) {
	_, err := NewNWCClient(&types.NWCOptions{
		URI: "nostr+walletconnect://" + testWalletPubKey +
			"?relay=wss://relay.damus.io&secret=nothex",
	})

	var l402Err *types.L402Error
	if !errors.As(err, &l402Err) || l402Err.Code != types.ErrConfig {
		t.Fatalf("expected CONFIG_ERROR, got %v", err)
	}
}
