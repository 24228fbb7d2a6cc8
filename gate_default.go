//go:build !noacceptauthenticate

package l402

// In the default build a client must opt in with Accept-Authenticate: L402
// before the engine challenges; plain clients pass through untouched.
const acceptAuthenticateRequired = true
