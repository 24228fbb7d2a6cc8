//go:build noacceptauthenticate

package l402

// Built with -tags noacceptauthenticate the engine challenges every
// unauthenticated request to a protected route.
const acceptAuthenticateRequired = false
