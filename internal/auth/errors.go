package auth

import "errors"

// Verification errors. They are logged and otherwise swallowed by the
// Verifier, which moves on to the next credential scheme.
var (
	// ErrInvalidSignature indicates the token was not signed by the trusted
	// issuer with the expected algorithm.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrExpired indicates the token's exp claim has passed.
	ErrExpired = errors.New("token has expired")

	// ErrMissingClaim indicates a required claim (iss, exp, iat or sub) is absent.
	ErrMissingClaim = errors.New("token is missing a required claim")

	// ErrExchangeFailed indicates the cloud refused or failed a temporary
	// token exchange.
	ErrExchangeFailed = errors.New("temporary token exchange failed")

	// ErrMalformedToken indicates the credential could not be parsed at all.
	ErrMalformedToken = errors.New("malformed token")
)
