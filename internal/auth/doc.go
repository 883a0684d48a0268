// Package auth resolves the identity of a caller from the credentials the
// session-hosting cloud hands out.
//
// A Verifier tries, in order: a cloud-signed RS256 user token in the query,
// a bearer token (signed, then frontend), a temporary token exchanged with
// the cloud, a frontend token in the query and finally the app's own signed
// session cookie. Any scheme other than the cookie also produces a fresh
// cookie so later requests need no cloud credential.
package auth
