// Package transport is the websocket client for one session's connection to
// the session-hosting cloud. A Conn dials with bounded retries, sends the
// handshake, decodes every inbound frame onto an event bus and serialises
// outbound frames so they reach the cloud in the order they were sent.
package transport
