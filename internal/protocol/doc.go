// Package protocol defines the JSON frames exchanged with the session-hosting
// cloud over a session websocket.
//
// Inbound frames decode into one closed set of Message variants; anything the
// decoder does not recognise becomes an Unknown message rather than being
// dropped. Route maps a decoded message onto the event bus kind, tag and
// payload it is published under. Outbound frames (handshake, subscription
// updates and display events) are plain structs with stable field order, and
// display layouts marshal with their "layoutType" discriminator.
package protocol
