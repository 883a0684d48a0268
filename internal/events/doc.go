// Package events provides the in-process publish/subscribe bus that fans
// decoded protocol events out to session handlers.
//
// The bus keeps two independent registries, one for stream events (keyed by
// stream tag such as "transcription") and one for system events (keyed by
// name such as "settings_update"). Handlers run in registration order and
// each runs inside its own failure boundary: an error or panic is logged and
// the remaining handlers still run.
package events
