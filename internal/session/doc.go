// Package session owns the live sessions of this app. The Manager turns
// webhook requests from the cloud into connected review sessions, keeps
// them in a Registry keyed by session id and tears them down on request or
// when their connection ends.
package session
