// Package api is the HTTP surface of the app. The cloud calls the webhook,
// tool and settings endpoints to drive live sessions; pages opened from the
// glasses' companion app call the /api routes, which resolve the caller's
// identity through the token verifier first.
package api
