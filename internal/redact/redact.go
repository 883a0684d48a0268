// Package redact scrubs credentials from strings before they are logged or
// echoed back in error responses. Session traffic carries user tokens, the
// app's API key and signed JWTs, none of which may reach a log line.
package redact

import "regexp"

// Placeholders substituted for redacted material.
const (
	Placeholder           = "[REDACTED]"
	JWTPlaceholder        = "[REDACTED_JWT]"
	DigestPlaceholder     = "[REDACTED_DIGEST]"
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Rules run in order; the JWT rule must precede the bearer rule so a bearer
// JWT is labelled as such.
var rules = []rule{
	{
		re:   regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`),
		repl: JWTPlaceholder,
	},
	{
		re:   regexp.MustCompile(`(?i)\b(postgres|postgresql|wss?|https?)://[^@/\s]+@`),
		repl: "${1}://" + CredentialPlaceholder + "@",
	},
	{
		re:   regexp.MustCompile(`(?i)\b(aos_signed_user_token|aos_temp_token|aos_frontend_token|api_?key|password)=[^&\s"]+`),
		repl: "${1}=" + Placeholder,
	},
	{
		re:   regexp.MustCompile(`(?i)"(api_?key|aos_temp_token|token|cookie_secret|password)"\s*:\s*"[^"]*"`),
		repl: `"${1}":"` + Placeholder + `"`,
	},
	{
		re:   regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._~+/=:-]+`),
		repl: "Bearer " + Placeholder,
	},
	{
		re:   regexp.MustCompile(`\b([A-Za-z0-9._@+-]+):[0-9a-f]{64}\b`),
		repl: "${1}:" + DigestPlaceholder,
	},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.repl)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
