package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/scry-live/internal/config"
	"github.com/phrazzld/scry-live/internal/platform/logger"
)

// Credential locations.
const (
	QuerySignedUserToken = "aos_signed_user_token"
	QueryTempToken       = "aos_temp_token"
	QueryFrontendToken   = "aos_frontend_token"
)

// Method names the credential scheme that produced an identity.
type Method string

// Methods in the order they are tried.
const (
	MethodNone          Method = ""
	MethodSignedQuery   Method = "signed_query"
	MethodBearerSigned  Method = "bearer_signed"
	MethodBearerFront   Method = "bearer_frontend"
	MethodTempToken     Method = "temp_token"
	MethodFrontendQuery Method = "frontend_query"
	MethodCookie        Method = "cookie"
)

// Result is the outcome of resolving a request.
type Result struct {
	Identity string
	Method   Method

	// Cookie is a fresh session cookie, set when the identity came from
	// anything other than an existing cookie.
	Cookie *http.Cookie
}

// Authenticated reports whether an identity was found.
func (r Result) Authenticated() bool {
	return r.Identity != ""
}

// Verifier resolves a caller identity from a request by trying each
// credential scheme in turn. The first scheme that yields an identity wins;
// a scheme whose credential is absent or invalid is skipped.
type Verifier struct {
	signed    *SignedTokenVerifier
	exchanger TokenExchanger
	cookies   *CookieIssuer
	apiKey    string
	logger    *slog.Logger
}

// NewVerifier assembles a Verifier from its parts.
func NewVerifier(
	signed *SignedTokenVerifier,
	exchanger TokenExchanger,
	cookies *CookieIssuer,
	apiKey string,
	logger *slog.Logger,
) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		signed:    signed,
		exchanger: exchanger,
		cookies:   cookies,
		apiKey:    apiKey,
		logger:    logger.With("component", "token_verifier"),
	}
}

// NewVerifierFromConfig builds a Verifier with the cloud exchanger.
func NewVerifierFromConfig(app config.AppConfig, cfg config.AuthConfig, logger *slog.Logger) (*Verifier, error) {
	signed, err := NewSignedTokenVerifier(cfg.UserTokenPublicKey, cfg.Issuer, cfg.Leeway)
	if err != nil {
		return nil, err
	}
	cookies, err := NewCookieIssuer(cfg.CookieSecret)
	if err != nil {
		return nil, err
	}
	exchanger := NewCloudExchanger(app.CloudAPIURL, app.APIKey, app.PackageName, cfg.ExchangeTimeout)
	return NewVerifier(signed, exchanger, cookies, app.APIKey, logger), nil
}

// Resolve runs the credential chain against r. It never fails: a request
// without a usable credential resolves to a Result with no identity, and
// rejecting it is the caller's decision.
func (v *Verifier) Resolve(r *http.Request) Result {
	ctx := r.Context()
	log := logger.FromContextOrDefault(ctx, v.logger)
	query := r.URL.Query()

	if token := query.Get(QuerySignedUserToken); token != "" {
		id, err := v.signed.Verify(ctx, token)
		if err == nil {
			return v.issued(log, id, MethodSignedQuery)
		}
		log.Warn("signed user token invalid", "reason", errors.Unwrap(err))
	}

	if token, ok := bearerToken(r); ok {
		if id, err := v.signed.Verify(ctx, token); err == nil {
			return v.issued(log, id, MethodBearerSigned)
		}
		if id, ok := VerifyFrontendToken(token, v.apiKey); ok {
			return v.issued(log, id, MethodBearerFront)
		}
		log.Warn("authorization header token invalid")
	}

	if token := query.Get(QueryTempToken); token != "" && v.exchanger != nil {
		id, err := v.exchanger.Exchange(ctx, token)
		if err == nil {
			return v.issued(log, id, MethodTempToken)
		}
		log.Warn("temporary token exchange failed", "error", err)
	}

	if token := query.Get(QueryFrontendToken); token != "" {
		if id, ok := VerifyFrontendToken(token, v.apiKey); ok {
			return v.issued(log, id, MethodFrontendQuery)
		}
		log.Warn("frontend token invalid")
	}

	if c, err := r.Cookie(SessionCookieName); err == nil {
		if id, err := v.cookies.Verify(c.Value); err == nil {
			log.Debug("identity resolved", "method", MethodCookie, "user_id", id)
			return Result{Identity: id, Method: MethodCookie}
		}
		log.Debug("session cookie ignored")
	}

	return Result{}
}

func (v *Verifier) issued(log *slog.Logger, identity string, method Method) Result {
	log.Info("identity resolved", "method", method, "user_id", identity)

	res := Result{Identity: identity, Method: method}
	cookie, err := v.cookies.Issue(identity)
	if err != nil {
		log.Error("failed to issue session cookie", "error", err)
		return res
	}
	res.Cookie = cookie
	return res
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
