package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
)

// ClaimsKey is the invocation side-channel key under which JWT stores the
// decoded claims.
const ClaimsKey = "jwt"

// DefaultJWTErrorBody is sent when JWT authorization fails.
const DefaultJWTErrorBody = "Unauthorized"

var (
	// ErrMissingToken is reported when the Authorization header carries no
	// token in "<scheme> <token>" form.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrRuleMismatch is reported when a route parameter does not match its
	// claim.
	ErrRuleMismatch = errors.New("token claims do not match route parameters")
)

// Rule pairs a route parameter with a claim. The rule holds when both
// extractors return the same value.
type Rule[C any] struct {
	ParameterExtractor func(params invocation.Params) string
	JWTExtractor       func(claims C) string
}

// ParamEqualsClaim builds a Rule comparing route parameter param with the
// claim returned by claim.
func ParamEqualsClaim[C any](param string, claim func(C) string) Rule[C] {
	return Rule[C]{
		ParameterExtractor: func(p invocation.Params) string { return p.Get(param) },
		JWTExtractor:       claim,
	}
}

// JWT returns a before-execution check that decodes the bearer token into C
// and requires every rule to hold. On success the claims are stored in the
// invocation under ClaimsKey. Any failure is a 401 application error.
func JWT[C any](rules []Rule[C], opts ...Option) middleware.HTTPCheck {
	o := newOptions(DefaultJWTErrorBody, opts)

	return func(req *invocation.Request, inv *invocation.Context, result middleware.HTTPResult) error {
		logger := inv.Log()
		if o.skipIfFaulty && result.Failed() {
			logger.Info("skipping jwt authorization because the result is faulty")
			return nil
		}

		reject := func(cause error) error {
			logger.Info("jwt authorization was not successful", "err", cause)
			return apierror.New("Authorization error", http.StatusUnauthorized, o.errorBody)
		}

		token, err := bearerToken(req.Header.Get("Authorization"), o.scheme)
		if err != nil {
			return reject(err)
		}

		raw, err := o.decoder.Decode(inv.Context(), token)
		if err != nil {
			return reject(err)
		}
		claims, err := convertClaims[C](raw)
		if err != nil {
			return reject(err)
		}

		params := req.Params()
		ok := true
		for _, rule := range rules {
			if rule.ParameterExtractor(params) != rule.JWTExtractor(claims) {
				ok = false
			}
		}
		if !ok {
			return reject(ErrRuleMismatch)
		}

		inv.Set(ClaimsKey, claims)
		logger.Info("jwt authorization was successful")
		return nil
	}
}

// ClaimsFrom returns the claims stored by a JWT check using the same C.
func ClaimsFrom[C any](inv *invocation.Context) (C, bool) {
	v, ok := inv.Value(ClaimsKey)
	if !ok {
		var zero C
		return zero, false
	}
	claims, ok := v.(C)
	return claims, ok
}

func bearerToken(header, scheme string) (string, error) {
	gotScheme, rest, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return "", ErrMissingToken
	}
	if scheme != "" && !strings.EqualFold(gotScheme, scheme) {
		return "", fmt.Errorf("%w: unexpected scheme %q", ErrMissingToken, gotScheme)
	}
	token, _, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

func convertClaims[C any](raw jwt.MapClaims) (C, error) {
	var claims C
	if c, ok := any(raw).(C); ok {
		return c, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return claims, fmt.Errorf("encode claims: %w", err)
	}
	if err := json.Unmarshal(b, &claims); err != nil {
		return claims, fmt.Errorf("decode claims: %w", err)
	}
	return claims, nil
}
