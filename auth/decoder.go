package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

// Decoder turns a raw token into its claims.
type Decoder interface {
	Decode(ctx context.Context, token string) (jwt.MapClaims, error)
}

// DecoderFunc adapts a function to a Decoder.
type DecoderFunc func(ctx context.Context, token string) (jwt.MapClaims, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, token string) (jwt.MapClaims, error) {
	return f(ctx, token)
}

// UnverifiedDecoder reads the claims without checking the signature. Use it
// only behind a gateway that has already verified the token.
func UnverifiedDecoder() Decoder {
	parser := jwt.NewParser()
	return DecoderFunc(func(_ context.Context, token string) (jwt.MapClaims, error) {
		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("decode token: %w", err)
		}
		return claims, nil
	})
}

// KeyfuncDecoder verifies the token with keyFunc and validates the
// registered claims (exp, nbf, iat) before returning them.
func KeyfuncDecoder(keyFunc jwt.Keyfunc, opts ...jwt.ParserOption) Decoder {
	parser := jwt.NewParser(opts...)
	return DecoderFunc(func(_ context.Context, token string) (jwt.MapClaims, error) {
		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(token, claims, keyFunc); err != nil {
			return nil, fmt.Errorf("verify token: %w", err)
		}
		return claims, nil
	})
}

// HMACDecoder verifies HS256, HS384, and HS512 tokens signed with secret.
func HMACDecoder(secret []byte, leeway time.Duration) Decoder {
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }
	return KeyfuncDecoder(keyFunc,
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithLeeway(leeway),
	)
}

// CachingDecoder memoizes the claims decoded by next for up to ttl, never
// past the token's own expiry. Failed decodes are not cached.
func CachingDecoder(next Decoder, ttl time.Duration) Decoder {
	c := cache.New(ttl, 2*ttl)
	return DecoderFunc(func(ctx context.Context, token string) (jwt.MapClaims, error) {
		if v, ok := c.Get(token); ok {
			return v.(jwt.MapClaims), nil
		}

		claims, err := next.Decode(ctx, token)
		if err != nil {
			return nil, err
		}

		expiry := ttl
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			if remaining := time.Until(exp.Time); remaining < expiry {
				expiry = remaining
			}
		}
		if expiry > 0 {
			c.Set(token, claims, expiry)
		}
		return claims, nil
	})
}
