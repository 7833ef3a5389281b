package functions

import (
	"net/http"

	"github.com/menezmethod/funcware/auth"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
)

// HeaderAuthentication answers 204 to callers authenticated by the platform.
func HeaderAuthentication(d Deps) Function {
	check := auth.Header(auth.WithHeaderValidator(auth.PrincipalHeaderValidator(d.PrincipalHeader)))

	return httpFunction(d, "header-authentication", http.MethodPost, "/api/authentication",
		[]middleware.HTTPCheck{check},
		func(_ *invocation.Request, inv *invocation.Context) (*invocation.Response, error) {
			inv.Log().Info("function called")
			return &invocation.Response{Status: http.StatusNoContent}, nil
		},
		nil,
	)
}

// HeaderAuthenticationCustomValidation accepts callers that send
// my-authentication-header: authenticated.
func HeaderAuthenticationCustomValidation(d Deps) Function {
	check := auth.Header(auth.WithHeaderValidator(auth.HeaderEquals("my-authentication-header", "authenticated")))

	return httpFunction(d, "header-authentication-custom-validation", http.MethodGet, "/api/header-authentication-custom-validation",
		[]middleware.HTTPCheck{check},
		func(_ *invocation.Request, inv *invocation.Context) (*invocation.Response, error) {
			inv.Log().Info("function called")
			return invocation.JSON(http.StatusOK, map[string]int{"response": 42}), nil
		},
		nil,
	)
}

// Claims are the token claims the example functions rely on.
type Claims struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
}

// JWTAuthorization answers 204 when the {id} route parameter matches the
// token subject and, with an enforcer configured, the policy allows it.
func JWTAuthorization(d Deps) Function {
	subject := func(c Claims) string { return c.Subject }
	checks := []middleware.HTTPCheck{
		auth.JWT([]auth.Rule[Claims]{auth.ParamEqualsClaim("id", subject)}, auth.WithDecoder(d.Decoder)),
		middleware.When(d.Enforcer != nil, auth.Policy(d.Enforcer, auth.ClaimSubject(subject))),
	}

	return httpFunction(d, "jwt-authorization", http.MethodPost, "/api/authorization/{id}",
		checks,
		func(_ *invocation.Request, inv *invocation.Context) (*invocation.Response, error) {
			claims, _ := auth.ClaimsFrom[Claims](inv)
			inv.Log().Info("function called", "subject", claims.Subject)
			return &invocation.Response{Status: http.StatusNoContent}, nil
		},
		nil,
	)
}

