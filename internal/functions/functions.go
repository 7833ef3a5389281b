// Package functions holds the example functions served by the host. Each one
// composes the library checks around a small handler.
package functions

import (
	"log/slog"
	"net/http"

	"github.com/casbin/casbin/v2"

	"github.com/menezmethod/funcware/auth"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
	"github.com/menezmethod/funcware/telemetry"
)

// Function is an HTTP endpoint the host registers on its mux.
type Function struct {
	Name    string
	Method  string
	Route   string
	Handler http.Handler
}

// Pattern returns the ServeMux pattern of f.
func (f Function) Pattern() string {
	return f.Method + " " + f.Route
}

// Deps are the collaborators shared by all functions.
type Deps struct {
	Logger          *slog.Logger
	Telemetry       *telemetry.Telemetry
	LogBehavior     telemetry.LogBehavior
	PrincipalHeader string
	Decoder         auth.Decoder
	// Enforcer, when set, adds policy authorization after JWT authorization.
	Enforcer casbin.IEnforcer
}

// All returns every example function.
func All(d Deps) []Function {
	return []Function{
		HeaderAuthentication(d),
		HeaderAuthenticationCustomValidation(d),
		JWTAuthorization(d),
		Validation(d),
		Heartbeat(d),
	}
}

// httpFunction wraps handler with telemetry and the given checks and adapts
// it to the custom-handler host.
func httpFunction(d Deps, name, method, route string, before []middleware.HTTPCheck, handler middleware.HTTPHandler, after []middleware.HTTPCheck) Function {
	checks := append([]middleware.HTTPCheck{telemetry.Setup[*invocation.Request, *invocation.Response](d.Telemetry)}, before...)
	post := append(after, telemetry.FinalizeHTTP(d.Telemetry, d.LogBehavior, nil))

	fn := middleware.HTTP(checks, handler, post, middleware.Options{})
	return Function{
		Name:    name,
		Method:  method,
		Route:   route,
		Handler: middleware.ServeHTTP(name, fn, d.Logger),
	}
}
