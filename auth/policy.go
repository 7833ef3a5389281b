package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
)

// DefaultPolicyErrorBody is sent when the policy denies a request.
const DefaultPolicyErrorBody = "Forbidden"

// DefaultPolicyModel is an ACL model over (subject, path, method) with
// keyMatch2 path patterns such as /api/authorization/:id.
const DefaultPolicyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// SubjectFunc resolves the policy subject of a request.
type SubjectFunc func(req *invocation.Request, inv *invocation.Context) (string, error)

// ErrNoSubject is returned by a SubjectFunc that cannot identify the caller.
var ErrNoSubject = errors.New("no policy subject")

// ClaimSubject resolves the subject from claims stored by a JWT check.
func ClaimSubject[C any](subject func(C) string) SubjectFunc {
	return func(_ *invocation.Request, inv *invocation.Context) (string, error) {
		claims, ok := ClaimsFrom[C](inv)
		if !ok {
			return "", ErrNoSubject
		}
		if sub := subject(claims); sub != "" {
			return sub, nil
		}
		return "", ErrNoSubject
	}
}

// HeaderSubject resolves the subject from a request header.
func HeaderSubject(name string) SubjectFunc {
	return func(req *invocation.Request, _ *invocation.Context) (string, error) {
		if sub := req.Header.Get(name); sub != "" {
			return sub, nil
		}
		return "", ErrNoSubject
	}
}

// NewEnforcer builds an enforcer from model text and an optional CSV policy
// file. An empty modelText selects DefaultPolicyModel.
func NewEnforcer(modelText, policyFile string) (*casbin.Enforcer, error) {
	if modelText == "" {
		modelText = DefaultPolicyModel
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("parse policy model: %w", err)
	}
	if policyFile == "" {
		return casbin.NewEnforcer(m)
	}
	return casbin.NewEnforcer(m, fileadapter.NewAdapter(policyFile))
}

// Policy returns a before-execution check that asks enforcer whether the
// subject may perform the request method on the request path. Unknown
// subjects and denied requests fail with a 403 application error.
func Policy(enforcer casbin.IEnforcer, subject SubjectFunc, opts ...Option) middleware.HTTPCheck {
	o := newOptions(DefaultPolicyErrorBody, opts)

	return func(req *invocation.Request, inv *invocation.Context, result middleware.HTTPResult) error {
		logger := inv.Log()
		if o.skipIfFaulty && result.Failed() {
			logger.Info("skipping policy authorization because the result is faulty")
			return nil
		}

		deny := apierror.New("Authorization error", http.StatusForbidden, o.errorBody)

		sub, err := subject(req, inv)
		if err != nil {
			logger.Info("policy subject could not be resolved", "err", err)
			return deny
		}

		allowed, err := enforcer.Enforce(sub, req.URL.Path, req.Method)
		if err != nil {
			return fmt.Errorf("enforce policy: %w", err)
		}
		if !allowed {
			logger.Info("policy denied request", "subject", sub, "path", req.URL.Path, "method", req.Method)
			return deny
		}
		return nil
	}
}
