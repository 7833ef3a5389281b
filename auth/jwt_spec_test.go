package auth

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
)

var _ = Describe("JWT", func() {
	var (
		ok     middleware.HTTPResult
		byUser []Rule[userClaims]
	)

	BeforeEach(func() {
		ok = middleware.Empty[*invocation.Response]()
		byUser = []Rule[userClaims]{
			ParamEqualsClaim("id", func(c userClaims) string { return c.UserID }),
		}
	})

	bearer := func(token string) map[string]string {
		return map[string]string{"Authorization": "Bearer " + token}
	}

	expectUnauthorized := func(err error) {
		appErr, isApp := apierror.As(err)
		Expect(isApp).To(BeTrue())
		Expect(appErr.Status).To(Equal(http.StatusUnauthorized))
		Expect(appErr.Message).To(Equal("Authorization error"))
	}

	It("accepts a token whose claim matches the route parameter and stores the claims", func() {
		inv := newInvocation()
		req := newRequest(http.MethodGet, "/api/authorization/user-1", map[string]string{"id": "user-1"}, bearer(signToken(validClaims())))

		Expect(JWT(byUser)(req, inv, ok)).To(Succeed())

		claims, found := ClaimsFrom[userClaims](inv)
		Expect(found).To(BeTrue())
		Expect(claims.UserID).To(Equal("user-1"))
		Expect(inv.Inputs()).To(HaveKey(ClaimsKey))
	})

	It("rejects a mismatching claim", func() {
		req := newRequest(http.MethodGet, "/", map[string]string{"id": "someone-else"}, bearer(signToken(validClaims())))
		err := JWT(byUser)(req, newInvocation(), ok)
		expectUnauthorized(err)
		appErr, _ := apierror.As(err)
		Expect(appErr.Body).To(Equal(DefaultJWTErrorBody))
	})

	It("requires every rule to hold", func() {
		rules := []Rule[userClaims]{
			ParamEqualsClaim("id", func(c userClaims) string { return c.UserID }),
			ParamEqualsClaim("tenant", func(c userClaims) string { return c.Tenant }),
		}
		token := signToken(validClaims())

		both := newRequest(http.MethodGet, "/", map[string]string{"id": "user-1", "tenant": "tenant-1"}, bearer(token))
		Expect(JWT(rules)(both, newInvocation(), ok)).To(Succeed())

		firstOnly := newRequest(http.MethodGet, "/", map[string]string{"id": "user-1", "tenant": "tenant-2"}, bearer(token))
		expectUnauthorized(JWT(rules)(firstOnly, newInvocation(), ok))

		secondOnly := newRequest(http.MethodGet, "/", map[string]string{"id": "user-2", "tenant": "tenant-1"}, bearer(token))
		expectUnauthorized(JWT(rules)(secondOnly, newInvocation(), ok))
	})

	It("evaluates every rule even after a mismatch", func() {
		evaluated := 0
		counting := func(value string) Rule[userClaims] {
			return Rule[userClaims]{
				ParameterExtractor: func(invocation.Params) string { evaluated++; return value },
				JWTExtractor:       func(c userClaims) string { return c.UserID },
			}
		}
		rules := []Rule[userClaims]{counting("wrong"), counting("user-1")}
		req := newRequest(http.MethodGet, "/", nil, bearer(signToken(validClaims())))
		expectUnauthorized(JWT(rules)(req, newInvocation(), ok))
		Expect(evaluated).To(Equal(2))
	})

	It("passes with no rules once the token decodes", func() {
		req := newRequest(http.MethodGet, "/", nil, bearer(signToken(validClaims())))
		Expect(JWT[userClaims](nil)(req, newInvocation(), ok)).To(Succeed())
	})

	DescribeTable("rejects requests without a usable token",
		func(headers map[string]string) {
			req := newRequest(http.MethodGet, "/", map[string]string{"id": "user-1"}, headers)
			expectUnauthorized(JWT(byUser)(req, newInvocation(), ok))
		},
		Entry("no header", map[string]string{}),
		Entry("scheme only", map[string]string{"Authorization": "Bearer"}),
		Entry("empty token", map[string]string{"Authorization": "Bearer "}),
		Entry("malformed token", map[string]string{"Authorization": "Bearer not-a-jwt"}),
	)

	It("sends the configured error body", func() {
		req := newRequest(http.MethodGet, "/", nil, nil)
		err := JWT(byUser, WithErrorBody(apierror.Message("token required")))(req, newInvocation(), ok)
		appErr, _ := apierror.As(err)
		Expect(appErr.Body).To(Equal(map[string]any{"message": "token required"}))
	})

	It("enforces the configured scheme", func() {
		req := newRequest(http.MethodGet, "/", map[string]string{"id": "user-1"}, map[string]string{"Authorization": "Token " + signToken(validClaims())})
		Expect(JWT(byUser)(req, newInvocation(), ok)).To(Succeed())
		expectUnauthorized(JWT(byUser, WithScheme("bearer"))(req, newInvocation(), ok))
	})

	It("rejects tokens with a bad signature when verifying", func() {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("other-secret"))
		Expect(err).NotTo(HaveOccurred())

		check := JWT(byUser, WithDecoder(HMACDecoder([]byte(testSecret), 0)))
		req := newRequest(http.MethodGet, "/", map[string]string{"id": "user-1"}, bearer(forged))
		expectUnauthorized(check(req, newInvocation(), ok))

		genuine := newRequest(http.MethodGet, "/", map[string]string{"id": "user-1"}, bearer(signToken(validClaims())))
		Expect(check(genuine, newInvocation(), ok)).To(Succeed())
	})

	It("skips when the result is already faulty", func() {
		failed := middleware.Failure[*invocation.Response](errors.New("earlier"))
		Expect(JWT(byUser)(newRequest(http.MethodGet, "/", nil, nil), newInvocation(), failed)).To(Succeed())
	})

	It("answers 401 inside a chain", func() {
		fn := middleware.HTTP([]middleware.HTTPCheck{JWT(byUser)}, func(*invocation.Request, *invocation.Context) (*invocation.Response, error) {
			return invocation.Text(http.StatusOK, "ok"), nil
		}, nil, middleware.Options{})
		resp, err := fn(newRequest(http.MethodGet, "/", map[string]string{"id": "user-1"}, nil), newInvocation())
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusUnauthorized))
		Expect(string(resp.Body)).To(Equal("Unauthorized"))
	})
})
