package validation

import (
	"errors"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
)

var _ = Describe("RequestBody", func() {
	var ok middleware.HTTPResult

	BeforeEach(func() {
		ok = middleware.Empty[*invocation.Response]()
	})

	expectBadRequest := func(err error, message string) {
		appErr, isApp := apierror.As(err)
		Expect(isApp).To(BeTrue())
		Expect(appErr.Status).To(Equal(http.StatusBadRequest))
		Expect(appErr.Body).To(Equal(map[string]any{"message": message}))
	}

	It("accepts a matching body", func() {
		Expect(RequestBody(Struct[greeting]())(newRequest("/api/validation", `{"name":"Tester"}`), newInvocation(), ok)).To(Succeed())
	})

	It("rejects a name that is too short", func() {
		err := RequestBody(Struct[greeting]())(newRequest("/", `{"name":"Te"}`), newInvocation(), ok)
		expectBadRequest(err, `"name" length must be at least 3 characters long`)
		appErr, _ := apierror.As(err)
		Expect(appErr.Message).To(Equal("Request body validation error"))
	})

	It("rejects a missing name", func() {
		expectBadRequest(RequestBody(Struct[greeting]())(newRequest("/", `{}`), newInvocation(), ok), `"name" is required`)
	})

	DescribeTable("distinguishes broken json from schema violations",
		func(body string) {
			err := RequestBody(Struct[greeting]())(newRequest("/", body), newInvocation(), ok)
			expectBadRequest(err, InvalidJSONMessage)
		},
		Entry("truncated document", `{"name":`),
		Entry("plain text", `hello`),
	)

	It("validates an empty body as missing content", func() {
		expectBadRequest(RequestBody(Struct[greeting]())(newRequest("/", ""), newInvocation(), ok), `"value" is required`)
	})

	It("leaves the body readable for the handler", func() {
		req := newRequest("/", `{"name":"Tester"}`)
		Expect(RequestBody(Struct[greeting]())(req, newInvocation(), ok)).To(Succeed())

		body, err := io.ReadAll(req.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal(`{"name":"Tester"}`))

		var g greeting
		Expect(req.JSON(&g)).To(Succeed())
		Expect(g.Name).To(Equal("Tester"))
	})

	It("transforms the error message", func() {
		check := RequestBody(Struct[greeting](), WithTransformErrorMessage(func(m string) any {
			return map[string]string{"error": m}
		}))
		err := check(newRequest("/", `{}`), newInvocation(), ok)
		appErr, _ := apierror.As(err)
		Expect(appErr.Body).To(Equal(map[string]string{"error": `"name" is required`}))
	})

	It("only logs violations when throwing is disabled", func() {
		check := RequestBody(Struct[greeting](), WithShouldThrow(false))
		Expect(check(newRequest("/", `{}`), newInvocation(), ok)).To(Succeed())
	})

	It("validates extracted content instead of the body", func() {
		check := RequestBody(Struct[greeting](), WithExtractor(func(req *invocation.Request, _ *invocation.Context, _ middleware.HTTPResult) (any, error) {
			return map[string]any{"name": req.Header.Get("x-name")}, nil
		}))
		req := newRequest("/", `not json at all`)
		req.Header.Set("x-name", "Te")
		expectBadRequest(check(req, newInvocation(), ok), `"name" length must be at least 3 characters long`)
	})

	It("passes the sanitized input to the log", func() {
		var seen any
		check := RequestBody(Struct[greeting](), WithSanitizer(func(v any) any {
			seen = v
			return "redacted"
		}))
		_ = check(newRequest("/", `{"name":"Te","password":"secret"}`), newInvocation(), ok)
		Expect(seen).To(Equal(map[string]any{"name": "Te", "password": "secret"}))
	})

	It("does not print the input when disabled", func() {
		called := false
		check := RequestBody(Struct[greeting](), WithPrintInput(false), WithSanitizer(func(v any) any {
			called = true
			return v
		}))
		_ = check(newRequest("/", `{}`), newInvocation(), ok)
		Expect(called).To(BeFalse())
	})

	It("skips when the result is faulty", func() {
		failed := middleware.Failure[*invocation.Response](errors.New("earlier"))
		Expect(RequestBody(Struct[greeting]())(newRequest("/", `{}`), newInvocation(), failed)).To(Succeed())
	})

	It("answers 400 inside a chain without calling the handler", func() {
		fn := middleware.HTTP([]middleware.HTTPCheck{RequestBody(Struct[greeting]())},
			func(*invocation.Request, *invocation.Context) (*invocation.Response, error) {
				Fail("handler must not run")
				return nil, nil
			}, nil, middleware.Options{})
		resp, err := fn(newRequest("/", `{"name":"Te"}`), newInvocation())
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusBadRequest))
		Expect(resp.JSONBody).To(Equal(map[string]any{"message": `"name" length must be at least 3 characters long`}))
	})
})

var _ = Describe("QueryParams", func() {
	ok := middleware.Empty[*invocation.Response]()

	It("accepts matching params", func() {
		Expect(QueryParams(Struct[search]())(newRequest("/api?name=Tester&limit=10", ""), newInvocation(), ok)).To(Succeed())
	})

	It("uses the last value of a repeated key", func() {
		Expect(QueryParams(Struct[search]())(newRequest("/api?name=Te&name=Tester", ""), newInvocation(), ok)).To(Succeed())
		err := QueryParams(Struct[search]())(newRequest("/api?name=Tester&name=Te", ""), newInvocation(), ok)
		Expect(apierror.StatusOf(err)).To(Equal(http.StatusBadRequest))
	})

	It("ignores the platform code param", func() {
		strict := ValidateOptions{DisallowUnknownFields: true}
		check := QueryParams(Struct[search](), WithValidateOptions(strict))
		Expect(check(newRequest("/api?name=Tester&code=host-key", ""), newInvocation(), ok)).To(Succeed())

		noExclusions := QueryParams(Struct[search](), WithValidateOptions(strict), WithExcludedQueryParams())
		err := noExclusions(newRequest("/api?name=Tester&code=host-key", ""), newInvocation(), ok)
		appErr, isApp := apierror.As(err)
		Expect(isApp).To(BeTrue())
		Expect(appErr.Message).To(Equal("Request query params validation error"))
		Expect(appErr.Body).To(Equal(map[string]any{"message": `"code" is not allowed`}))
	})

	It("rejects invalid params", func() {
		err := QueryParams(Struct[search]())(newRequest("/api?name=Tester&limit=ten", ""), newInvocation(), ok)
		appErr, _ := apierror.As(err)
		Expect(appErr.Body).To(Equal(map[string]any{"message": `"limit" must be a number`}))
	})

	It("converts params to the field types before validating", func() {
		check := QueryParams(Struct[page]())
		Expect(check(newRequest("/api?page=2&ratio=0.5&exact=true", ""), newInvocation(), ok)).To(Succeed())

		err := check(newRequest("/api?page=0", ""), newInvocation(), ok)
		appErr, _ := apierror.As(err)
		Expect(appErr.Body).To(Equal(map[string]any{"message": `"page" must be greater than or equal to 1`}))

		err = check(newRequest("/api?page=2&exact=maybe", ""), newInvocation(), ok)
		appErr, _ = apierror.As(err)
		Expect(appErr.Body).To(Equal(map[string]any{"message": `"exact" must be a boolean`}))
	})

	It("checks converted numbers against their bounds", func() {
		err := QueryParams(Struct[search]())(newRequest("/api?name=Tester&limit=500", ""), newInvocation(), ok)
		appErr, _ := apierror.As(err)
		Expect(appErr.Body).To(Equal(map[string]any{"message": `"limit" must be less than or equal to 100`}))
	})
})

var _ = Describe("ResponseBody", func() {
	schemas := map[int]Schema{http.StatusOK: Struct[greetingReply]()}

	success := func(resp *invocation.Response) middleware.HTTPResult {
		return middleware.Success(resp)
	}

	expectInternal := func(err error) {
		appErr, isApp := apierror.As(err)
		Expect(isApp).To(BeTrue())
		Expect(appErr.Status).To(Equal(http.StatusInternalServerError))
		Expect(appErr.Body).To(Equal(map[string]any{"message": "Internal server error"}))
	}

	It("accepts a response matching its status schema", func() {
		resp := invocation.JSON(http.StatusOK, greetingReply{Message: "Hallo Tester"})
		Expect(ResponseBody(schemas)(nil, newInvocation(), success(resp))).To(Succeed())
	})

	It("validates raw JSON bodies", func() {
		resp := invocation.Text(http.StatusOK, `{"message":"hi"}`)
		Expect(ResponseBody(schemas)(nil, newInvocation(), success(resp))).To(Succeed())
	})

	It("fails with 500 when no schema matches the status", func() {
		resp := invocation.JSON(http.StatusCreated, greetingReply{Message: "created"})
		expectInternal(ResponseBody(schemas)(nil, newInvocation(), success(resp)))
	})

	It("fails with 500 when the body violates the schema", func() {
		resp := invocation.JSON(http.StatusOK, map[string]any{"greeting": "hi"})
		err := ResponseBody(schemas)(nil, newInvocation(), success(resp))
		expectInternal(err)
		appErr, _ := apierror.As(err)
		Expect(appErr.Message).To(Equal("Response body validation error"))
	})

	It("skips a faulty result", func() {
		failed := middleware.Failure[*invocation.Response](errors.New("earlier"))
		Expect(ResponseBody(schemas)(nil, newInvocation(), failed)).To(Succeed())
	})

	It("turns a successful invocation into a 500 inside a chain", func() {
		fn := middleware.HTTP(nil,
			func(*invocation.Request, *invocation.Context) (*invocation.Response, error) {
				return invocation.JSON(http.StatusOK, map[string]any{"unexpected": true}), nil
			},
			[]middleware.HTTPCheck{ResponseBody(schemas)},
			middleware.Options{})
		resp, err := fn(newRequest("/", ""), newInvocation())
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusInternalServerError))
		Expect(resp.JSONBody).To(Equal(map[string]any{"message": "Internal server error"}))
	})
})
