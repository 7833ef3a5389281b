package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/menezmethod/funcware/middleware"
)

var _ = Describe("Chain", func() {
	It("applies middleware in order: first is outermost", func() {
		var order []string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
			w.WriteHeader(http.StatusOK)
		})
		trace := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name+"-in")
					next.ServeHTTP(w, r)
					order = append(order, name+"-out")
				})
			}
		}

		rec := httptest.NewRecorder()
		Chain(inner, trace("A"), trace("B")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(strings.Join(order, " ")).To(Equal("A-in B-in handler B-out A-out"))
	})

	It("works with no middleware", func() {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		rec := httptest.NewRecorder()
		Chain(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(rec.Code).To(Equal(http.StatusNoContent))
	})
})

var _ = Describe("InvocationID", func() {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(middleware.InvocationIDHeader)
	})

	It("reuses the host-assigned id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.InvocationIDHeader, "host-id")
		rec := httptest.NewRecorder()
		InvocationID()(inner).ServeHTTP(rec, req)

		Expect(seen).To(Equal("host-id"))
		Expect(rec.Header().Get(middleware.InvocationIDHeader)).To(Equal("host-id"))
	})

	It("generates a uuid when the header is missing", func() {
		rec := httptest.NewRecorder()
		InvocationID()(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(seen)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Header().Get(middleware.InvocationIDHeader)).To(Equal(seen))
	})
})

var _ = Describe("Recover", func() {
	It("answers with the default error response after a panic", func() {
		panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
		rec := httptest.NewRecorder()
		Recover(slog.New(slog.NewTextHandler(io.Discard, nil)))(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(MatchJSON(`{"message":"Internal server error"}`))
	})
})

var _ = Describe("Logging", func() {
	It("logs the captured status", func() {
		var buf strings.Builder
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})

		Logging(logger)(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

		Expect(buf.String()).To(ContainSubstring(`"status":418`))
		Expect(buf.String()).To(ContainSubstring(`"path":"/brew"`))
	})
})
