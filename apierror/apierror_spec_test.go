package apierror

import (
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Error", func() {
	It("implements error interface with message", func() {
		e := New("Authentication error", http.StatusForbidden, "No sophisticated credentials provided")
		Expect(e.Error()).To(Equal("Authentication error"))
		Expect(e.Status).To(Equal(http.StatusForbidden))
		Expect(e.Body).To(Equal("No sophisticated credentials provided"))
	})
})

var _ = Describe("constructors", func() {
	It("map to their status codes", func() {
		Expect(BadRequest("bad", nil).Status).To(Equal(http.StatusBadRequest))
		Expect(Unauthorized("no", nil).Status).To(Equal(http.StatusUnauthorized))
		Expect(Forbidden("no", nil).Status).To(Equal(http.StatusForbidden))
		Expect(Internal("boom", nil).Status).To(Equal(http.StatusInternalServerError))
	})

	It("wraps messages in the default body shape", func() {
		Expect(Message("oops")).To(Equal(map[string]any{"message": "oops"}))
	})
})

var _ = Describe("As", func() {
	It("finds wrapped application errors", func() {
		wrapped := fmt.Errorf("check failed: %w", Unauthorized("Authorization error", "Unauthorized"))
		appErr, ok := As(wrapped)
		Expect(ok).To(BeTrue())
		Expect(appErr.Body).To(Equal("Unauthorized"))
	})

	It("rejects plain errors", func() {
		_, ok := As(errors.New("plain"))
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("StatusOf", func() {
	It("returns 200 for nil", func() {
		Expect(StatusOf(nil)).To(Equal(http.StatusOK))
	})

	It("returns the carried status for application errors", func() {
		Expect(StatusOf(Forbidden("x", nil))).To(Equal(http.StatusForbidden))
	})

	It("returns 500 for unexpected errors", func() {
		Expect(StatusOf(errors.New("x"))).To(Equal(http.StatusInternalServerError))
	})
})
