package functions

import (
	"fmt"
	"net/http"

	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
	"github.com/menezmethod/funcware/validation"
)

// GreetingRequest is the body accepted by the validation function.
type GreetingRequest struct {
	Name string `json:"name" validate:"required,min=3,max=30"`
}

// GreetingResponse is the body returned by the validation function.
type GreetingResponse struct {
	Text string `json:"text" validate:"required"`
}

// Validation greets the caller named in a validated request body and checks
// its own response on the way out.
func Validation(d Deps) Function {
	afterFunction := func(_ *invocation.Request, inv *invocation.Context, _ middleware.HTTPResult) error {
		inv.Log().Info("called after function")
		return nil
	}

	return httpFunction(d, "validation", http.MethodPost, "/api/validation",
		[]middleware.HTTPCheck{validation.RequestBody(validation.Struct[GreetingRequest]())},
		func(req *invocation.Request, inv *invocation.Context) (*invocation.Response, error) {
			inv.Log().Info("function called")
			var body GreetingRequest
			if err := req.JSON(&body); err != nil {
				return nil, fmt.Errorf("decode greeting: %w", err)
			}
			return invocation.JSON(http.StatusOK, GreetingResponse{Text: "Hallo " + body.Name}), nil
		},
		[]middleware.HTTPCheck{
			validation.ResponseBody(map[int]validation.Schema{http.StatusOK: validation.Struct[GreetingResponse]()}),
			afterFunction,
		},
	)
}
