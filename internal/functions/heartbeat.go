package functions

import (
	"net/http"
	"time"

	"github.com/menezmethod/funcware/internal/version"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
	"github.com/menezmethod/funcware/telemetry"
)

// TimerInfo is the payload of a timer trigger.
type TimerInfo struct {
	ScheduleStatus *struct {
		Last time.Time `json:"Last"`
		Next time.Time `json:"Next"`
	} `json:"ScheduleStatus,omitempty"`
	IsPastDue bool `json:"IsPastDue"`
}

// Beat is the heartbeat function's return value.
type Beat struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	IsPastDue bool      `json:"isPastDue"`
	At        time.Time `json:"at"`
}

// Heartbeat is a timer-triggered function served in the custom-handler
// trigger payload format.
func Heartbeat(d Deps) Function {
	logPastDue := func(in TimerInfo, inv *invocation.Context, _ middleware.Result[Beat]) error {
		if in.IsPastDue {
			inv.Log().Warn("heartbeat is running late")
		}
		return nil
	}

	fn := middleware.Trigger(
		[]middleware.Check[TimerInfo, Beat]{telemetry.Setup[TimerInfo, Beat](d.Telemetry), logPastDue},
		func(in TimerInfo, inv *invocation.Context) (Beat, error) {
			inv.Log().Info("heartbeat")
			return Beat{Status: "alive", Version: version.Version, IsPastDue: in.IsPastDue, At: time.Now().UTC()}, nil
		},
		[]middleware.Check[TimerInfo, Beat]{telemetry.FinalizeTrigger[TimerInfo, Beat](d.Telemetry)},
		middleware.Options{},
	)

	return Function{
		Name:    "heartbeat",
		Method:  http.MethodPost,
		Route:   "/heartbeat",
		Handler: middleware.ServeTrigger("heartbeat", fn, d.Logger),
	}
}
