package runtime

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name string
	// Optional checks report failures without failing readiness.
	Optional bool
	Check    func(context.Context) error
}

const readyCheckTimeout = 2 * time.Second

// NewBaseMux registers /healthz and /readyz. Checks run sequentially, each
// with its own timeout; /readyz answers 503 listing every required failure.
func NewBaseMux(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		failed, degraded := runChecks(r.Context(), checks)
		if len(failed) > 0 {
			writeText(w, http.StatusServiceUnavailable, strings.Join(append(failed, degraded...), "; "))
			return
		}
		if len(degraded) > 0 {
			writeText(w, http.StatusOK, "degraded: "+strings.Join(degraded, "; "))
			return
		}
		writeText(w, http.StatusOK, "ok")
	})
	return mux
}

func runChecks(ctx context.Context, checks []ReadyCheck) (failed, degraded []string) {
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, readyCheckTimeout)
		err := check.Check(checkCtx)
		cancel()
		if err == nil {
			continue
		}
		name := check.Name
		if name == "" {
			name = "dependency"
		}
		msg := name + ": " + err.Error()
		if check.Optional {
			degraded = append(degraded, msg)
		} else {
			failed = append(failed, msg)
		}
	}
	return failed, degraded
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
