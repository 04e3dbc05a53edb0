package app

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/odyssey-erp/bizops/internal/platform/httpx"
)

// Readiness runs named dependency checks for /readyz.
type Readiness struct {
	Checks  map[string]func(context.Context) error
	Timeout time.Duration
	Logger  *slog.Logger
}

type readinessReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServeHTTP answers 200 when every check passes and 503 otherwise.
func (rd Readiness) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := rd.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	names := make([]string, 0, len(rd.Checks))
	for name := range rd.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := readinessReport{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := rd.Checks[name](ctx); err != nil {
			if rd.Logger != nil {
				rd.Logger.Warn("readiness check failed", slog.String("check", name), slog.Any("error", err))
			}
			report.Checks[name] = "unavailable"
			report.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		report.Checks[name] = "ok"
	}
	httpx.JSON(w, status, report)
}
