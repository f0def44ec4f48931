package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker probes the backing stores the auth surface depends on.
type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

type healthResult struct {
	name string
	err  error
}

func (h *HealthChecker) check(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	results := make(chan healthResult, 2)

	go func() {
		results <- healthResult{name: "postgres", err: h.infra.Postgres().Ping(ctx)}
	}()

	go func() {
		results <- healthResult{name: "redis", err: h.infra.Redis().Ping(ctx)}
	}()

	checks := make(map[string]error, 2)
	for i := 0; i < 2; i++ {
		r := <-results
		checks[r.name] = r.err
	}
	return checks
}

func (h *HealthChecker) Handler(c *gin.Context) {
	checks := h.check(c.Request.Context())

	status := http.StatusOK
	body := gin.H{"status": "pass"}

	details := make(gin.H, len(checks))
	for name, err := range checks {
		if err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "fail"
			details[name] = err.Error()
			continue
		}
		details[name] = "ok"
	}
	body["checks"] = details

	c.JSON(status, body)
}
