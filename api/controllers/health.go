package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/boticalabs/botica-backend/api/responses"
	"github.com/boticalabs/botica-backend/pkg/bigquery"
	"github.com/boticalabs/botica-backend/pkg/config"
	"github.com/boticalabs/botica-backend/pkg/db"
	"github.com/boticalabs/botica-backend/pkg/logger"
	"github.com/boticalabs/botica-backend/pkg/redis"
	"github.com/boticalabs/botica-backend/pkg/storage/gcs"
)

const readyCheckTimeout = 5 * time.Second

// HealthLive reports process liveness only.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "live",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady pings every backing dependency. A nil pinger is reported as
// skipped so partial deployments (no analytics, no storage) stay green.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, gcsP gcs.Pinger, bqP bigquery.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		run := func(name string, ping func(context.Context) error) {
			if ping == nil {
				checks[name] = "skipped"
				return
			}
			if err := ping(ctx); err != nil {
				checks[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness check failed: "+name, err)
				}
				return
			}
			checks[name] = "up"
		}

		run("postgres", pingFn(dbP))
		run("redis", pingFn(redisP))
		run("gcs", pingFn(gcsP))
		run("bigquery", pingFn(bqP))

		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, code, map[string]any{
			"status": status,
			"env":    cfg.App.Env,
			"checks": checks,
		})
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func pingFn(p pinger) func(context.Context) error {
	if p == nil {
		return nil
	}
	return p.Ping
}
