package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/gamespin/internal/config"
	"github.com/okian/gamespin/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("GAMESPIN_ADDR", ":8088")
			_ = os.Setenv("GAMESPIN_COOLDOWN_MS", "60000")
			defer func() {
				_ = os.Unsetenv("GAMESPIN_ADDR")
				_ = os.Unsetenv("GAMESPIN_COOLDOWN_MS")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8088")
				convey.So(cfg.Cooldown(), convey.ShouldEqual, time.Minute)
			})
		})

		convey.Convey("When the service is built from default configuration", func() {
			cfg := config.New()
			svc := newService(cfg, logger.Nop())
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			h := newRouter(context.Background(), cfg, svc, logger.Nop())

			convey.Convey("Then the API and docs routes are mounted", func() {
				for _, path := range []string{"/healthz", "/readyz", "/stats", "/api/catalog", "/api-docs", "/openapi.yaml"} {
					rec := httptest.NewRecorder()
					h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
					convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("And service metrics can be refreshed", func() {
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("When updating system metrics", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When the updater context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			convey.Convey("Then both updaters return", func() {
				svc := newService(config.New(), logger.Nop())
				var wg sync.WaitGroup
				wg.Add(2)
				go func() { defer wg.Done(); startSystemMetricsUpdater(ctx) }()
				go func() { defer wg.Done(); startServiceMetricsUpdater(ctx, svc) }()
				wg.Wait()
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given an unknown store backend", t, func() {
		cfg := config.New()
		cfg.Store = "redis"

		convey.Convey("Then the service refuses to start", func() {
			svc := newService(cfg, logger.Nop())
			convey.So(svc.Start(context.Background()), convey.ShouldNotBeNil)
		})
	})
}
