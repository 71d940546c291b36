package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/gamespin/internal/adapters/http/api"
	service "github.com/okian/gamespin/internal/app"
	"github.com/okian/gamespin/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		panic(err)
	}
}

func TestRunAgainstGate(t *testing.T) {
	Convey("Given a running gate", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithLogger(logger.Nop()))
		So(svc.Start(ctx), ShouldBeNil)
		srv := httptest.NewServer(api.NewServer(svc, svc).Router(ctx))
		Reset(func() {
			srv.Close()
			svc.Stop()
		})

		Convey("When a fresh identity is probed with 40 concurrent requests", func() {
			out := filepath.Join(t.TempDir(), "reports", "probe.json")
			cfg := &Config{BaseURL: srv.URL, Requests: 40, Workers: 8, StatusChecks: 5, OutputFile: out}
			report, err := Run(ctx, cfg)

			Convey("Then exactly one request is granted and verification passes", func() {
				So(err, ShouldBeNil)
				So(report.Granted, ShouldEqual, 1)
				So(report.Denied, ShouldEqual, 39)
				So(report.ZeroWait, ShouldEqual, 0)
				So(report.StatusChecks, ShouldEqual, 5)
				So(report.Verify(true), ShouldBeNil)
				So(cfg.Identity, ShouldStartWith, "probe-")
			})

			Convey("And the report is written", func() {
				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var saved Report
				So(json.Unmarshal(data, &saved), ShouldBeNil)
				So(saved.Granted, ShouldEqual, 1)
			})

			Convey("And probing the same identity again grants nothing", func() {
				again, err := Run(ctx, &Config{BaseURL: srv.URL, Identity: cfg.Identity, Requests: 5})
				So(err, ShouldBeNil)
				So(again.Granted, ShouldEqual, 0)
				So(again.Verify(false), ShouldBeNil)
				So(errors.Is(again.Verify(true), ErrNoGrant), ShouldBeTrue)
			})
		})
	})
}

func TestRunAgainstBrokenGate(t *testing.T) {
	Convey("Given a gate that grants everything", t, func() {
		var n atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Path == "/api/spin-check" {
				_, _ = w.Write([]byte(`{"canSpin":true,"remainingMs":0}`))
				return
			}
			n.Add(1)
			_, _ = w.Write([]byte(`{"success":true,"spinId":"x","authorizedAt":"2024-01-01T00:00:00Z"}`))
		}))
		defer srv.Close()

		report, err := Run(context.Background(), &Config{BaseURL: srv.URL, Requests: 10, Timeout: time.Second})

		Convey("Then verification reports the double grant", func() {
			So(err, ShouldBeNil)
			So(n.Load(), ShouldEqual, 10)
			So(errors.Is(report.Verify(true), ErrDoubleGrant), ShouldBeTrue)
		})
	})

	Convey("Given a gate whose store is down", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		report, err := Run(context.Background(), &Config{BaseURL: srv.URL, Requests: 3})

		Convey("Then the run stops at the status checks", func() {
			So(err, ShouldNotBeNil)
			So(report.Unavailable, ShouldEqual, 3)
			verr := report.Verify(true)
			So(errors.Is(verr, ErrIncomplete), ShouldBeTrue)
			So(errors.Is(verr, ErrUnverifiable), ShouldBeTrue)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given reports with individual faults", t, func() {
		So(Report{Granted: 1, Denied: 3}.Verify(true), ShouldBeNil)
		So(errors.Is(Report{Granted: 1, Denied: 3, ZeroWait: 1}.Verify(true), ErrZeroWait), ShouldBeTrue)
		So(errors.Is(Report{Granted: 1, StatusFlips: 2}.Verify(true), ErrStatusFlip), ShouldBeTrue)
		So(errors.Is(Report{Denied: 4}.Verify(true), ErrNoGrant), ShouldBeTrue)
		So(Report{Denied: 4}.Verify(false), ShouldBeNil)
	})
}
