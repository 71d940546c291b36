package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/gamespin/internal/adapters/http/api"
	"github.com/okian/gamespin/internal/domain/catalog"
	"github.com/okian/gamespin/internal/domain/gate"
	"github.com/okian/gamespin/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	mu sync.Mutex

	decision gate.Decision
	status   gate.Status
	authErr  error
	readyErr error
	saveErr  error
	profiles map[string]model.Profile
	entries  []model.Entry

	authorized []string
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		decision: gate.Decision{Granted: true, SpinID: "spin-1", AuthorizedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		status:   gate.Status{CanSpin: true},
		profiles: map[string]model.Profile{},
		entries:  []model.Entry{{ID: "hades", Title: "Hades", Rarity: model.RarityLegendary}},
	}
}

func (m *mockDependencies) Ready(context.Context) error { return m.readyErr }

func (m *mockDependencies) Authorize(_ context.Context, identity string) (gate.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorized = append(m.authorized, identity)
	return m.decision, m.authErr
}

func (m *mockDependencies) CheckStatus(context.Context, string) (gate.Status, error) {
	return m.status, m.authErr
}

func (m *mockDependencies) LoadProfile(_ context.Context, identity string) (model.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[identity]
	return p, ok, nil
}

func (m *mockDependencies) SaveProfile(_ context.Context, p model.Profile) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Username] = p
	return nil
}

func (m *mockDependencies) Catalog() []model.Entry { return m.entries }

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestSpinRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newMockDependencies()
		h := api.NewServer(deps, &mockStatsProvider{}).Router(context.Background())

		Convey("When a spin is granted", func() {
			w := serve(h, http.MethodPost, "/api/spin", `{"username":"alice"}`)

			Convey("Then it answers 200 with a spin id", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["success"], ShouldEqual, true)
				So(body["spinId"], ShouldEqual, "spin-1")
				So(body["authorizedAt"], ShouldEqual, "2024-01-01T00:00:00Z")
				So(deps.authorized, ShouldResemble, []string{"alice"})
			})
		})

		Convey("When the cooldown is active", func() {
			deps.decision = gate.Decision{Remaining: 499999500 * time.Microsecond}
			w := serve(h, http.MethodPost, "/api/spin", `{"username":"alice"}`)

			Convey("Then it answers 429 with the remaining wait rounded up", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				body := decode(w)
				So(body["success"], ShouldEqual, false)
				So(body["error"], ShouldEqual, "cooldown_active")
				So(body["remainingMs"], ShouldEqual, 500000.0)
			})
		})

		Convey("When the store is down", func() {
			deps.authErr = gate.ErrStoreUnavailable
			w := serve(h, http.MethodPost, "/api/spin", `{"username":"alice"}`)

			Convey("Then it answers 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decode(w)["code"], ShouldEqual, "store_unavailable")
			})
		})

		Convey("When the identity is invalid", func() {
			deps.authErr = gate.ErrInvalidIdentity
			w := serve(h, http.MethodPost, "/api/spin", `{"username":"x"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is malformed or missing a username", func() {
			So(serve(h, http.MethodPost, "/api/spin", `{`).Code, ShouldEqual, http.StatusBadRequest)
			So(serve(h, http.MethodPost, "/api/spin", `{"username":"  "}`).Code, ShouldEqual, http.StatusBadRequest)
			So(deps.authorized, ShouldBeEmpty)
		})

		Convey("When the body is too large", func() {
			small := api.NewServer(deps, &mockStatsProvider{}, api.WithMaxBodyBytes(16)).Router(context.Background())
			w := serve(small, http.MethodPost, "/api/spin", `{"username":"`+strings.Repeat("a", 64)+`"}`)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("When status is checked during a cooldown", func() {
			deps.status = gate.Status{Remaining: 500 * time.Second}
			w := serve(h, http.MethodGet, "/api/spin-check?username=alice", "")

			Convey("Then it reports the remaining time without authorizing", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["canSpin"], ShouldEqual, false)
				So(body["remainingMs"], ShouldEqual, 500000.0)
				So(deps.authorized, ShouldBeEmpty)
			})
		})

		Convey("When status is checked without a username", func() {
			So(serve(h, http.MethodGet, "/api/spin-check", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the wrong method is used", func() {
			So(serve(h, http.MethodGet, "/api/spin", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestUserRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newMockDependencies()
		h := api.NewServer(deps, &mockStatsProvider{}).Router(context.Background())

		Convey("When loading an unknown user", func() {
			w := serve(h, http.MethodGet, "/api/user?username=ghost", "")

			Convey("Then it answers an empty object", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "{}")
			})
		})

		Convey("When a profile is saved then loaded", func() {
			w := serve(h, http.MethodPost, "/api/user",
				`{"username":"alice","wonGames":["hades"],"preferences":{"accentColor":"#0f0"}}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["success"], ShouldEqual, true)

			w = serve(h, http.MethodGet, "/api/user?username=alice", "")

			Convey("Then the stored record is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var p model.Profile
				So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
				So(p.Username, ShouldEqual, "alice")
				So(p.Won, ShouldResemble, model.WonCollection{"hades"})
				So(p.Preferences.AccentColor, ShouldEqual, "#0f0")
			})
		})

		Convey("When the save references an unknown entry", func() {
			deps.saveErr = catalog.ErrUnknownEntry
			w := serve(h, http.MethodPost, "/api/user", `{"username":"alice","wonGames":["nope"]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the save fails in the store", func() {
			deps.saveErr = errors.Join(gate.ErrStoreUnavailable, errors.New("conn reset"))
			w := serve(h, http.MethodPost, "/api/user", `{"username":"alice"}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldNotContainSubstring, "conn reset")
		})

		Convey("When the save has no username", func() {
			So(serve(h, http.MethodPost, "/api/user", `{"wonGames":[]}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newMockDependencies()
		stats := &mockStatsProvider{stats: map[string]any{"tracked_identities": 3}}
		h := api.NewServer(deps, stats, api.WithAllowedOrigins([]string{"*"})).Router(context.Background())

		Convey("Then /healthz serves metrics", func() {
			w := serve(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then /readyz follows the store", func() {
			So(serve(h, http.MethodGet, "/readyz", "").Code, ShouldEqual, http.StatusOK)
			deps.readyErr = errors.New("dial tcp: refused")
			w := serve(h, http.MethodGet, "/readyz", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["code"], ShouldEqual, "store_unavailable")
		})

		Convey("Then /stats returns the provider's map", func() {
			w := serve(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["tracked_identities"], ShouldEqual, 3.0)
		})

		Convey("Then /api/catalog lists entries", func() {
			w := serve(h, http.MethodGet, "/api/catalog", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"id":"hades"`)
		})

		Convey("Then CORS preflight is answered", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/spin", http.NoBody)
			req.Header.Set("Origin", "http://example.test")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})

		Convey("Then unknown routes are 404", func() {
			So(serve(h, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
