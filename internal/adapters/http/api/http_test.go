package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/detective/internal/adapters/http/api"
	"github.com/okian/detective/internal/adapters/kv"
	service "github.com/okian/detective/internal/app"
	"github.com/okian/detective/internal/domain/grader"
	"github.com/okian/detective/internal/domain/leaderboard"
	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/internal/domain/theme"
	"github.com/okian/detective/internal/domain/types"
	"github.com/okian/detective/pkg/logger"
)

func init() {
	_ = logger.Init()
}

// echoRunner prints its code back, or fails when the code is "fail".
type echoRunner struct{}

func (echoRunner) Run(_ context.Context, code string) model.RunResult {
	if code == "fail" {
		return model.RunResult{OK: false, Err: "⚠️ Error: boom"}
	}
	return model.RunResult{OK: true, Output: code}
}

func newMux() (*http.ServeMux, *service.Service) {
	s := service.New(kv.NewMemoryStore(), service.WithFlushDelay(0), service.WithRunner(echoRunner{}))
	_ = s.Start(context.Background())
	mux := http.NewServeMux()
	api.NewServer(s, 2).Register(context.Background(), mux)
	return mux, s
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux, s := newMux()
		defer func() { _ = s.Stop(context.Background()) }()

		Convey("When requesting /healthz", func() {
			do(mux, http.MethodGet, "/stats", "")
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then Prometheus metrics are served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "detective_core_http_requests_total")
			})
		})

		Convey("When requesting /stats", func() {
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then the session snapshot is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				stats := decode[types.Stats](w)
				So(stats.Started, ShouldBeTrue)
				So(stats.RelayEnabled, ShouldBeFalse)
			})
		})

		Convey("When using a wrong method", func() {
			w := do(mux, http.MethodPost, "/stats", "")

			Convey("Then 405 is returned with the error body", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, http.MethodGet)
				So(w.Body.String(), ShouldContainSubstring, `"code":"method_not_allowed"`)
			})
		})
	})
}

func TestIdentityHandler(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux, s := newMux()
		defer func() { _ = s.Stop(context.Background()) }()

		Convey("When nobody is known", func() {
			w := do(mux, http.MethodGet, "/identity", "")
			body := decode[map[string]any](w)

			Convey("Then the form is left open", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["known"], ShouldEqual, false)
				form := body["form"].(map[string]any)
				So(form["name_locked"], ShouldEqual, false)
			})
		})

		Convey("When the query names the player", func() {
			w := do(mux, http.MethodGet, "/identity?agent=Bob&group=G2", "")
			body := decode[map[string]any](w)

			Convey("Then the player is resolved", func() {
				So(body["known"], ShouldEqual, true)
				So(body["identity"].(map[string]any)["name"], ShouldEqual, "Bob")
			})
		})

		Convey("When an identity is remembered and forgotten", func() {
			So(do(mux, http.MethodPost, "/identity", `{"name":"Ann","group":"A"}`).Code, ShouldEqual, http.StatusOK)
			remembered := decode[map[string]any](do(mux, http.MethodGet, "/identity?agent=Bob", ""))
			So(do(mux, http.MethodDelete, "/identity", "").Code, ShouldEqual, http.StatusNoContent)
			forgotten := decode[map[string]any](do(mux, http.MethodGet, "/identity?agent=Bob", ""))

			Convey("Then the stored player wins until forgotten", func() {
				So(remembered["identity"].(map[string]any)["name"], ShouldEqual, "Ann")
				So(forgotten["identity"].(map[string]any)["name"], ShouldEqual, "Bob")
			})
		})

		Convey("When remembering an empty name", func() {
			w := do(mux, http.MethodPost, "/identity", `{"group":"A"}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestProgressHandler(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux, s := newMux()
		defer func() { _ = s.Stop(context.Background()) }()

		Convey("When progress is saved", func() {
			w := do(mux, http.MethodPut, "/progress/g1", `{"name":"Ann","group":"A","attempts":2,"awarded":["s2","s1"],"code":"print(1)"}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			Convey("Then it loads back", func() {
				got := decode[model.Progress](do(mux, http.MethodGet, "/progress/g1?name=Ann&group=A", ""))
				So(got.Attempts, ShouldEqual, 2)
				So(got.Awarded.Sorted(), ShouldResemble, []string{"s1", "s2"})
				So(got.Code, ShouldEqual, "print(1)")
			})

			Convey("Then a reset clears it", func() {
				So(do(mux, http.MethodDelete, "/progress/g1?name=Ann&group=A", "").Code, ShouldEqual, http.StatusNoContent)
				got := decode[model.Progress](do(mux, http.MethodGet, "/progress/g1?name=Ann&group=A", ""))
				So(got.Empty(), ShouldBeTrue)
			})
		})

		Convey("When the body is malformed or the game is missing", func() {
			So(do(mux, http.MethodPut, "/progress/g1", `{`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/progress/", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/progress/g1", `{}`).Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("When the body is too large", func() {
			big := `{"code":"` + strings.Repeat("x", 2<<20) + `"}`
			w := do(mux, http.MethodPut, "/progress/g1", big)

			Convey("Then it is refused", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			})
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux, s := newMux()
		defer func() { _ = s.Stop(context.Background()) }()

		add := func(body string) map[string]any {
			w := do(mux, http.MethodPost, "/leaderboard/g1", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			return decode[map[string]any](w)
		}

		Convey("When scores are posted", func() {
			So(add(`{"name":"Ann","group":"A","score":50,"time":"1:00"}`)["outcome"], ShouldEqual, string(leaderboard.Inserted))
			So(add(`{"name":"Bob","group":"B","score":70,"time_ms":95000}`)["outcome"], ShouldEqual, string(leaderboard.Inserted))
			So(add(`{"name":"Ann","group":"A","score":40,"time":"0:30"}`)["outcome"], ShouldEqual, string(leaderboard.Unchanged))
			So(add(`{"score":10}`)["outcome"], ShouldEqual, string(leaderboard.Inserted))

			Convey("Then the board is ranked", func() {
				rows := decode[[]types.Row](do(mux, http.MethodGet, "/leaderboard/g1", ""))
				So(len(rows), ShouldEqual, 3)
				So(rows[0].Name, ShouldEqual, "Bob")
				So(rows[0].Time, ShouldEqual, "1:35")
				So(rows[2].Name, ShouldEqual, leaderboard.UnknownName)
			})

			Convey("Then a limit returns the top rows", func() {
				rows := decode[[]types.Row](do(mux, http.MethodGet, "/leaderboard/g1?limit=1", ""))
				So(len(rows), ShouldEqual, 1)
				So(do(mux, http.MethodGet, "/leaderboard/g1?limit=3", "").Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodGet, "/leaderboard/g1?limit=zero", "").Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a single player's rank is available", func() {
				row := decode[types.Row](do(mux, http.MethodGet, "/leaderboard/g1?name=Ann&group=A", ""))
				So(row.Rank, ShouldEqual, 2)
				So(do(mux, http.MethodGet, "/leaderboard/g1?name=Zed", "").Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then the game is listed and can be cleared", func() {
				So(decode[[]string](do(mux, http.MethodGet, "/leaderboard", "")), ShouldResemble, []string{"g1"})
				So(do(mux, http.MethodDelete, "/leaderboard/g1", "").Code, ShouldEqual, http.StatusNoContent)
				So(decode[[]types.Row](do(mux, http.MethodGet, "/leaderboard/g1", "")), ShouldBeEmpty)
			})
		})
	})
}

func TestGradeHandler(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux, s := newMux()
		defer func() { _ = s.Stop(context.Background()) }()

		Convey("When matching output is graded", func() {
			v := decode[grader.Verdict](do(mux, http.MethodPost, "/grade", `{"code":"3.0\n\nfoo\n","expected":["3","foo"]}`))
			So(v.Passed, ShouldBeTrue)
		})

		Convey("When the submission fails to run", func() {
			v := decode[grader.Verdict](do(mux, http.MethodPost, "/grade", `{"code":"fail","expected":[]}`))
			So(v.Passed, ShouldBeFalse)
			So(v.Error, ShouldContainSubstring, "boom")
		})

		Convey("When code is only run", func() {
			res := decode[model.RunResult](do(mux, http.MethodPost, "/run", `{"code":"hi"}`))
			So(res.OK, ShouldBeTrue)
			So(res.Output, ShouldEqual, "hi")
			So(do(mux, http.MethodGet, "/run", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestAnalyticsHandler(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux, s := newMux()
		defer func() { _ = s.Stop(context.Background()) }()

		Convey("When a game result is posted", func() {
			w := do(mux, http.MethodPost, "/attempts", `{"name":"Ann","group":"A","gameId":"g1","score":80,"totalTimeMs":61000}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			body := decode[map[string]any](w)

			Convey("Then the attempt is logged", func() {
				So(body["saved"], ShouldEqual, true)
				attempts := decode[[]model.Attempt](do(mux, http.MethodGet, "/attempts", ""))
				So(len(attempts), ShouldEqual, 1)
				So(attempts[0].TimeSpent, ShouldEqual, 61)
				So(attempts[0].MaxScore, ShouldEqual, 100)
			})
		})

		Convey("When the game id is missing", func() {
			So(do(mux, http.MethodPost, "/attempts", `{"name":"Ann"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When feedback is posted", func() {
			w := do(mux, http.MethodPost, "/feedback", `{"name":"Ann","gameId":"g1","rating":4,"comment":"fun"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			Convey("Then it is logged with an id", func() {
				fbs := decode[[]model.Feedback](do(mux, http.MethodGet, "/feedback", ""))
				So(len(fbs), ShouldEqual, 1)
				So(fbs[0].ID, ShouldNotBeEmpty)
				So(fbs[0].Comment, ShouldEqual, "fun")
			})
		})
	})
}

func TestThemeHandler(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux, s := newMux()
		defer func() { _ = s.Stop(context.Background()) }()

		Convey("When the theme is read, toggled and contrast switched", func() {
			initial := decode[theme.Presentation](do(mux, http.MethodGet, "/theme", ""))
			toggled := decode[theme.Presentation](do(mux, http.MethodPost, "/theme/toggle", ""))
			contrast := decode[theme.Presentation](do(mux, http.MethodPost, "/theme/contrast", ""))
			applied := decode[theme.Presentation](do(mux, http.MethodPost, "/theme", `{"mode":"dark"}`))

			Convey("Then each step is reflected", func() {
				So(initial.Mode, ShouldEqual, theme.Dark)
				So(toggled.Mode, ShouldEqual, theme.Light)
				So(toggled.Announcement, ShouldNotBeEmpty)
				So(contrast.Mode, ShouldEqual, theme.HighContrast)
				So(contrast.Primary, ShouldEqual, theme.Light)
				So(applied.Mode, ShouldEqual, theme.Dark)
				So(applied.HighContrast, ShouldBeFalse)
			})
		})

		Convey("When toggling with GET", func() {
			So(do(mux, http.MethodGet, "/theme/toggle", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}
