package api_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/empathy/internal/adapters/http/api"
	"github.com/okian/empathy/internal/adapters/repository"
	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/nudge"
	"github.com/okian/empathy/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	loaded     bool
	table      types.RiskTable
	highRisk   []types.RiskRow
	options    types.FilterOptions
	history    types.EmployeeHistory
	nudges     types.EmployeeNudges
	err        error
	lastFilter repository.Filter
	lastID     string
	lastWeek   string
}

func (m *mockDependencies) Loaded() bool { return m.loaded }

func (m *mockDependencies) RiskTable(_ context.Context, f repository.Filter) (types.RiskTable, error) {
	m.lastFilter = f
	return m.table, m.err
}

func (m *mockDependencies) HighRiskRows(_ context.Context, f repository.Filter) (string, []types.RiskRow, error) {
	m.lastFilter = f
	return m.table.Week, m.highRisk, m.err
}

func (m *mockDependencies) Filters(context.Context) (types.FilterOptions, error) {
	return m.options, m.err
}

func (m *mockDependencies) History(_ context.Context, id string) (types.EmployeeHistory, error) {
	m.lastID = id
	return m.history, m.err
}

func (m *mockDependencies) Nudges(_ context.Context, id, week string) (types.EmployeeNudges, error) {
	m.lastID, m.lastWeek = id, week
	return m.nudges, m.err
}

func (m *mockDependencies) GetStats() map[string]interface{} {
	return map[string]interface{}{"loaded": m.loaded}
}

func newMux(deps *mockDependencies, maxLimit int) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, maxLimit).Register(context.Background(), mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	_ = json.NewDecoder(w.Body).Decode(&body)
	return body
}

func highRow(id string) types.RiskRow {
	return types.RiskRow{
		EmployeeID:     id,
		Role:           "Engineer",
		Team:           "Platform",
		Country:        "DE",
		WeekStartDate:  "2024-01-08",
		PredictedLabel: int(model.RiskHigh),
		ProbHigh:       0.8,
	}
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{loaded: true}
		mux := newMux(deps, 100)

		Convey("Then the health endpoint serves metrics", func() {
			w := get(mux, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint returns JSON", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"loaded":true`)
		})

		Convey("Then non-GET methods are not found", func() {
			req := httptest.NewRequest(http.MethodPost, "/records", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRecords(t *testing.T) {
	Convey("Given a loaded snapshot", t, func() {
		deps := &mockDependencies{
			loaded: true,
			table: types.RiskTable{
				Week: "2024-01-08",
				KPIs: types.KPIs{Employees: 2, HighRisk: 1},
				Rows: []types.RiskRow{highRow("e1")},
			},
			highRisk: []types.RiskRow{highRow("e1")},
			options: types.FilterOptions{
				Weeks:     []string{"2024-01-01", "2024-01-08"},
				Countries: []string{"DE"},
				Teams:     []string{"Platform"},
			},
		}
		mux := newMux(deps, 50)

		Convey("When requesting the table with filters", func() {
			w := get(mux, "/records?week=2024-01-08&country=DE,US&team=Platform&label=high&label=1&limit=10")

			Convey("Then the filter is parsed and the table returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastFilter.Week, ShouldEqual, "2024-01-08")
				So(deps.lastFilter.Countries, ShouldResemble, []string{"DE", "US"})
				So(deps.lastFilter.Teams, ShouldResemble, []string{"Platform"})
				So(deps.lastFilter.Labels, ShouldResemble, []model.RiskLabel{model.RiskHigh, model.RiskMedium})
				So(deps.lastFilter.Limit, ShouldEqual, 10)

				var table types.RiskTable
				So(json.NewDecoder(w.Body).Decode(&table), ShouldBeNil)
				So(table.Week, ShouldEqual, "2024-01-08")
				So(table.KPIs.Employees, ShouldEqual, 2)
				So(table.Rows, ShouldHaveLength, 1)
			})
		})

		Convey("When no limit is given", func() {
			w := get(mux, "/records")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastFilter.Limit, ShouldEqual, 50)
			So(deps.lastFilter.Week, ShouldEqual, "")
		})

		Convey("When the limit exceeds the maximum", func() {
			w := get(mux, "/records?limit=51")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When query values are malformed", func() {
			for _, target := range []string{
				"/records?limit=0",
				"/records?limit=abc",
				"/records?week=last-monday",
				"/records?label=critical",
				"/records?label=3",
			} {
				w := get(mux, target)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When the service fails", func() {
			deps.err = errors.New("boom")
			w := get(mux, "/records")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(w)["code"], ShouldEqual, "internal_error")
		})

		Convey("When exporting high-risk rows", func() {
			w := get(mux, "/records/high-risk.csv?country=DE&limit=1")

			Convey("Then a CSV attachment is written", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/csv; charset=utf-8")
				So(w.Header().Get("Content-Disposition"), ShouldEqual, `attachment; filename="high_risk_2024-01-08.csv"`)
				So(deps.lastFilter.Countries, ShouldResemble, []string{"DE"})

				lines, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
				So(err, ShouldBeNil)
				So(lines, ShouldHaveLength, 2)
				So(lines[0][0], ShouldEqual, "employee_id")
				So(lines[1][0], ShouldEqual, "e1")
			})
		})

		Convey("When listing filters", func() {
			w := get(mux, "/filters")
			So(w.Code, ShouldEqual, http.StatusOK)

			var opts types.FilterOptions
			So(json.NewDecoder(w.Body).Decode(&opts), ShouldBeNil)
			So(opts, ShouldResemble, deps.options)
		})
	})

	Convey("Given a snapshot that is not loaded yet", t, func() {
		mux := newMux(&mockDependencies{}, 50)

		Convey("Then read endpoints answer 503", func() {
			for _, target := range []string{"/records", "/records/high-risk.csv", "/filters", "/employees/e1/history"} {
				w := get(mux, target)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeError(w)["code"], ShouldEqual, "not_ready")
			}
		})
	})
}

func TestEmployees(t *testing.T) {
	Convey("Given a loaded snapshot", t, func() {
		deps := &mockDependencies{
			loaded: true,
			history: types.EmployeeHistory{
				EmployeeID: "e1",
				Found:      true,
				Points: []types.HistoryPoint{
					{WeekStartDate: "2024-01-01", ProbHigh: 0.2},
					{WeekStartDate: "2024-01-08", ProbHigh: 0.7},
				},
			},
			nudges: types.EmployeeNudges{
				EmployeeID: "e1",
				Week:       "2024-01-08",
				Found:      true,
				Snapshot:   &types.Snapshot{EmployeeID: "e1", ProbHigh: 0.7},
				Nudges:     []nudge.Message{{Kind: nudge.KindBoundary, Title: "Boundary Nudge"}},
			},
		}
		mux := newMux(deps, 50)

		Convey("When reading the history", func() {
			w := get(mux, "/employees/e1/history")

			Convey("Then the trend is returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastID, ShouldEqual, "e1")

				var h types.EmployeeHistory
				So(json.NewDecoder(w.Body).Decode(&h), ShouldBeNil)
				So(h.Points, ShouldHaveLength, 2)
				So(h.Points[1].WeekStartDate, ShouldEqual, "2024-01-08")
			})
		})

		Convey("When reading nudges for a week", func() {
			w := get(mux, "/employees/e1/nudges?week=2024-01-08")

			Convey("Then the snapshot and nudges are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastWeek, ShouldEqual, "2024-01-08")

				var n types.EmployeeNudges
				So(json.NewDecoder(w.Body).Decode(&n), ShouldBeNil)
				So(n.Found, ShouldBeTrue)
				So(n.Nudges[0].Kind, ShouldEqual, nudge.KindBoundary)
			})
		})

		Convey("When the employee has no record", func() {
			deps.nudges = types.EmployeeNudges{EmployeeID: "ghost", Week: "2024-01-08", Nudges: []nudge.Message{}}
			w := get(mux, "/employees/ghost/nudges")

			Convey("Then the empty state is a 200", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastWeek, ShouldEqual, "")
				So(w.Body.String(), ShouldContainSubstring, `"found":false`)
			})
		})

		Convey("When the path is malformed", func() {
			So(get(mux, "/employees/").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/employees/e1").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/employees/e1/history/extra").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/employees/e1/nudges?week=yesterday").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/employees/e1/unknown").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given API errors", t, func() {
		err := api.NewKind("api.op", api.ErrBadRequest)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.op: bad request")
		So(api.Wrap("api.op", nil), ShouldBeNil)
	})
}
