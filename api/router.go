// Package api serves the F1 data endpoints over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vainnor/f1-stats/config"
	"github.com/vainnor/f1-stats/services/ergast"
	"github.com/vainnor/f1-stats/session"
	"github.com/vainnor/f1-stats/table"
	"github.com/vainnor/f1-stats/types"
	"github.com/vainnor/f1-stats/workers"
)

type SessionLoader interface {
	Load(ctx context.Context, req session.Request) (*session.Session, error)
}

// SeasonSource serves season-level tables.
type SeasonSource interface {
	Schedule(ctx context.Context, year int) ([]ergast.Event, error)
	DriverStandings(ctx context.Context, year int) (table.Table, error)
	ConstructorStandings(ctx context.Context, year int) (table.Table, error)
	Drivers(ctx context.Context, year int) (table.Table, error)
	Constructors(ctx context.Context, year int) (table.Table, error)
}

type CacheInspector interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (types.CacheStats, error)
}

// Deps are the collaborators of the API. Cache may be nil.
type Deps struct {
	Loader  SessionLoader
	Season  SeasonSource
	Cache   CacheInspector
	Pool    *workers.Pool
	Config  config.Config
	Logger  *slog.Logger
	Version string
}

type server struct {
	Deps
}

type handlerFunc func(r *http.Request) (any, error)

func (s *server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h(r)
		if err != nil {
			writeError(w, r, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// NewRouter creates the router with every API endpoint registered.
func NewRouter(d Deps) *mux.Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Pool == nil {
		d.Pool = workers.New(d.Config.Workers)
	}
	s := &server{Deps: d}
	r := mux.NewRouter()

	r.HandleFunc("/", s.handle(s.root)).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handle(s.health)).Methods(http.MethodGet)
	r.HandleFunc("/routes", s.handle(routeList(r))).Methods(http.MethodGet)

	r.HandleFunc("/schedule/{year}", s.handle(s.schedule)).Methods(http.MethodGet)
	r.HandleFunc("/standings/drivers/{year}", s.handle(s.driverStandings)).Methods(http.MethodGet)
	r.HandleFunc("/standings/constructors/{year}", s.handle(s.constructorStandings)).Methods(http.MethodGet)
	r.HandleFunc("/drivers/{year}", s.handle(s.drivers)).Methods(http.MethodGet)
	r.HandleFunc("/constructors/{year}", s.handle(s.constructors)).Methods(http.MethodGet)

	sess := r.PathPrefix("/session/{year}/{gp}/{sessionType}").Subrouter()
	sess.HandleFunc("/results", s.handle(s.results)).Methods(http.MethodGet)
	sess.HandleFunc("/laps", s.handle(s.laps)).Methods(http.MethodGet)
	sess.HandleFunc("/telemetry/{driver}", s.handle(s.telemetry)).Methods(http.MethodGet)
	sess.HandleFunc("/weather", s.handle(s.weather)).Methods(http.MethodGet)
	sess.HandleFunc("/messages", s.handle(s.messages)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Not Found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Detail: "Method Not Allowed"})
	})
	return r
}

// NewHandler wraps the router in the middleware chain. CORS sits outside
// the router so preflight requests never reach the GET-only routes.
func NewHandler(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	var h http.Handler = NewRouter(d)
	if d.Config.RateLimit > 0 {
		h = NewRateLimiter(d.Config.RateLimit, d.Config.RateLimitWindow, d.Config.RateLimitExempt).Middleware(h)
	}
	h = CORS(d.Config.CORSOrigins)(h)
	h = Recover(d.Logger)(h)
	return RequestLogger(d.Logger)(h)
}

type routeInfo struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

func routeList(router *mux.Router) handlerFunc {
	return func(*http.Request) (any, error) {
		routes := []routeInfo{}
		err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
			path, err := route.GetPathTemplate()
			if err != nil {
				return nil
			}
			methods, err := route.GetMethods()
			if err != nil {
				return nil
			}
			routes = append(routes, routeInfo{Path: path, Methods: methods})
			return nil
		})
		if err != nil {
			return nil, Internal(err)
		}
		return routes, nil
	}
}
