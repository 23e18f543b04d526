package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/perfmetrics/perfmetrics"
)

// RouteMiddleware instruments every request matched by a gorilla/mux
// router, see InstrumentHandler. The stat is prefix followed by the route
// name or, for unnamed routes, by the path template with '/' turned into
// '.' and variable patterns dropped: "/users/{id:[0-9]+}" becomes
// "users.id".
func RouteMiddleware(m *perfmetrics.Metric, prefix string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			InstrumentHandler(m, prefix+routeStat(mux.CurrentRoute(r)), next).ServeHTTP(w, r)
		})
	}
}

func routeStat(route *mux.Route) string {
	if route == nil {
		return "unmatched"
	}
	if name := route.GetName(); name != "" {
		return name
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unknown"
	}
	var segments []string
	for _, s := range strings.Split(tpl, "/") {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			s = s[1 : len(s)-1]
			if i := strings.IndexByte(s, ':'); i >= 0 {
				s = s[:i]
			}
		}
		if s = strings.Map(sanitize, s); s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return "root"
	}
	return strings.Join(segments, ".")
}

func sanitize(r rune) rune {
	if r < 0x21 || r > 0x7e || r == ':' || r == '|' || r == '.' {
		return '_'
	}
	return r
}
