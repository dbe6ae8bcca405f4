package mid

import (
	"context"
	"expvar"
	"net/http"
	"runtime"

	"github.com/rsl37/GLX-Systems-Network-sub008/foundation/web"
)

// m contains the expvar counters the middleware maintains.
var m = struct {
	gr  *expvar.Int
	req *expvar.Int
	err *expvar.Int
}{
	gr:  expvar.NewInt("goroutines"),
	req: expvar.NewInt("requests"),
	err: expvar.NewInt("errors"),
}

// Metrics updates program counters exposed on the debug mux.
func Metrics() web.Middleware {

	mw := func(handler web.Handler) web.Handler {

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)

			m.req.Add(1)
			if m.req.Value()%100 == 0 {
				m.gr.Set(int64(runtime.NumGoroutine()))
			}

			if err != nil {
				m.err.Add(1)
			}

			return err
		}

		return h
	}

	return mw
}
