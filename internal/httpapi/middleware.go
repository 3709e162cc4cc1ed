package httpapi

import (
	"crypto/subtle"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"panelbot/internal/logging"
	"panelbot/web"
)

// tokenGate compares the token query parameter with the configured admin token.
type tokenGate struct {
	token string
}

func (g tokenGate) allowed(r *http.Request) bool {
	got := r.URL.Query().Get("token")
	if g.token == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(g.token)) == 1
}

func (g tokenGate) requirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.allowed(r) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Unauthorized: missing admin token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g tokenGate) requireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.allowed(r) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// staticAssets serves individual panel assets. Directory listings and the
// gated pages themselves are not served.
func staticAssets(pages fs.FS) http.Handler {
	files := http.FileServerFS(pages)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" || name == "." || name == web.AdminPage || name == web.UserPage {
			http.NotFound(w, r)
			return
		}

		if info, err := fs.Stat(pages, name); err == nil && info.IsDir() {
			http.NotFound(w, r)
			return
		}

		files.ServeHTTP(w, r)
	})
}

// requestLog returns an entry carrying the chi request id and event.
func requestLog(logger *logrus.Entry, r *http.Request, event string) *logrus.Entry {
	return logging.WithContext(logger, logging.Context{
		RequestID: middleware.GetReqID(r.Context()),
		Event:     event,
	})
}

// requestLogger logs one entry per request with its outcome.
func requestLogger(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			entry := requestLog(logger, r, "http_request").WithFields(logging.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"size":        ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			})

			if status >= http.StatusInternalServerError {
				entry.Warn("http request failed")
				return
			}
			entry.Debug("http request served")
		})
	}
}
