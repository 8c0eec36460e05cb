package httpinterface

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			log.WithFields(log.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"status":     ww.Status(),
				"latency":    time.Since(start),
			}).Debugf("%s %s", r.Method, r.URL.Path)
		}()

		next.ServeHTTP(ww, r)
	})
}
