// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"time"
)

// Recovery turns a handler panic into a 500 envelope. Streams that already
// sent their headers are closed instead.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}
			log.Printf("[CRITICAL] panic in %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())

			if rw, ok := w.(*responseWriter); ok && rw.wroteHeader {
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{
					"code":    "INTERNAL_ERROR",
					"message": "Internal server error",
				},
				"meta": map[string]time.Time{"timestamp": time.Now()},
			})
		}()

		next.ServeHTTP(w, r)
	})
}
