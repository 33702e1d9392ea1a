// Package middleware holds HTTP middleware that depends on platform
// services (i18n, metrics).
package middleware

import (
	"net/http"

	"civitas/internal/platform/i18n"
	"civitas/pkg/requestcontext"
)

// Locale negotiates the response language from Accept-Language.
func Locale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := i18n.Negotiate(r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", tag.String())
		next.ServeHTTP(w, r.WithContext(requestcontext.WithLocale(r.Context(), tag.String())))
	})
}
