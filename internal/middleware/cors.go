package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowMethods  = "GET,POST,DELETE,OPTIONS"
	corsAllowHeaders  = "Content-Type, X-Requested-With, X-Request-Id"
	corsExposeHeaders = "X-Request-Id, Retry-After"
)

// CORS 只放行配置的前端来源，"*" 表示允许任意来源（不携带凭证）。
// 来源比较忽略大小写与末尾的 "/"；未放行来源的预检请求返回 403。
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newOriginPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			allowedOrigin := policy.resolve(origin)
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			switch {
			case allowedOrigin == "" && preflight:
				writeJSONError(w, http.StatusForbidden, "Origin not allowed")
				return
			case allowedOrigin == "":
				next.ServeHTTP(w, r)
				return
			}

			writeCORSHeaders(w, allowedOrigin)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{allowed: map[string]struct{}{}}
	for _, origin := range origins {
		value := normalizeOrigin(origin)
		switch value {
		case "":
		case "*":
			p.allowAll = true
		default:
			p.allowed[value] = struct{}{}
		}
	}
	return p
}

// resolve 返回应写入 Access-Control-Allow-Origin 的值，不放行时返回空串。
func (p originPolicy) resolve(origin string) string {
	if p.allowAll {
		return "*"
	}
	if _, ok := p.allowed[normalizeOrigin(origin)]; ok {
		return origin
	}
	return ""
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

func writeCORSHeaders(w http.ResponseWriter, origin string) {
	headers := w.Header()
	headers.Set("Access-Control-Allow-Origin", origin)
	headers.Set("Access-Control-Allow-Methods", corsAllowMethods)
	headers.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	headers.Set("Access-Control-Expose-Headers", corsExposeHeaders)
	headers.Set("Access-Control-Max-Age", "600")

	if origin != "*" {
		headers.Set("Access-Control-Allow-Credentials", "true")
	}
}
