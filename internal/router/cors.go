package router

import (
	"net/http"
	"strings"
)

// corsPolicy хранит разобранный список разрешённых origin-ов.
// Список фиксирован на всё время жизни роутера, поэтому CSV парсится один раз.
type corsPolicy struct {
	allowed     map[string]struct{}
	wildcard    bool
	credentials bool
}

func newCORSPolicy(allowOrigin string, allowCredentials bool) corsPolicy {
	p := corsPolicy{allowed: map[string]struct{}{}, credentials: allowCredentials}
	for _, part := range strings.Split(allowOrigin, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
		case "*":
			p.wildcard = true
		default:
			p.allowed[part] = struct{}{}
		}
	}
	// пустая настройка равносильна "*"
	if !p.wildcard && len(p.allowed) == 0 {
		p.wildcard = true
	}
	return p
}

// allowOriginValue возвращает значение Access-Control-Allow-Origin и признак
// необходимости Vary: Origin. Пустое значение — origin не разрешён.
func (p corsPolicy) allowOriginValue(requestOrigin string) (string, bool) {
	if p.wildcard {
		// с credentials нельзя отдавать "*", эхоим конкретный origin
		if p.credentials && requestOrigin != "" {
			return requestOrigin, true
		}
		return "*", false
	}
	if _, ok := p.allowed[requestOrigin]; ok {
		return requestOrigin, true
	}
	return "", true
}

// withCORS добавляет CORS-заголовки и отвечает на preflight-запросы.
func withCORS(allowOrigin string, allowCredentials bool, h http.HandlerFunc) http.HandlerFunc {
	policy := newCORSPolicy(allowOrigin, allowCredentials)
	return func(w http.ResponseWriter, r *http.Request) {
		value, vary := policy.allowOriginValue(r.Header.Get("Origin"))
		if value != "" {
			w.Header().Set("Access-Control-Allow-Origin", value)
		}
		if vary {
			w.Header().Set("Vary", "Origin")
		}
		if policy.credentials {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		h(w, r)
	}
}
