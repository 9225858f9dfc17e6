package router

import (
	"net/http"
	"strings"

	"YadminAPI/internal/auth"
	"YadminAPI/internal/config"
	"YadminAPI/internal/handler"
	"YadminAPI/internal/logger"
)

// InitRoutes регистрирует REST-поверхность админки на DefaultServeMux.
// Паттерны используют method+wildcard синтаксис stdlib-мультиплексора.
func InitRoutes(cfg *config.Config) error {
	var validator *auth.Validator
	if cfg.Auth.Enabled {
		v, err := auth.NewValidator(cfg.Auth.JWT)
		if err != nil {
			return err
		}
		validator = v
	}

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return withCORS(cfg.CORS.AllowOrigin, cfg.CORS.AllowCredentials,
			withLogging(withAuth(validator, h)))
	}

	http.HandleFunc("GET /api/{model}/list/", wrap(handler.ListHandler))
	http.HandleFunc("GET /api/{model}/changelist/", wrap(handler.ChangelistHandler))
	http.HandleFunc("GET /api/{model}/add/", wrap(handler.AddHandler))
	http.HandleFunc("POST /api/{model}/add/", wrap(handler.AddHandler))
	http.HandleFunc("GET /api/{model}/{id}/change/", wrap(handler.ChangeHandler))
	http.HandleFunc("PUT /api/{model}/{id}/change/", wrap(handler.ChangeHandler))
	http.HandleFunc("PATCH /api/{model}/{id}/change/", wrap(handler.ChangeHandler))
	http.HandleFunc("POST /api/{model}/{id}/delete/", wrap(handler.DeleteHandler))
	http.HandleFunc("DELETE /api/{model}/{id}/delete/", wrap(handler.DeleteHandler))
	http.HandleFunc("GET /api/{model}/{id}/history/", wrap(handler.HistoryHandler))
	http.HandleFunc("GET /api/{model}/autocomplete/", wrap(handler.AutocompleteHandler))
	http.HandleFunc("POST /api/{model}/perform_action/", wrap(handler.ActionHandler))
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		fields := map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": sw.status,
		}
		switch {
		case sw.status >= 500:
			logger.Error("response", fields)
		case sw.status >= 400:
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	}
}

// withAuth валидирует bearer-токен и кладёт Identity в контекст.
// При nil-валидаторе (аутентификация выключена) все запросы анонимны
// с полным доступом.
func withAuth(v *auth.Validator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v == nil {
			next(w, r.WithContext(auth.WithIdentity(r.Context(), auth.Anonymous())))
			return
		}
		raw := r.Header.Get("Authorization")
		if !strings.HasPrefix(raw, "Bearer ") {
			logger.Warn("auth_missing_token", map[string]any{"path": r.URL.Path})
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		ident, err := v.ValidateToken(strings.TrimPrefix(raw, "Bearer "))
		if err != nil {
			logger.Warn("auth_invalid_token", map[string]any{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(auth.WithIdentity(r.Context(), ident)))
	}
}
