package auth

import "context"

type contextKey string

const identityContextKey contextKey = "admin_identity"

// Identity — аутентифицированный пользователь админки.
// Perms — права вида "book.add", "book.change", "book.delete", "book.view";
// "*" и "<model>.*" — означают полный доступ.
type Identity struct {
	UserID string
	Perms  []string
}

// Anonymous используется, когда аутентификация выключена конфигом.
func Anonymous() *Identity {
	return &Identity{UserID: "", Perms: []string{"*"}}
}

// HasPerm проверяет право на действие над моделью.
func (id *Identity) HasPerm(model, action string) bool {
	want := model + "." + action
	for _, p := range id.Perms {
		if p == "*" || p == model+".*" || p == want {
			return true
		}
	}
	return false
}

func identityFromClaims(claims map[string]any) *Identity {
	id := &Identity{}
	if sub, ok := claims["sub"].(string); ok {
		id.UserID = sub
	}
	switch perms := claims["perms"].(type) {
	case []any:
		for _, p := range perms {
			if s, ok := p.(string); ok {
				id.Perms = append(id.Perms, s)
			}
		}
	case []string:
		id.Perms = perms
	case string:
		if perms != "" {
			id.Perms = []string{perms}
		}
	}
	return id
}

// WithIdentity кладёт Identity в контекст запроса.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext достаёт Identity; при выключенной аутентификации
// middleware кладёт Anonymous, так что ok=false означает ошибку программиста.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok
}
