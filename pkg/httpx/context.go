package httpx

import "context"

type ctxKey string

// CtxKeyPrincipal carries the authenticated username, set once per request
// by the authn middleware. Absent on public routes.
const CtxKeyPrincipal ctxKey = "principal"

// ContextWithPrincipal returns ctx carrying the authenticated principal.
func ContextWithPrincipal(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, CtxKeyPrincipal, username)
}

// PrincipalFromContext reads the authenticated principal for this request.
// ok is false on public (pass-through) requests.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyPrincipal).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
