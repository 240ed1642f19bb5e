package tenant

import "context"

// PublicSchema is the shared namespace holding the registry tables
const PublicSchema = "public"

type ctxKey struct{}

// WithNamespace returns a context carrying the tenant schema for one unit of
// work. The binding is immutable; derive a new context to change it. Nothing
// in this package ever stores the active schema in a package-level variable,
// so concurrent requests can never observe each other's binding.
func WithNamespace(ctx context.Context, schema string) context.Context {
	return context.WithValue(ctx, ctxKey{}, schema)
}

// NamespaceFrom returns the tenant schema bound to the context, if any
func NamespaceFrom(ctx context.Context) (string, bool) {
	schema, ok := ctx.Value(ctxKey{}).(string)
	return schema, ok
}
