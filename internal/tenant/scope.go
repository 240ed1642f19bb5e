package tenant

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Scope is the schema-scoped data access factory. Every tenant-scoped unit of
// work runs through Run, which pins the work to a single pooled connection,
// binds that connection's search_path to the tenant schema, and resets it to
// public before the connection goes back to the pool. The reset is the one
// invariant that must never be skipped: a connection returned to the pool
// while still bound to a tenant schema would leak that tenant's data into
// whichever request borrows the connection next.
type Scope struct {
	db *gorm.DB
}

func NewScope(db *gorm.DB) *Scope {
	return &Scope{db: db}
}

// Run executes fn with every unqualified table reference bound to schema.
// Shared models keep their public-qualified names, so registry reads inside
// fn still target the shared schema. Repeated Run calls with the same schema
// target the same physical tables even when the pool hands out different
// connections.
func (s *Scope) Run(ctx context.Context, schema string, fn func(tx *gorm.DB) error) error {
	if !ValidSchemaName(schema) {
		return fmt.Errorf("invalid tenant schema name %q", schema)
	}

	return s.db.WithContext(ctx).Connection(func(tx *gorm.DB) (err error) {
		if execErr := tx.Exec(`SET search_path TO ` + QuoteIdent(schema)).Error; execErr != nil {
			return fmt.Errorf("binding search_path to %s: %w", schema, execErr)
		}

		// The reset must reach the connection before it goes back to the
		// pool no matter how fn exits: deferred so it survives a panic, and
		// on a detached context so a request cancelled mid-flight cannot
		// cancel the reset with it.
		defer func() {
			detached := tx.WithContext(context.WithoutCancel(ctx))
			if resetErr := detached.Exec(`SET search_path TO ` + QuoteIdent(PublicSchema)).Error; resetErr != nil {
				if err != nil {
					err = fmt.Errorf("resetting search_path after error %v: %w", err, resetErr)
				} else {
					err = fmt.Errorf("resetting search_path: %w", resetErr)
				}
			}
		}()

		return fn(tx)
	})
}

// RunCurrent is Run with the schema taken from the tenant context
func (s *Scope) RunCurrent(ctx context.Context, fn func(tx *gorm.DB) error) error {
	schema, ok := NamespaceFrom(ctx)
	if !ok {
		return ErrNamespaceNotBound
	}
	return s.Run(ctx, schema, fn)
}

// Handle returns a query builder for a tenant-local entity within a scoped
// unit of work. Passing a shared-schema model is a programming defect, not a
// runtime condition: the qualified table name would silently escape the
// tenant schema, so it panics instead.
func Handle(tx *gorm.DB, entity interface{}) *gorm.DB {
	if tabler, ok := entity.(interface{ TableName() string }); ok {
		if strings.Contains(tabler.TableName(), ".") {
			panic(fmt.Sprintf("tenant: %T is a shared-schema model and has no tenant-local table", entity))
		}
	}
	return tx.Model(entity)
}

// QuoteIdent double-quotes a Postgres identifier
func QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
