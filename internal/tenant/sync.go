package tenant

import (
	"context"
	"fmt"

	"workspace-service/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SyncReport is the per-workspace outcome of a sync run
type SyncReport struct {
	Handle  string   `json:"handle"`
	Schema  string   `json:"schema"`
	Created []string `json:"created_tables,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Syncer retrofits existing tenant schemas after the tenant-local entity set
// gains a table. It only ever creates missing tables; existing tables are
// never altered or dropped.
type Syncer struct {
	db  *gorm.DB
	log *zap.Logger

	// Overridable in tests; defaults drive the GORM migrator.
	hasTable    func(tx *gorm.DB, m interface{}) bool
	createTable func(tx *gorm.DB, m interface{}) error
}

func NewSyncer(db *gorm.DB, log *zap.Logger) *Syncer {
	return &Syncer{
		db:  db,
		log: log,
		hasTable: func(tx *gorm.DB, m interface{}) bool {
			return tx.Migrator().HasTable(m)
		},
		createTable: func(tx *gorm.DB, m interface{}) error {
			return tx.Migrator().CreateTable(m)
		},
	}
}

// SyncAll brings every ACTIVE workspace schema up to the current table set.
// Idempotent: a second run with no schema changes creates nothing. One
// workspace failing never aborts the others; each gets its own report entry.
func (s *Syncer) SyncAll(ctx context.Context) ([]SyncReport, error) {
	var orgs []model.Organization
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.OrgStatusActive).
		Order("handle").
		Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}

	reports := make([]SyncReport, 0, len(orgs))
	for _, org := range orgs {
		report := SyncReport{Handle: org.Handle, Schema: org.SchemaName}
		if err := s.syncOne(ctx, org.SchemaName, &report); err != nil {
			report.Error = err.Error()
			s.log.Error("workspace sync failed",
				zap.String("handle", org.Handle),
				zap.String("schema", org.SchemaName),
				zap.Error(err))
		} else if len(report.Created) > 0 {
			s.log.Info("workspace schema updated",
				zap.String("handle", org.Handle),
				zap.Strings("created", report.Created))
		}
		reports = append(reports, report)
	}

	return reports, nil
}

func (s *Syncer) syncOne(ctx context.Context, schema string, report *SyncReport) error {
	if !ValidSchemaName(schema) {
		return fmt.Errorf("invalid schema name %q", schema)
	}

	return s.db.WithContext(ctx).Connection(func(tx *gorm.DB) (err error) {
		if execErr := tx.Exec(`SET search_path TO ` + QuoteIdent(schema)).Error; execErr != nil {
			return fmt.Errorf("binding search_path: %w", execErr)
		}

		// Deferred on a detached context: the connection must be reset before
		// release even when the migrator panics or the run is cancelled.
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

		for _, m := range model.TenantModels() {
			if s.hasTable(tx, m) {
				continue
			}
			if cerr := s.createTable(tx, m); cerr != nil {
				return fmt.Errorf("creating table for %T: %w", m, cerr)
			}
			if tabler, ok := m.(interface{ TableName() string }); ok {
				report.Created = append(report.Created, tabler.TableName())
			}
		}

		return nil
	})
}
