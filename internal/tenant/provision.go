package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workspace-service/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Provisioning states, in the order they are entered. The registry row is
// always the last write, so its absence is the only externally observable
// signal of "not yet provisioned".
const (
	StateValidating       = "VALIDATING"
	StateNamespaceCreated = "NAMESPACE_CREATED"
	StateTablesCreated    = "TABLES_CREATED"
	StateOwnerCreated     = "OWNER_CREATED"
	StateRegistered       = "REGISTERED"
)

// CredentialHasher is the security collaborator that turns a plaintext
// credential into an opaque hash before it ever reaches storage.
type CredentialHasher interface {
	Hash(plaintext string) (string, error)
}

// TokenIssuer issues a session token scoped to a workspace
type TokenIssuer interface {
	IssueToken(userID, email, role, workspace, schema string) (string, error)
}

// OnboardRequest carries the input for creating one workspace
type OnboardRequest struct {
	Email     string `json:"email"`
	OrgName   string `json:"org_name"`
	OwnerName string `json:"owner_name"`
	Handle    string `json:"handle"`
	Password  string `json:"password"`
	Status    string `json:"status,omitempty"`
	RagType   string `json:"rag_type,omitempty"`
}

// OnboardResult is returned on successful provisioning
type OnboardResult struct {
	Organization *model.Organization `json:"organization"`
	Owner        *model.User         `json:"owner"`
	Token        string              `json:"token"`
}

// Provisioner creates new workspaces: one schema, the full tenant-local table
// set, exactly one owner user, and the registry row, as a single
// failure-atomic unit.
type Provisioner struct {
	db     *gorm.DB
	hasher CredentialHasher
	tokens TokenIssuer
	log    *zap.Logger

	// Overridable in tests; defaults drive the GORM migrator.
	createTables func(tx *gorm.DB) error
	createOwner  func(tx *gorm.DB, owner *model.User) error
}

func NewProvisioner(db *gorm.DB, hasher CredentialHasher, tokens TokenIssuer, log *zap.Logger) *Provisioner {
	p := &Provisioner{db: db, hasher: hasher, tokens: tokens, log: log}
	p.createTables = func(tx *gorm.DB) error {
		return tx.AutoMigrate(model.TenantModels()...)
	}
	p.createOwner = func(tx *gorm.DB, owner *model.User) error {
		return tx.Create(owner).Error
	}
	return p
}

// NewSchemaName generates the physical schema name for a handle. The random
// suffix keeps the schema name unpredictable from the public handle and
// collision-resistant across deleted-and-recreated handles.
func NewSchemaName(handle string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strings.ReplaceAll(handle, "-", "_") + "_" + suffix
}

// Onboard runs the full provisioning sequence. Validation failures surface as
// *ValidationError with no side effects; storage failures roll the whole unit
// back, drop the schema if it outlived the transaction, and surface as an
// opaque *ProvisioningError.
func (p *Provisioner) Onboard(ctx context.Context, req OnboardRequest) (*OnboardResult, error) {
	state := StateValidating

	handle := strings.ToLower(strings.TrimSpace(req.Handle))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !ValidHandle(handle) {
		return nil, &ValidationError{Reason: fmt.Sprintf("handle %q is not a valid workspace handle", req.Handle)}
	}
	if email == "" || req.OrgName == "" || req.OwnerName == "" || req.Password == "" {
		return nil, &ValidationError{Reason: "email, org_name, owner_name and password are required"}
	}

	if err := p.validate(ctx, handle, email); err != nil {
		return nil, err
	}

	hashed, err := p.hasher.Hash(req.Password)
	if err != nil {
		return nil, &ProvisioningError{State: state, cause: err}
	}

	schemaName := NewSchemaName(handle)
	if !ValidSchemaName(schemaName) {
		return nil, &ProvisioningError{State: state, cause: fmt.Errorf("generated schema name %q is invalid", schemaName)}
	}

	status := model.OrgStatusActive
	if req.Status != "" {
		status = model.OrgStatus(strings.ToUpper(req.Status))
	}
	ragType := model.RagTypeBasic
	if req.RagType != "" {
		ragType = model.RagType(strings.ToUpper(req.RagType))
	}

	org := &model.Organization{
		Email:      email,
		Name:       req.OrgName,
		Handle:     handle,
		SchemaName: schemaName,
		Status:     status,
		RagType:    ragType,
	}
	owner := &model.User{
		Name:     req.OwnerName,
		Email:    email,
		Password: hashed,
		Role:     model.RoleAdmin,
		IsOwner:  true,
	}

	schemaCreated := false

	txErr := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check conflicts inside the transaction so two concurrent
		// onboardings for the same handle cannot both pass validation.
		if err := p.validateTx(tx, handle, email); err != nil {
			return err
		}

		// IF NOT EXISTS: the schema name is system-generated, so an existing
		// schema means a prior compensating drop did not finish. Treated as
		// success, never leaked to the caller.
		if err := tx.Exec(`CREATE SCHEMA IF NOT EXISTS ` + QuoteIdent(schemaName)).Error; err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
		schemaCreated = true
		state = StateNamespaceCreated

		if err := tx.Exec(`SET search_path TO ` + QuoteIdent(schemaName)).Error; err != nil {
			return fmt.Errorf("binding search_path: %w", err)
		}

		if err := p.createTables(tx); err != nil {
			return fmt.Errorf("creating tenant tables: %w", err)
		}
		state = StateTablesCreated

		if err := p.createOwner(tx, owner); err != nil {
			return fmt.Errorf("creating owner user: %w", err)
		}
		state = StateOwnerCreated

		if err := tx.Exec(`SET search_path TO ` + QuoteIdent(PublicSchema)).Error; err != nil {
			return fmt.Errorf("resetting search_path: %w", err)
		}

		// Registry row last: once this commits the workspace is resolvable.
		if err := tx.Create(org).Error; err != nil {
			return fmt.Errorf("registering workspace: %w", err)
		}
		state = StateRegistered
		return nil
	})

	if txErr != nil {
		var verr *ValidationError
		if errors.As(txErr, &verr) {
			return nil, verr
		}

		// Postgres DDL is transactional, so the rollback already removed the
		// schema. The compensating drop covers the case where schema creation
		// escaped the transaction (e.g. a non-transactional storage engine).
		if schemaCreated {
			p.dropSchema(schemaName)
		}

		p.log.Error("workspace provisioning failed",
			zap.String("handle", handle),
			zap.String("state", state),
			zap.Error(txErr))
		return nil, &ProvisioningError{State: state, cause: txErr}
	}

	token, err := p.tokens.IssueToken(owner.ID, owner.Email, owner.Role, org.Handle, org.SchemaName)
	if err != nil {
		// The workspace exists and is consistent; the owner can still log in.
		p.log.Warn("workspace provisioned but token issuance failed",
			zap.String("handle", handle), zap.Error(err))
	}

	p.log.Info("workspace provisioned",
		zap.String("handle", org.Handle),
		zap.String("org_id", org.ID),
		zap.String("owner_id", owner.ID))

	return &OnboardResult{Organization: org, Owner: owner, Token: token}, nil
}

// validate performs the pre-transaction conflict checks (cheap fail-fast);
// validateTx repeats them on the transaction connection for atomicity.
func (p *Provisioner) validate(ctx context.Context, handle, email string) error {
	return p.validateTx(p.db.WithContext(ctx), handle, email)
}

func (p *Provisioner) validateTx(tx *gorm.DB, handle, email string) error {
	var reserved int64
	if err := tx.Model(&model.ReservedHandle{}).
		Where("LOWER(handle) = ?", handle).
		Count(&reserved).Error; err != nil {
		return fmt.Errorf("checking reserved handles: %w", err)
	}
	if reserved > 0 {
		return &ValidationError{Reason: fmt.Sprintf("handle %q is reserved", handle)}
	}

	var existing int64
	if err := tx.Model(&model.Organization{}).
		Where("LOWER(email) = ? OR handle = ?", email, handle).
		Count(&existing).Error; err != nil {
		return fmt.Errorf("checking existing workspaces: %w", err)
	}
	if existing > 0 {
		return &ValidationError{Reason: "a workspace with this email or handle already exists"}
	}

	return nil
}

// dropSchema is the compensating action for a schema that outlived a failed
// provisioning transaction. Best effort: a leftover empty schema is invisible
// to resolution (no registry row) and harmless.
func (p *Provisioner) dropSchema(schemaName string) {
	if !ValidSchemaName(schemaName) {
		return
	}
	if err := p.db.Exec(`DROP SCHEMA IF EXISTS ` + QuoteIdent(schemaName) + ` CASCADE`).Error; err != nil {
		p.log.Error("compensating schema drop failed",
			zap.String("schema", schemaName), zap.Error(err))
	}
}
