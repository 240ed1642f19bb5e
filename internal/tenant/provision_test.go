package tenant

import (
	"context"
	"errors"
	"testing"

	"workspace-service/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

type fakeIssuer struct {
	err error
}

func (f fakeIssuer) IssueToken(userID, email, role, workspace, schema string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-for-" + workspace, nil
}

func validRequest() OnboardRequest {
	return OnboardRequest{
		Email:     "owner@acme.test",
		OrgName:   "Acme Corp",
		OwnerName: "Ada Owner",
		Handle:    "acme-corp",
		Password:  "s3cret",
	}
}

func expectConflictChecks(mock sqlmock.Sqlmock, reserved, existing int64) {
	mock.ExpectQuery(`SELECT count\(\*\) FROM "public"\."reserved_handles"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(reserved))
	if reserved == 0 {
		mock.ExpectQuery(`SELECT count\(\*\) FROM "public"\."organizations"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(existing))
	}
}

func TestOnboardRejectsMalformedInput(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewProvisioner(db, fakeHasher{}, fakeIssuer{}, zap.NewNop())

	cases := []struct {
		name string
		mut  func(r *OnboardRequest)
	}{
		{"invalid handle", func(r *OnboardRequest) { r.Handle = "Not_A_Handle!" }},
		{"empty handle", func(r *OnboardRequest) { r.Handle = "" }},
		{"missing email", func(r *OnboardRequest) { r.Email = "" }},
		{"missing org name", func(r *OnboardRequest) { r.OrgName = "" }},
		{"missing owner name", func(r *OnboardRequest) { r.OwnerName = "" }},
		{"missing password", func(r *OnboardRequest) { r.Password = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mut(&req)

			result, err := p.Onboard(context.Background(), req)

			assert.Nil(t, result)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}

	// Malformed input never touches the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnboardRejectsReservedHandle(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewProvisioner(db, fakeHasher{}, fakeIssuer{}, zap.NewNop())

	expectConflictChecks(mock, 1, 0)

	result, err := p.Onboard(context.Background(), validRequest())

	assert.Nil(t, result)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "reserved")

	// The rejection happened before any write
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnboardRejectsDuplicateWorkspace(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewProvisioner(db, fakeHasher{}, fakeIssuer{}, zap.NewNop())

	expectConflictChecks(mock, 0, 1)

	result, err := p.Onboard(context.Background(), validRequest())

	assert.Nil(t, result)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "already exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnboardRegistersWorkspaceLast(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewProvisioner(db, fakeHasher{}, fakeIssuer{}, zap.NewNop())

	tablesCreated := false
	var ownerSeen *model.User
	p.createTables = func(tx *gorm.DB) error {
		tablesCreated = true
		return nil
	}
	p.createOwner = func(tx *gorm.DB, owner *model.User) error {
		owner.ID = "owner-1"
		ownerSeen = owner
		return nil
	}

	// Pre-transaction conflict checks
	expectConflictChecks(mock, 0, 0)

	// Expectations are ordered: the registry insert must come after every
	// schema-side step and the search_path reset.
	mock.ExpectBegin()
	expectConflictChecks(mock, 0, 0)
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "acme_corp_[0-9a-f]{8}"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET search_path TO "acme_corp_[0-9a-f]{8}"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET search_path TO "public"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "public"\."organizations"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := p.Onboard(context.Background(), validRequest())

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, tablesCreated)

	assert.Equal(t, "acme-corp", result.Organization.Handle)
	assert.Equal(t, model.OrgStatusActive, result.Organization.Status)
	assert.Equal(t, model.RagTypeBasic, result.Organization.RagType)
	assert.True(t, ValidSchemaName(result.Organization.SchemaName))
	assert.NotEqual(t, "acme-corp", result.Organization.SchemaName)

	require.NotNil(t, ownerSeen)
	assert.Equal(t, "owner@acme.test", ownerSeen.Email)
	assert.Equal(t, "hashed:s3cret", ownerSeen.Password)
	assert.Equal(t, model.RoleAdmin, ownerSeen.Role)
	assert.True(t, ownerSeen.IsOwner)

	assert.Equal(t, "token-for-acme-corp", result.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnboardRollsBackOnTableCreationFailure(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewProvisioner(db, fakeHasher{}, fakeIssuer{}, zap.NewNop())

	p.createTables = func(tx *gorm.DB) error {
		return errors.New("disk full")
	}

	expectConflictChecks(mock, 0, 0)

	mock.ExpectBegin()
	expectConflictChecks(mock, 0, 0)
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "acme_corp_[0-9a-f]{8}"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET search_path TO "acme_corp_[0-9a-f]{8}"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	// Compensating drop after the rollback
	mock.ExpectExec(`DROP SCHEMA IF EXISTS "acme_corp_[0-9a-f]{8}" CASCADE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	result, err := p.Onboard(context.Background(), validRequest())

	assert.Nil(t, result)
	var perr *ProvisioningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StateNamespaceCreated, perr.State)

	// The client-facing message never carries the storage failure
	assert.Equal(t, "workspace provisioning failed", err.Error())
	assert.Contains(t, errors.Unwrap(perr).Error(), "disk full")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnboardRollsBackOnOwnerCreationFailure(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewProvisioner(db, fakeHasher{}, fakeIssuer{}, zap.NewNop())

	p.createTables = func(tx *gorm.DB) error { return nil }
	p.createOwner = func(tx *gorm.DB, owner *model.User) error {
		return errors.New("constraint violation")
	}

	expectConflictChecks(mock, 0, 0)

	mock.ExpectBegin()
	expectConflictChecks(mock, 0, 0)
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "acme_corp_[0-9a-f]{8}"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET search_path TO "acme_corp_[0-9a-f]{8}"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.ExpectExec(`DROP SCHEMA IF EXISTS "acme_corp_[0-9a-f]{8}" CASCADE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	result, err := p.Onboard(context.Background(), validRequest())

	assert.Nil(t, result)
	var perr *ProvisioningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StateTablesCreated, perr.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnboardSurvivesTokenIssuanceFailure(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewProvisioner(db, fakeHasher{}, fakeIssuer{err: errors.New("signing key missing")}, zap.NewNop())

	p.createTables = func(tx *gorm.DB) error { return nil }
	p.createOwner = func(tx *gorm.DB, owner *model.User) error {
		owner.ID = "owner-1"
		return nil
	}

	expectConflictChecks(mock, 0, 0)
	mock.ExpectBegin()
	expectConflictChecks(mock, 0, 0)
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET search_path TO "acme_corp_[0-9a-f]{8}"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET search_path TO "public"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "public"\."organizations"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := p.Onboard(context.Background(), validRequest())

	// The workspace exists; only the convenience token is missing
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnboardNormalizesHandleAndEmail(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewProvisioner(db, fakeHasher{}, fakeIssuer{}, zap.NewNop())

	p.createTables = func(tx *gorm.DB) error { return nil }
	p.createOwner = func(tx *gorm.DB, owner *model.User) error { return nil }

	expectConflictChecks(mock, 0, 0)
	mock.ExpectBegin()
	expectConflictChecks(mock, 0, 0)
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET search_path TO`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET search_path TO "public"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "public"\."organizations"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := validRequest()
	req.Handle = "  acme-corp  "
	req.Email = "Owner@Acme.Test"

	result, err := p.Onboard(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "acme-corp", result.Organization.Handle)
	assert.Equal(t, "owner@acme.test", result.Organization.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
