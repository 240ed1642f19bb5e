package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"workspace-service/internal/tenant"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSchema = "acme_1a2b3c4d"

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

// newScopedContext builds an echo context the way the tenant resolver leaves
// it: schema bound on the request context.
func newScopedContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req = req.WithContext(tenant.WithNamespace(req.Context(), testSchema))

	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// expectScopeEnter/expectScopeExit bracket the expectations of one scoped
// unit of work.
func expectScopeEnter(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`SET search_path TO "` + testSchema + `"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectScopeExit(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`SET search_path TO "public"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
}
