package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservedCreate(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewReservedHandler(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "public"\."reserved_handles" WHERE LOWER\(handle\) = \$1`).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "public"\."reserved_handles"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newScopedContext(http.MethodPost, "/admin/reserved-handles", `{"handle":"Admin","description":"platform"}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	// The stored handle is normalized to lowercase
	assert.Contains(t, rec.Body.String(), `"handle":"admin"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservedCreateConflict(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewReservedHandler(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "public"\."reserved_handles" WHERE LOWER\(handle\) = \$1`).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	c, rec := newScopedContext(http.MethodPost, "/admin/reserved-handles", `{"handle":"admin"}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservedCreateRejectsMalformedHandle(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewReservedHandler(db)

	c, rec := newScopedContext(http.MethodPost, "/admin/reserved-handles", `{"handle":"Not Valid!"}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservedDeleteNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewReservedHandler(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "public"\."reserved_handles" WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	c, rec := newScopedContext(http.MethodDelete, "/admin/reserved-handles/ghost", "")
	c.SetParamNames("id")
	c.SetParamValues("ghost")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservedList(t *testing.T) {
	db, mock := newMockDB(t)
	h := NewReservedHandler(db)

	mock.ExpectQuery(`SELECT \* FROM "public"\."reserved_handles" ORDER BY handle`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "handle", "description"}).
			AddRow("r-1", "admin", "platform").
			AddRow("r-2", "api", "gateway"))

	c, rec := newScopedContext(http.MethodGet, "/admin/reserved-handles", "")
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "api")
	assert.NoError(t, mock.ExpectationsWereMet())
}
