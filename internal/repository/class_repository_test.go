package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartattend/api/internal/models"
)

func TestFindClassByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "code", "teacher_id", "department", "created_at"}).
		AddRow("c1", "Algorithms", "CSE101", "t1", "CSE", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, code, teacher_id, department, created_at FROM classes WHERE UPPER(code) = UPPER($1) LIMIT 1")).
		WithArgs("cse101").
		WillReturnRows(rows)

	class, err := repo.FindByCode(context.Background(), "cse101")
	require.NoError(t, err)
	assert.Equal(t, "CSE101", class.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindClassByCodeNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, code, teacher_id, department, created_at FROM classes WHERE UPPER(code) = UPPER($1) LIMIT 1")).
		WithArgs("NOPE").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO class_students").
		WillReturnResult(sqlmock.NewResult(0, 1))
	inserted, err := repo.Enroll(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.True(t, inserted)

	mock.ExpectExec("INSERT INTO class_students").
		WillReturnResult(sqlmock.NewResult(0, 0))
	inserted, err = repo.Enroll(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsEnrolled(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM class_students WHERE class_id = $1 AND student_id = $2)")).
		WithArgs("c1", "s1").
		WillReturnRows(rows)

	enrolled, err := repo.IsEnrolled(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.True(t, enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateClass(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(1, 1))

	teacherID := "t1"
	class := &models.Class{Name: "Algorithms", Code: "CSE101", TeacherID: &teacherID}
	err := repo.Create(context.Background(), class)
	require.NoError(t, err)
	assert.NotEmpty(t, class.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsetTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET teacher_id = NULL WHERE teacher_id = $1")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.UnsetTeacher(context.Background(), "t1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
