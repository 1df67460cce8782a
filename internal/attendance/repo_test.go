package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipkl/internal/pkl"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func alphaRecord(studentID, name string) pkl.AttendanceRecord {
	rec := pkl.NewRecord(pkl.Student{
		ID: studentID, Name: name, Class: "XII TKJ", CompanyID: "D1", CompanyName: "PT Maju",
		TeacherID: "G1", TeacherName: "Pak Andi",
	}, "2026-10-19", pkl.StatusAlpha)
	rec.Note = "auto"
	rec.Time = "15:30:00"
	return rec
}

func TestRepositoryListStudents(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "name", "class_name", "school_year", "company_id", "company_name", "teacher_id", "teacher_name"}).
		AddRow("S1", "Ani", "XII RPL", "2025/2026", "D1", "PT Maju", "G1", "Pak Andi").
		AddRow("S2", "Budi", "XII RPL", "2025/2026", "D2", "CV Jaya", "G1", "Pak Andi")
	mock.ExpectQuery("SELECT (.+) FROM students").WillReturnRows(rows)

	students, err := repo.ListStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Budi", students[1].Name)
	assert.Equal(t, "CV Jaya", students[1].CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAttendanceStudentIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT student_id FROM attendance").
		WithArgs("2026-10-19").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("S1").AddRow("S3"))

	ids, err := repo.AttendanceStudentIDs(context.Background(), "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S3"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertManyCountsOnlyWrittenRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO attendance")
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "S2", "Siti", "XII TKJ", "D1", "PT Maju", "G1", "Pak Andi",
			"2026-10-19", "Alpha", "auto", "15:30:00", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// S3 already has a row: ON CONFLICT DO NOTHING affects zero rows.
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := repo.InsertMany(context.Background(), []pkl.AttendanceRecord{
		alphaRecord("S2", "Siti"),
		alphaRecord("S3", "Tono"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertManyRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO attendance")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	n, err := repo.InsertMany(context.Background(), []pkl.AttendanceRecord{
		alphaRecord("S2", "Siti"),
		alphaRecord("S3", "Tono"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3")
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertManyEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)

	n, err := repo.InsertMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryInsertConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO attendance").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	_, err := repo.Insert(context.Background(), alphaRecord("S1", "Ani"))
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}
