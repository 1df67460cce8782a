package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sipkl/internal/pkl"
)

// Repository persists students and attendance in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, name, class_name, school_year, company_id, company_name, teacher_id, teacher_name`

const recordColumns = `id, student_id, student_name, class_name, company_id, company_name, teacher_id, teacher_name,
	to_char(date, 'YYYY-MM-DD'), status, note, to_char(check_time, 'HH24:MI:SS'), location, created_at`

const insertRecordSQL = `
	INSERT INTO attendance (id, student_id, student_name, class_name, company_id, company_name, teacher_id, teacher_name, date, status, note, check_time, location)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::date, $10, $11, $12::time, $13)
	ON CONFLICT (student_id, date) DO NOTHING`

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (pkl.Student, error) {
	var s pkl.Student
	err := row.Scan(&s.ID, &s.Name, &s.Class, &s.SchoolYear, &s.CompanyID, &s.CompanyName, &s.TeacherID, &s.TeacherName)
	return s, err
}

func scanRecord(row scanner) (pkl.AttendanceRecord, error) {
	var rec pkl.AttendanceRecord
	var date, status string
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.StudentName, &rec.Class, &rec.CompanyID, &rec.CompanyName,
		&rec.TeacherID, &rec.TeacherName, &date, &status, &rec.Note, &rec.Time, &rec.Location, &rec.CreatedAt)
	rec.Date = pkl.Day(date)
	rec.Status = pkl.Status(status)
	return rec, err
}

// ListStudents returns every enrolled student.
func (r *Repository) ListStudents(ctx context.Context) ([]pkl.Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY class_name, name`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []pkl.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// GetStudent returns a student by id, or nil when none exists.
func (r *Repository) GetStudent(ctx context.Context, id string) (*pkl.Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	s, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &s, nil
}

// UpsertStudent creates a student or refreshes its assignment fields.
func (r *Repository) UpsertStudent(ctx context.Context, s pkl.Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			class_name = EXCLUDED.class_name,
			school_year = EXCLUDED.school_year,
			company_id = EXCLUDED.company_id,
			company_name = EXCLUDED.company_name,
			teacher_id = EXCLUDED.teacher_id,
			teacher_name = EXCLUDED.teacher_name,
			updated_at = NOW()
	`, s.ID, s.Name, s.Class, s.SchoolYear, s.CompanyID, s.CompanyName, s.TeacherID, s.TeacherName)
	if err != nil {
		return fmt.Errorf("upsert student %s: %w", s.ID, err)
	}
	return nil
}

// AttendanceStudentIDs returns the ids of students with a record on day.
func (r *Repository) AttendanceStudentIDs(ctx context.Context, day pkl.Day) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT student_id FROM attendance WHERE date = $1::date`, day.String())
	if err != nil {
		return nil, fmt.Errorf("list attendance ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan attendance id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertMany writes records in one transaction. Rows that collide with an
// existing (student_id, date) are skipped; the returned count only covers rows
// actually written.
func (r *Repository) InsertMany(ctx context.Context, records []pkl.AttendanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRecordSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		res, err := stmt.ExecContext(ctx, recordArgs(rec)...)
		if err != nil {
			return 0, fmt.Errorf("insert attendance for %s: %w", rec.StudentID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// Insert writes a single record. It returns ErrAlreadyCheckedIn when the
// student already has a record for that day.
func (r *Repository) Insert(ctx context.Context, rec pkl.AttendanceRecord) (pkl.AttendanceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, insertRecordSQL+` RETURNING created_at`, recordArgs(rec)...)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pkl.AttendanceRecord{}, ErrAlreadyCheckedIn
		}
		return pkl.AttendanceRecord{}, fmt.Errorf("insert attendance: %w", err)
	}
	return rec, nil
}

// GetForStudent returns the student's record for day, or nil.
func (r *Repository) GetForStudent(ctx context.Context, studentID string, day pkl.Day) (*pkl.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM attendance WHERE student_id = $1 AND date = $2::date`,
		studentID, day.String())
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return &rec, nil
}

// ListByDate returns all records of day ordered by class and name.
func (r *Repository) ListByDate(ctx context.Context, day pkl.Day) ([]pkl.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM attendance WHERE date = $1::date ORDER BY class_name, student_name`,
		day.String())
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var res []pkl.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func recordArgs(rec pkl.AttendanceRecord) []any {
	return []any{
		rec.ID, rec.StudentID, rec.StudentName, rec.Class, rec.CompanyID, rec.CompanyName, rec.TeacherID, rec.TeacherName,
		rec.Date.String(), string(rec.Status), rec.Note, rec.Time, rec.Location,
	}
}
