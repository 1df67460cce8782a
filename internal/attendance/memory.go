package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sipkl/internal/pkl"
)

// Memory is a process-local store for dev runs and tests. It enforces the
// same one-record-per-student-per-day rule as the Postgres schema.
type Memory struct {
	mu       sync.Mutex
	students map[string]pkl.Student
	records  []pkl.AttendanceRecord
	byKey    map[string]int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		students: make(map[string]pkl.Student),
		byKey:    make(map[string]int),
	}
}

func recordKey(studentID string, day pkl.Day) string {
	return studentID + "|" + day.String()
}

// ListStudents returns every student ordered by class and name.
func (m *Memory) ListStudents(_ context.Context) ([]pkl.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]pkl.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// GetStudent returns a student by id, or nil.
func (m *Memory) GetStudent(_ context.Context, id string) (*pkl.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// UpsertStudent creates or replaces a student.
func (m *Memory) UpsertStudent(_ context.Context, s pkl.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = s
	return nil
}

// AttendanceStudentIDs returns the ids of students with a record on day.
func (m *Memory) AttendanceStudentIDs(_ context.Context, day pkl.Day) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, rec := range m.records {
		if rec.Date == day {
			ids = append(ids, rec.StudentID)
		}
	}
	return ids, nil
}

// InsertMany stores records, skipping any that would duplicate a
// (student, day) pair.
func (m *Memory) InsertMany(_ context.Context, records []pkl.AttendanceRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
	for _, rec := range records {
		if m.insertLocked(rec) {
			inserted++
		}
	}
	return inserted, nil
}

// Insert stores one record or returns ErrAlreadyCheckedIn.
func (m *Memory) Insert(_ context.Context, rec pkl.AttendanceRecord) (pkl.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if !m.insertLocked(rec) {
		return pkl.AttendanceRecord{}, ErrAlreadyCheckedIn
	}
	return m.records[len(m.records)-1], nil
}

func (m *Memory) insertLocked(rec pkl.AttendanceRecord) bool {
	key := recordKey(rec.StudentID, rec.Date)
	if _, exists := m.byKey[key]; exists {
		return false
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.byKey[key] = len(m.records)
	m.records = append(m.records, rec)
	return true
}

// GetForStudent returns the student's record for day, or nil.
func (m *Memory) GetForStudent(_ context.Context, studentID string, day pkl.Day) (*pkl.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.byKey[recordKey(studentID, day)]
	if !ok {
		return nil, nil
	}
	rec := m.records[idx]
	return &rec, nil
}

// ListByDate returns all records of day ordered by class and name.
func (m *Memory) ListByDate(_ context.Context, day pkl.Day) ([]pkl.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pkl.AttendanceRecord
	for _, rec := range m.records {
		if rec.Date == day {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].StudentName < out[j].StudentName
	})
	return out, nil
}
