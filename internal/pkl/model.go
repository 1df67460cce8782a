package pkl

import "time"

// Status is the attendance status of a student for one day.
type Status string

const (
	StatusHadir Status = "Hadir" // present
	StatusSakit Status = "Sakit" // sick
	StatusIzin  Status = "Izin"  // excused
	StatusAlpha Status = "Alpha" // absent without notice
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusHadir, StatusSakit, StatusIzin, StatusAlpha:
		return true
	}
	return false
}

// Day is a calendar date formatted as YYYY-MM-DD.
type Day string

const dayLayout = "2006-01-02"

// DayOf returns the calendar date of t in t's own location.
func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

// ParseDay validates a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(dayLayout, s); err != nil {
		return "", err
	}
	return Day(s), nil
}

func (d Day) String() string { return string(d) }

// Student is an enrolled PKL student with the company (DUDI) and supervising
// teacher they are assigned to.
type Student struct {
	ID          string `json:"id"`
	Name        string `json:"nama"`
	Class       string `json:"kelas"`
	SchoolYear  string `json:"tahun_ajaran"`
	CompanyID   string `json:"dudi_id"`
	CompanyName string `json:"dudi_nama"`
	TeacherID   string `json:"guru_id"`
	TeacherName string `json:"guru_nama"`
}

// AttendanceRecord is one attendance row. Student, company and teacher fields
// are copied from the student at write time and never joined on read, so a
// later reassignment leaves history untouched.
type AttendanceRecord struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"siswa_id"`
	StudentName string    `json:"nama_siswa"`
	Class       string    `json:"kelas"`
	CompanyID   string    `json:"dudi_id"`
	CompanyName string    `json:"dudi_nama"`
	TeacherID   string    `json:"guru_id"`
	TeacherName string    `json:"guru_nama"`
	Date        Day       `json:"tanggal"`
	Status      Status    `json:"status"`
	Note        string    `json:"keterangan"`
	Time        string    `json:"jam"`
	Location    *string   `json:"lokasi,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRecord builds a record for s with the student's fields copied in.
func NewRecord(s Student, day Day, status Status) AttendanceRecord {
	return AttendanceRecord{
		StudentID:   s.ID,
		StudentName: s.Name,
		Class:       s.Class,
		CompanyID:   s.CompanyID,
		CompanyName: s.CompanyName,
		TeacherID:   s.TeacherID,
		TeacherName: s.TeacherName,
		Date:        day,
		Status:      status,
	}
}
