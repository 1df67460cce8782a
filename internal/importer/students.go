// Package importer loads the student directory from an .xlsx workbook.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"sipkl/internal/pkl"
)

// Header lists the recognised column names. Matching ignores case and order.
var Header = []string{"id", "nama", "kelas", "tahun_ajaran", "dudi_id", "dudi", "guru_id", "guru"}

// RowError reports a data row that could not be turned into a student.
// Row is the 1-based spreadsheet row number.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Result is the outcome of parsing a workbook.
type Result struct {
	Students []pkl.Student
	Errors   []RowError
}

// Parse reads students from the first sheet of the workbook in r.
func Parse(r io.Reader) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return Result{}, errors.New("sheet is empty")
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"id", "nama"} {
		if _, ok := cols[required]; !ok {
			return Result{}, fmt.Errorf("missing column %q", required)
		}
	}

	var res Result
	seen := map[string]int{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		s := pkl.Student{
			ID:          cell("id"),
			Name:        cell("nama"),
			Class:       cell("kelas"),
			SchoolYear:  cell("tahun_ajaran"),
			CompanyID:   cell("dudi_id"),
			CompanyName: cell("dudi"),
			TeacherID:   cell("guru_id"),
			TeacherName: cell("guru"),
		}
		if s == (pkl.Student{}) {
			continue
		}
		switch {
		case s.ID == "":
			res.Errors = append(res.Errors, RowError{Row: rowNum, Reason: "missing id"})
			continue
		case s.Name == "":
			res.Errors = append(res.Errors, RowError{Row: rowNum, Reason: "missing nama"})
			continue
		}
		if first, dup := seen[s.ID]; dup {
			res.Errors = append(res.Errors, RowError{Row: rowNum, Reason: fmt.Sprintf("duplicate id %s (first on row %d)", s.ID, first)})
			continue
		}
		seen[s.ID] = rowNum
		res.Students = append(res.Students, s)
	}
	return res, nil
}

// Upserter stores one student, replacing an existing one with the same id.
type Upserter interface {
	UpsertStudent(ctx context.Context, s pkl.Student) error
}

// Load upserts every student and returns how many were written.
func Load(ctx context.Context, dst Upserter, students []pkl.Student) (int, error) {
	for i, s := range students {
		if err := dst.UpsertStudent(ctx, s); err != nil {
			return i, fmt.Errorf("upsert student %s: %w", s.ID, err)
		}
	}
	return len(students), nil
}

// Template writes an empty workbook containing only the header row.
func Template(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("set header: %w", err)
		}
	}
	return f.Write(w)
}
