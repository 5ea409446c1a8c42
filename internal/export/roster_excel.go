// Package export renders server-side xlsx reports. The browser never
// uploads spreadsheets here; it only downloads these.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/models"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/scoring"
)

var rosterHeader = []string{
	"Tên thánh", "Họ và tên", "Mã số",
	"45' HK1", "Thi HK1", "45' HK2", "Thi HK2",
	"TB HK1", "TB HK2", "TB năm",
	"Thứ 5", "CN", "Điểm chuyên cần", "Điểm tổng", "Xếp loại",
}

var classificationLabels = map[scoring.Classification]string{
	scoring.Excellent:    "Giỏi",
	scoring.Good:         "Khá",
	scoring.Average:      "Trung bình",
	scoring.BelowAverage: "Yếu",
}

// RosterWorkbook builds the per-class roster sheet: raw scores, derived
// averages, attendance tallies and classification for every student.
func RosterWorkbook(class models.Class, students []models.Student, totalWeeks int) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := class.Name
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range rosterHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for r, st := range students {
		m := scoring.Compute(st.Score45HK1, st.ScoreExamT1, st.Score45HK2, st.ScoreExamT2, st.CountThu5, st.CountCN, totalWeeks)
		row := []any{
			strOrDash(st.SaintName),
			st.FullName,
			strOrDash(st.Code),
			numCell(st.Score45HK1),
			numCell(st.ScoreExamT1),
			numCell(st.Score45HK2),
			numCell(st.ScoreExamT2),
			numCell(m.AvgTerm1),
			numCell(m.AvgTerm2),
			m.YearAverage,
			st.CountThu5,
			st.CountCN,
			m.AttendanceRate,
			m.Overall,
			classificationLabels[m.Class],
		}
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if err := applyDefaultFormatting(f, sheet); err != nil {
		return nil, err
	}
	return f, nil
}

// RosterFilename builds a human-readable download name.
func RosterFilename(className, parishName, yearName string) string {
	base := fmt.Sprintf("So diem - %s - %s - %s.xlsx",
		cleanName(className), cleanName(parishName), cleanName(yearName))
	return sanitizeFileName(base)
}

// applyDefaultFormatting: bold header, auto-filter on row 1, approximate
// auto-width from content length.
func applyDefaultFormatting(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return nil
	}

	last, _ := excelize.CoordinatesToCellName(cols, 1)
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}
	_ = f.AutoFilter(sheet, "A1:"+last, nil)

	widths := make([]float64, cols)
	for c := 0; c < cols; c++ {
		widths[c] = 8
	}
	for rIdx, row := range rows {
		for cIdx := 0; cIdx < cols; cIdx++ {
			var v string
			if cIdx < len(row) {
				v = row[cIdx]
			}
			w := float64(len([]rune(v))) * 1.1
			if rIdx == 0 {
				w += 1.5
			}
			if w > 50 {
				w = 50
			}
			if w > widths[cIdx] {
				widths[cIdx] = w
			}
		}
	}
	for i := 0; i < cols; i++ {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, widths[i])
	}
	return nil
}

// numCell keeps unscored slots visibly empty instead of writing 0.
func numCell(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}

func strOrDash(p *string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return "—"
	}
	return *p
}

var invalidFileChars = strings.NewReplacer(
	`\`, "_", `/`, "_", `:`, "_", `*`, "_", `?`, "_", `"`, "_", `<`, "_", `>`, "_", `|`, "_",
)

func sanitizeFileName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), " ")
	return invalidFileChars.Replace(s)
}

func cleanName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "na"
	}
	return s
}
