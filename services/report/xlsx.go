// Package reportsvc renders attendance sheets as spreadsheets.
package reportsvc

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/appel/core/attendance"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "Attendance"
	maxWidth  = 40
)

var marks = map[attendance.Status]string{
	attendance.StatusPresent:         "P",
	attendance.StatusAbsent:          "A",
	attendance.StatusAbsentJustified: "J",
}

// ClassSheet writes one row per student and one column per day, followed by the totals of each status.
func ClassSheet(sheet attendance.Sheet) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}

	header := []interface{}{"Family name", "Given name"}
	for _, d := range sheet.Days {
		header = append(header, d.String())
	}
	header = append(header, "Present", "Absent", "Justified")
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}

	for i, row := range sheet.Rows {
		var present, absent, justified int
		cells := []interface{}{row.Student.FamilyName, row.Student.GivenName}
		for _, st := range row.Marks {
			cells = append(cells, marks[st])
			switch st {
			case attendance.StatusPresent:
				present++
			case attendance.StatusAbsent:
				absent++
			case attendance.StatusAbsentJustified:
				justified++
			}
		}
		cells = append(cells, present, absent, justified)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err = f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return nil, errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	if err := format(f, len(header)); err != nil {
		return nil, errors.Wrap(err, "formatting sheet")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf, nil
}

// format makes the header bold, freezes the name columns and fits column widths.
func format(f *excelize.File, cols int) error {
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err = f.SetCellStyle(sheetName, "A1", last+"1", style); err != nil {
		return err
	}
	if err = f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      1,
		TopLeftCell: "C2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return err
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return err
	}
	for c := 0; c < cols; c++ {
		width := 6.0
		for _, row := range rows {
			if c < len(row) {
				if w := float64(len([]rune(row[c]))) * 1.2; w > width {
					width = w
				}
			}
		}
		if width > maxWidth {
			width = maxWidth
		}
		col, _ := excelize.ColumnNumberToName(c + 1)
		if err = f.SetColWidth(sheetName, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

// Filename returns the download name of a class sheet.
func Filename(sheet attendance.Sheet) string {
	name := strings.Trim(invalidFileRe.ReplaceAllString(sheet.Class.Name, "-"), "-")
	if name == "" {
		name = fmt.Sprintf("class-%d", sheet.Class.ID)
	}
	if len(sheet.Days) == 0 {
		return "attendance-" + name + ".xlsx"
	}
	return fmt.Sprintf("attendance-%s-%s-%s.xlsx", name, sheet.Days[0], sheet.Days[len(sheet.Days)-1])
}
