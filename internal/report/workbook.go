package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"rebanho/backend/internal/normalize"
)

const WorkbookMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GeneratedReport is one rendered workbook, held in memory for the duration
// of a single dispatch.
type GeneratedReport struct {
	Tag      Tag
	Filename string
	Bytes    []byte
	MIMEType string
}

func reportFilename(slug string, period normalize.Period) string {
	if period.StartDate == period.EndDate {
		return fmt.Sprintf("%s-%s.xlsx", slug, normalize.FormatFileDate(period.StartDate))
	}
	return fmt.Sprintf("%s-%s-%s.xlsx", slug,
		normalize.FormatFileDate(period.StartDate), normalize.FormatFileDate(period.EndDate))
}

// workbook wraps excelize with the layout every report shares: a leading
// "Resumo" sheet followed by one or more detail sheets.
type workbook struct {
	f           *excelize.File
	headerStyle int
	titleStyle  int
	labelStyle  int
}

func newWorkbook() *workbook {
	f := excelize.NewFile()
	wb := &workbook{f: f}

	wb.headerStyle, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2E7D32"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wb.titleStyle, _ = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: "1B5E20"},
	})
	wb.labelStyle, _ = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	return wb
}

type indicator struct {
	Label string
	Value any
}

// addResumo writes the summary sheet: title, generation timestamp, period and
// a small indicator table.
func (wb *workbook) addResumo(title string, period normalize.Period, generatedAt time.Time, indicators []indicator) {
	const sheet = "Resumo"
	_ = wb.f.SetSheetName("Sheet1", sheet)

	_ = wb.f.SetCellValue(sheet, "A1", title)
	_ = wb.f.SetCellStyle(sheet, "A1", "A1", wb.titleStyle)
	_ = wb.f.SetCellValue(sheet, "A2", "Gerado em: "+generatedAt.Format("02/01/2006 15:04"))
	if period.StartDate != "" {
		_ = wb.f.SetCellValue(sheet, "A3", fmt.Sprintf("Período: %s a %s",
			normalize.FormatDisplayDate(period.StartDate), normalize.FormatDisplayDate(period.EndDate)))
	}

	row := 5
	for _, ind := range indicators {
		labelCell := "A" + strconv.Itoa(row)
		valueCell := "B" + strconv.Itoa(row)
		_ = wb.f.SetCellValue(sheet, labelCell, ind.Label)
		_ = wb.f.SetCellStyle(sheet, labelCell, labelCell, wb.labelStyle)
		_ = wb.f.SetCellValue(sheet, valueCell, ind.Value)
		row++
	}
	_ = wb.f.SetColWidth(sheet, "A", "A", 38)
	_ = wb.f.SetColWidth(sheet, "B", "B", 22)
}

// addDetail writes a detail sheet with a styled header row and one row per
// record. Column widths follow the header widths loosely.
func (wb *workbook) addDetail(sheet string, headers []string, rows [][]any) {
	idx, _ := wb.f.NewSheet(sheet)
	_ = idx

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = wb.f.SetCellValue(sheet, cell, h)
	}
	if len(headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = wb.f.SetCellStyle(sheet, "A1", last, wb.headerStyle)
	}

	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = wb.f.SetCellValue(sheet, cell, v)
		}
	}

	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(h)) + 6
		if width < 14 {
			width = 14
		}
		_ = wb.f.SetColWidth(sheet, col, col, width)
	}
}

// addPicture anchors a PNG at the given cell. Nil images are skipped, so a
// failed chart never aborts the workbook.
func (wb *workbook) addPicture(sheet, cell string, png []byte) {
	if len(png) == 0 {
		return
	}
	if idx, err := wb.f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return
	}
	_ = wb.f.AddPictureFromBytes(sheet, cell, &excelize.Picture{
		Extension: ".png",
		File:      png,
		Format:    &excelize.GraphicOptions{ScaleX: 0.9, ScaleY: 0.9},
	})
}

func (wb *workbook) bytes() ([]byte, error) {
	buf, err := wb.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("workbook serialization failed: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatBRL renders a value the way the workbook indicator tables do.
func FormatBRL(v float64) string {
	return "R$ " + strconv.FormatFloat(v, 'f', 2, 64)
}

func FormatRate(numerator, total int) string {
	if total == 0 {
		return "0%"
	}
	return strconv.FormatFloat(100*float64(numerator)/float64(total), 'f', 1, 64) + "%"
}
