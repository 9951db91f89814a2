package service

import (
	"bytes"
	"fmt"
	"strings"

	"telemetry-mdb/internal/mdb"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Parameters"

var exportHeaders = []string{
	"Qualified Name",
	"Name",
	"Engineering Type",
	"Data Source",
	"Range Min",
	"Range Max",
	"Enumeration",
	"Aliases",
	"Description",
}

var exportColumnWidths = []float64{45, 25, 16, 15, 12, 12, 30, 40, 50}

// ExportParameters 导出匹配的参数为 xlsx
func (s *MdbService) ExportParameters(instance string, opts ListOptions) ([]byte, error) {
	params, err := s.AllParameters(instance, opts)
	if err != nil {
		return nil, err
	}
	return generateParameterExcel(params)
}

func generateParameterExcel(params []*mdb.Parameter) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheet, col, col, exportColumnWidths[i]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, p := range params {
		row := i + 2
		values := []any{
			p.QualifiedName,
			p.Name,
			"",
			p.DataSource,
			nil,
			nil,
			"",
			strings.Join(p.Aliases, "\n"),
			p.Description,
		}
		if p.Type != nil {
			values[2] = p.Type.EngType
			if p.Type.RangeMin != nil {
				values[4] = *p.Type.RangeMin
			}
			if p.Type.RangeMax != nil {
				values[5] = *p.Type.RangeMax
			}
			values[6] = enumSummary(p.Type.EnumValues)
		}
		for col, value := range values {
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// enumSummary "0=OFF, 1=ON"
func enumSummary(values []mdb.EnumValue) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("%d=%s", v.Value, v.Label))
	}
	return strings.Join(parts, ", ")
}
