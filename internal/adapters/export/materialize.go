package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"trialviz/pkg/datasetapi"
)

func tableFormat(f datasetapi.Format) bool {
	switch f {
	case datasetapi.FormatJSON, datasetapi.FormatCSV, datasetapi.FormatHTML, datasetapi.FormatXLSX, datasetapi.FormatPNG:
		return true
	}
	return false
}

func materialize(format datasetapi.Format, table datasetapi.Table) ([]byte, error) {
	switch format {
	case datasetapi.FormatJSON:
		return buildJSON(table)
	case datasetapi.FormatCSV:
		return buildCSV(table)
	case datasetapi.FormatHTML:
		return buildHTML(table), nil
	case datasetapi.FormatXLSX:
		return buildXLSX(table)
	case datasetapi.FormatPNG:
		return buildPNG(table)
	default:
		return nil, fmt.Errorf("unsupported export format %s", format)
	}
}

func buildJSON(table datasetapi.Table) ([]byte, error) {
	rows := make([]map[string]any, len(table.Rows))
	for i, row := range table.Rows {
		safe := make(map[string]any, len(row))
		for k, v := range row {
			safe[k] = datasetapi.JSONSafe(v)
		}
		rows[i] = safe
	}
	out := table
	out.Rows = rows
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return payload, nil
}

func buildCSV(table datasetapi.Table) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	columns := table.ColumnNames()
	if err := writer.Write(columns); err != nil {
		return nil, err
	}
	for _, row := range table.Rows {
		record := make([]string, len(columns))
		for i, column := range columns {
			record[i] = datasetapi.FormatValue(row[column])
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildHTML(table datasetapi.Table) []byte {
	columns := table.ColumnNames()
	buf := &strings.Builder{}
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>")
	buf.WriteString(html.EscapeString(table.Name))
	buf.WriteString("</title></head><body><table>")
	buf.WriteString("<thead><tr>")
	for _, column := range columns {
		buf.WriteString("<th>")
		buf.WriteString(html.EscapeString(column))
		buf.WriteString("</th>")
	}
	buf.WriteString("</tr></thead><tbody>")
	for _, row := range table.Rows {
		buf.WriteString("<tr>")
		for _, column := range columns {
			buf.WriteString("<td>")
			buf.WriteString(html.EscapeString(datasetapi.FormatValue(row[column])))
			buf.WriteString("</td>")
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</tbody></table></body></html>")
	return []byte(buf.String())
}

// buildXLSX writes one sheet named after the table with a bold, frozen
// header row. Non-finite numbers become empty cells.
func buildXLSX(table datasetapi.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(table.Name)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	columns := table.ColumnNames()
	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("xlsx: header: %w", err)
	}
	for r, row := range table.Rows {
		values := make([]any, len(columns))
		for i, column := range columns {
			values[i] = datasetapi.JSONSafe(row[column])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("xlsx: row %d: %w", r+1, err)
		}
	}
	if len(columns) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, err
		}
		last, err := excelize.CoordinatesToCellName(len(columns), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return nil, err
		}
		if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: write: %w", err)
	}
	return buf.Bytes(), nil
}

// Sheet names are limited to 31 characters and may not contain []:*?/\.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "data"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

const (
	previewWidth  = 400
	previewHeight = 200
)

// buildPNG draws a thumbnail: one bar per row for the last numeric column,
// scaled to the largest magnitude. Non-finite values leave a gap.
func buildPNG(table datasetapi.Table) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, previewWidth, previewHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	column := previewColumn(table)
	values := make([]float64, len(table.Rows))
	peak := 0.0
	for i, row := range table.Rows {
		v, ok := row[column].(float64)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			values[i] = math.NaN()
			continue
		}
		values[i] = v
		peak = math.Max(peak, math.Abs(v))
	}

	rowCount := len(values)
	if rowCount == 0 {
		rowCount = 1
	}
	barWidth := previewWidth / rowCount
	if barWidth < 1 {
		barWidth = 1
	}
	bar := &image.Uniform{color.RGBA{0, 102, 204, 255}}
	usable := float64(previewHeight - 20)
	for i, v := range values {
		if math.IsNaN(v) || peak == 0 {
			continue
		}
		x0 := i * barWidth
		x1 := x0 + barWidth - 2
		if x1 <= x0 {
			x1 = x0 + 1
		}
		h := int(usable * math.Abs(v) / peak)
		if h < 1 {
			h = 1
		}
		y1 := previewHeight - 10
		draw.Draw(img, image.Rect(x0, y1-h, x1, y1), bar, image.Point{}, draw.Src)
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func previewColumn(table datasetapi.Table) string {
	for i := len(table.Schema) - 1; i >= 0; i-- {
		if table.Schema[i].Type == "number" {
			return table.Schema[i].Name
		}
	}
	return ""
}
