package pipeline

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"medbill/internal"
)

// ParseDefinitions parses one tabular document into definition rows. The
// document needs a service-category column and a definition column; extra
// columns are ignored and a missing category column reads as empty string.
func ParseDefinitions(format internal.SourceFormat, blob []byte) ([]internal.DefinitionRow, error) {
	switch format {
	case internal.FormatXLSX:
		return parseXLSX(blob)
	case internal.FormatHTML:
		return parseHTMLTable(blob), nil
	case internal.FormatPDF:
		return parsePDF(blob)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

var categoryProbes = []string{"service_category_name", "service_category", "servicecategory", "category"}
var definitionProbes = []string{"definition", "service_definition", "description"}

func parseXLSX(blob []byte) ([]internal.DefinitionRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rowNo := 0
	out := []internal.DefinitionRow{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) == 0 {
			continue
		}

		catIdx, defIdx := -1, -1
		headerSeen := false
		for _, row := range rows {
			cells := normalizeCells(row)
			if len(cells) == 0 {
				continue
			}

			if !headerSeen {
				headerSeen = true
				catIdx = findHeaderIndex(cells, categoryProbes)
				defIdx = findHeaderIndex(cells, definitionProbes)
				if catIdx >= 0 || defIdx >= 0 {
					continue
				}
				// No recognizable header: treat the sheet as bare
				// category/definition pairs, first row included.
				catIdx, defIdx = 0, 1
			}

			definition := pickCell(cells, defIdx)
			if definition == "" {
				continue
			}

			rowNo++
			out = append(out, internal.DefinitionRow{
				RowNo:           rowNo,
				ServiceCategory: pickCell(cells, catIdx),
				Definition:      definition,
			})
		}
	}

	return out, nil
}

func parseHTMLTable(blob []byte) []internal.DefinitionRow {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(blob))
	if err != nil {
		return nil
	}

	rowNo := 0
	out := []internal.DefinitionRow{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, normalizeSpaces(cell.Text()))
		})
		catIdx := findHeaderIndex(headers, categoryProbes)
		defIdx := findHeaderIndex(headers, definitionProbes)
		if defIdx < 0 {
			catIdx, defIdx = 0, 1
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			definition := pickCell(cells, defIdx)
			if definition == "" {
				return
			}

			rowNo++
			out = append(out, internal.DefinitionRow{
				RowNo:           rowNo,
				ServiceCategory: pickCell(cells, catIdx),
				Definition:      definition,
			})
		})
	})

	return out
}

// PDF exports carry no column structure, so lines are read as
// "Category: definition text" pairs; a line without the separator becomes a
// definition with an empty category.
var pdfLinePattern = regexp.MustCompile(`^([A-Za-z0-9&()/_ -]{2,80}?)\s*[:;]\s+(.+)$`)

func parsePDF(blob []byte) ([]internal.DefinitionRow, error) {
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, err
	}

	rowNo := 0
	out := []internal.DefinitionRow{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			category, definition := "", line
			if m := pdfLinePattern.FindStringSubmatch(line); m != nil {
				category, definition = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
			}
			if definition == "" {
				continue
			}

			rowNo++
			out = append(out, internal.DefinitionRow{
				RowNo:           rowNo,
				ServiceCategory: category,
				Definition:      definition,
			})
		}
	}

	return out, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var spacesPattern = regexp.MustCompile(`\s+`)

func normalizeSpaces(input string) string {
	return strings.TrimSpace(spacesPattern.ReplaceAllString(input, " "))
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		norm := strings.ToLower(strings.TrimSpace(h))
		for _, probe := range probes {
			if strings.Contains(norm, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}
