// Package receipt turns grocery receipts into purchase lines.
package receipt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"mealplanner/models"
)

// Line is one parsed receipt row.
type Line struct {
	Raw    string
	Name   string
	Amount float64
	Unit   string
	Price  float64
}

// Key returns the directory key the line refers to.
func (l Line) Key() string {
	return models.IngredientKey(l.Name, l.Unit)
}

// Parse reads lines of the form "<name> <amount> <unit> <price>". Names may
// contain spaces. Blank lines are ignored; lines that do not fit the layout
// are returned as rejected.
func Parse(r io.Reader) ([]Line, []string, error) {
	var (
		lines    []Line
		rejected []string
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		line, ok := parseLine(raw)
		if !ok {
			rejected = append(rejected, raw)
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read receipt: %w", err)
	}
	return lines, rejected, nil
}

func parseLine(raw string) (Line, bool) {
	fields := strings.Fields(raw)
	if len(fields) < 4 {
		return Line{}, false
	}
	n := len(fields)

	price, err := parseNumber(strings.TrimLeft(fields[n-1], "$€£"))
	if err != nil || price < 0 {
		return Line{}, false
	}
	unit := strings.ToLower(fields[n-2])
	if !models.ValidUnit(unit) {
		return Line{}, false
	}
	amount, err := parseNumber(fields[n-3])
	if err != nil || amount <= 0 {
		return Line{}, false
	}
	name := strings.Join(fields[:n-3], " ")

	return Line{
		Raw:    raw,
		Name:   name,
		Amount: amount,
		Unit:   models.SanitizeUnit(unit),
		Price:  price,
	}, true
}

func parseNumber(value string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
}

// ExtractPDFText returns the text of every page, one line per text row.
func ExtractPDFText(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var out strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		for _, row := range rows {
			for _, text := range row.Content {
				out.WriteString(text.S)
			}
			out.WriteString("\n")
		}
	}
	return out.String(), nil
}
