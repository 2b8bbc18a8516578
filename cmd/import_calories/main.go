package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"mealplanner/internal/config"
	"mealplanner/internal/db"
	applog "mealplanner/internal/log"
	"mealplanner/internal/mealplan"
	"mealplanner/internal/store"
	"mealplanner/models"
)

var requiredColumns = []string{"name", "unit", "amount", "calories"}

type calorieRecord struct {
	Line     int
	Name     string
	Unit     string
	Amount   float64
	Calories float64
}

type summary struct {
	Imported int
	Skipped  int
}

func main() {
	csvPath := "calories.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	if err := run(context.Background(), csvPath); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, csvPath string) error {
	if strings.TrimSpace(csvPath) == "" {
		return fmt.Errorf("csv path must not be empty")
	}

	file, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	records, err := readCSV(file)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Configure(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	result, err := importRecords(ctx, database, records)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %d calorie references from %s (%d duplicates skipped)\n",
		result.Imported, filepath.Base(csvPath), result.Skipped)
	return nil
}

// readCSV parses rows of name,unit,amount,calories. The header row may list
// the columns in any order and may carry extra columns.
func readCSV(r io.Reader) ([]calorieRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	columns := make(map[string]int, len(rows[0]))
	for idx, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	field := func(row []string, name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := make([]calorieRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		record := calorieRecord{Line: line, Name: field(row, "name"), Unit: field(row, "unit")}
		if record.Name == "" {
			return nil, fmt.Errorf("line %d: name is required", line)
		}
		if !models.ValidUnit(record.Unit) {
			return nil, fmt.Errorf("line %d: unsupported unit %q", line, record.Unit)
		}
		record.Unit = models.SanitizeUnit(record.Unit)

		if record.Amount, err = parseNumber(field(row, "amount")); err != nil || record.Amount <= 0 {
			return nil, fmt.Errorf("line %d: amount must be a positive number", line)
		}
		if record.Calories, err = parseNumber(field(row, "calories")); err != nil || record.Calories < 0 {
			return nil, fmt.Errorf("line %d: calories must be a non-negative number", line)
		}
		records = append(records, record)
	}

	return records, nil
}

func parseNumber(value string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
}

// importRecords writes every record in its own transaction. References that
// already exist for the same ingredient, unit and amount are left untouched.
func importRecords(ctx context.Context, database *gorm.DB, records []calorieRecord) (summary, error) {
	st := store.New(database)
	var result summary

	for _, record := range records {
		key := models.IngredientKey(record.Name, record.Unit)
		skipped := false

		err := st.Transaction(ctx, func(tx mealplan.Store) error {
			if err := tx.UpsertIngredient(ctx, key, record.Name, record.Unit); err != nil {
				return fmt.Errorf("upsert ingredient %q: %w", key, err)
			}

			_, err := tx.FindCalorieEntryByReference(ctx, key, record.Unit, record.Amount)
			if err == nil {
				skipped = true
				return nil
			}
			if !errors.Is(err, mealplan.ErrNotFound) {
				return err
			}

			return tx.SaveCalorieEntry(ctx, &models.CalorieEntry{
				IngredientKey:  key,
				IngredientName: record.Name,
				Unit:           record.Unit,
				Amount:         record.Amount,
				Calories:       record.Calories,
			})
		})
		if err != nil {
			return result, fmt.Errorf("line %d (%s): %w", record.Line, record.Name, err)
		}

		if skipped {
			applog.Debug(ctx, "calorie reference already present", "key", key, "amount", record.Amount)
			result.Skipped++
			continue
		}
		result.Imported++
	}

	return result, nil
}
