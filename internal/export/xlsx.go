package export

import (
	"fmt"
	"io"
	"log"

	"github.com/xuri/excelize/v2"

	"baby-meal-planner/internal/planner"
	"baby-meal-planner/internal/shopping"
)

const (
	ShoppingSheet = "Shopping"
	PlanSheet     = "Plan"
)

var groupLabels = map[shopping.TimeGroup]string{
	shopping.ThisWeek: "This week",
	shopping.NextWeek: "Next week",
	shopping.Later:    "Later",
}

// TitleFunc resolves a recipe id to its display title.
type TitleFunc func(id string) string

// Workbook builds a spreadsheet with the shopping list and, when plan is not
// nil, the week plan on a second sheet.
func Workbook(items []shopping.Item, plan *planner.WeekPlan, title TitleFunc) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fillWorkbook(f, items, plan, title); err != nil {
		if cerr := f.Close(); cerr != nil {
			log.Printf("Warning: failed to close workbook: %v", cerr)
		}
		return nil, err
	}
	return f, nil
}

// fillWorkbook writes the sheets into a fresh file whose only sheet is Sheet1.
func fillWorkbook(f *excelize.File, items []shopping.Item, plan *planner.WeekPlan, title TitleFunc) error {
	// Rename the default sheet rather than leaving an empty Sheet1 behind.
	if err := f.SetSheetName("Sheet1", ShoppingSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	rows := [][]any{{"Ingredient", "ID", "Category", "Needed by", "When", "Purchased"}}
	for _, it := range items {
		purchased := ""
		if it.Purchased {
			purchased = "yes"
		}
		rows = append(rows, []any{it.Name, it.IngredientID, string(it.Category), it.EarliestDate, groupLabels[it.TimeGroup], purchased})
	}
	if err := writeRows(f, ShoppingSheet, rows); err != nil {
		return err
	}

	if plan == nil {
		return nil
	}

	if _, err := f.NewSheet(PlanSheet); err != nil {
		return fmt.Errorf("failed to add plan sheet: %w", err)
	}
	rows = [][]any{{"Date", "Meal 1", "Meal 2", "Meal 3"}}
	for _, date := range plan.Dates() {
		row := []any{date}
		for _, id := range plan.Meals[date] {
			row = append(row, title(id))
		}
		rows = append(rows, row)
	}
	return writeRows(f, PlanSheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("failed to resolve cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write cell %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

// WriteXLSX writes the workbook to w.
func WriteXLSX(w io.Writer, items []shopping.Item, plan *planner.WeekPlan, title TitleFunc) error {
	f, err := Workbook(items, plan, title)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
