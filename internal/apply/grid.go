package apply

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"

	"surveynerd/internal/survey"
)

// gridStrategy handles matrix questions. The value is row-keyed: each row is
// located by its label, then the column control matching the mapped value is
// clicked within that row only.
func gridStrategy() *Strategy {
	return &Strategy{
		Family: survey.FamilyGrid,
		Attempts: []Attempt{
			{Name: "row_label_column_click", Fn: applyGridRows},
		},
	}
}

const gridRowSelector = "tr, [role='row'], .matrix-row, .grid-row, .question-row"

func applyGridRows(ctx context.Context, t *Target, v survey.Value) (bool, error) {
	if v.Kind != survey.KindRows || len(v.Rows) == 0 {
		return false, fmt.Errorf("grid needs row-keyed value")
	}

	rowEls, err := visibleElements(ctx, t.Page, gridRowSelector)
	if err != nil || len(rowEls) == 0 {
		return false, err
	}

	applied := 0
	for label, column := range v.Rows {
		row := findRow(rowEls, label)
		if row == nil {
			continue
		}
		ok, err := clickColumnInRow(row, column)
		if err != nil {
			continue
		}
		if ok {
			applied++
		}
	}
	return applied > 0, nil
}

// findRow returns the first row element whose text contains the label.
func findRow(rows []*rod.Element, label string) *rod.Element {
	match := matchPartial(label)
	for _, row := range rows {
		if match(elementText(row)) {
			return row
		}
	}
	return nil
}

// clickColumnInRow clicks the control for the mapped column value, staying
// inside the given row.
func clickColumnInRow(row *rod.Element, column string) (bool, error) {
	match := matchPartial(column)

	// Labeled cells first.
	cells, err := row.Elements("label, td, [role='radio'], [role='gridcell']")
	if err == nil {
		for _, cell := range cells {
			if match(elementText(cell)) {
				if err := click(cell); err != nil {
					return false, err
				}
				return true, nil
			}
		}
	}

	// Raw controls with aria/value metadata.
	controls, err := row.Elements("input[type='radio'], input[type='checkbox']")
	if err != nil {
		return false, err
	}
	for _, control := range controls {
		if label, aerr := control.Attribute("aria-label"); aerr == nil && label != nil && match(*label) {
			if err := click(control); err != nil {
				return false, err
			}
			return true, nil
		}
		if val, verr := control.Attribute("value"); verr == nil && val != nil && match(*val) {
			if err := click(control); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
