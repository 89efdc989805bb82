package nesting

import (
	"context"
	"fmt"

	"github.com/piwi3910/slabnest/internal/model"
)

// ComparisonScenario defines a named parameter set to compare.
type ComparisonScenario struct {
	Name   string
	Params model.Parameters
}

// ComparisonResult holds the job output and computed statistics for a
// single scenario.
type ComparisonResult struct {
	Scenario      ComparisonScenario
	Result        model.NestResult
	SheetsUsed    int
	PlacedCount   int
	UnplacedCount int
	WastePercent  float64
	Err           error
}

// CompareScenarios runs the job once per scenario and returns the results
// in scenario order. A failing scenario is reported in its result and does
// not stop the others.
func CompareScenarios(ctx context.Context, engine Engine, job Job, scenarios []ComparisonScenario, opts ...Option) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		j := job
		j.Params = scenario.Params
		result, err := Run(ctx, engine, j, opts...)

		cr := ComparisonResult{Scenario: scenario, Result: result, Err: err}
		if err == nil {
			cr.SheetsUsed = len(result.Sheets)
			cr.PlacedCount = result.PlacedCount()
			cr.UnplacedCount = result.UnplacedCount()
			cr.WastePercent = 100.0 - result.TotalEfficiency()
		}
		results = append(results, cr)
	}

	return results
}

// BuildDefaultScenarios generates what-if alternatives around the given
// parameters.
func BuildDefaultScenarios(base model.Parameters) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{Name: "Current Settings", Params: base},
	}

	// Scenario: rank layouts differently
	alt := base
	if base.Criterion == model.GlobalMinX {
		alt.Criterion = model.GlobalMaxFreeSpace
	} else {
		alt.Criterion = model.GlobalMinX
	}
	scenarios = append(scenarios, ComparisonScenario{
		Name:   fmt.Sprintf("Criterion %s", alt.Criterion),
		Params: alt,
	})

	// Scenario: tighter spacing
	if base.ItemToItem > 0 {
		tight := base
		tight.ItemToItem = base.ItemToItem * 0.5
		scenarios = append(scenarios, ComparisonScenario{
			Name:   fmt.Sprintf("Item distance %.2f (half)", tight.ItemToItem),
			Params: tight,
		})
	}

	// Scenario: no sheet margin
	if base.ItemToSheet > 0 {
		noMargin := base
		noMargin.ItemToSheet = 0
		scenarios = append(scenarios, ComparisonScenario{
			Name:   "No Sheet Margin",
			Params: noMargin,
		})
	}

	// Scenario: wider variant search
	more := base
	if more.LimitVariants < 1 {
		more.LimitVariants = 1
	}
	more.LimitVariants *= 2
	scenarios = append(scenarios, ComparisonScenario{
		Name:   fmt.Sprintf("%d variants", more.LimitVariants),
		Params: more,
	})

	return scenarios
}
