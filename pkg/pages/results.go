package pages

import "fmt"

// selectors for the model results screen.
const (
	resultsTitle = "#results-title"
	resultsTable = "table#model-results"
	resultsRows  = "table#model-results tbody tr.model-row"
	modelName    = "td.model-name"
	modelStatus  = "td.model-status .status-badge"
)

// ResultsPage drives the AI model results table.
type ResultsPage struct {
	base
}

// NewResultsPage creates a results page object over a live page.
func NewResultsPage(p Params) *ResultsPage {
	return &ResultsPage{base: newBase(p)}
}

// Open navigates directly to the results screen and waits for the table.
func (r *ResultsPage) Open() error {
	if err := r.open("/results"); err != nil {
		return err
	}
	return r.WaitLoaded()
}

// WaitLoaded waits for the results table to render.
func (r *ResultsPage) WaitLoaded() error {
	_, err := r.waitVisible(resultsTable)
	return err
}

// RowCount waits for at least one model row and returns how many are rendered.
func (r *ResultsPage) RowCount() (int, error) {
	if _, err := r.waitVisible(resultsRows); err != nil {
		return 0, err
	}
	count, err := r.page.Locator(resultsRows).Count()
	if err != nil {
		return 0, fmt.Errorf("count model rows: %w", err)
	}
	return count, nil
}

// ModelNames returns the model name cell text of every rendered row.
func (r *ResultsPage) ModelNames() ([]string, error) {
	count, err := r.RowCount()
	if err != nil {
		return nil, err
	}

	rows := r.page.Locator(resultsRows)
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		text, err := rows.Nth(i).Locator(modelName).TextContent()
		if err != nil {
			return nil, fmt.Errorf("read model name in row %d: %w", i, err)
		}
		names = append(names, text)
	}
	return names, nil
}

// StatusOf returns the status badge text for the row with the given model name.
func (r *ResultsPage) StatusOf(model string) (string, error) {
	count, err := r.RowCount()
	if err != nil {
		return "", err
	}

	rows := r.page.Locator(resultsRows)
	for i := 0; i < count; i++ {
		name, err := rows.Nth(i).Locator(modelName).TextContent()
		if err != nil {
			return "", fmt.Errorf("read model name in row %d: %w", i, err)
		}
		if name == model {
			status, err := rows.Nth(i).Locator(modelStatus).TextContent()
			if err != nil {
				return "", fmt.Errorf("read status of %s: %w", model, err)
			}
			return status, nil
		}
	}
	return "", fmt.Errorf("model %q not found in results table", model)
}
