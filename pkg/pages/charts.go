package pages

import "fmt"

// selectors for the visualization screen.
const (
	chartPanels      = "section.chart-panel"
	chartBars        = ".chart-bars .bar"
	metricLatest     = "#metric-latest"
	metricCount      = "#metric-count"
	connectionStatus = "#connection-status"
)

// ChartsPage drives the data visualization widgets fed by the live event stream.
type ChartsPage struct {
	base
}

// NewChartsPage creates a charts page object over a live page.
func NewChartsPage(p Params) *ChartsPage {
	return &ChartsPage{base: newBase(p)}
}

// Open navigates to the charts screen and waits for the panels.
func (c *ChartsPage) Open() error {
	if err := c.open("/charts"); err != nil {
		return err
	}
	return c.WaitLoaded()
}

// WaitLoaded waits for at least one chart panel to render.
func (c *ChartsPage) WaitLoaded() error {
	_, err := c.waitVisible(chartPanels)
	return err
}

// PanelCount waits for the panels and returns how many are rendered.
func (c *ChartsPage) PanelCount() (int, error) {
	if err := c.WaitLoaded(); err != nil {
		return 0, err
	}
	count, err := c.page.Locator(chartPanels).Count()
	if err != nil {
		return 0, fmt.Errorf("count chart panels: %w", err)
	}
	return count, nil
}

// WaitConnected waits until the stream indicator reports a live connection.
func (c *ChartsPage) WaitConnected() error {
	return c.waitFor("live connection indicator", func() (bool, error) {
		class, err := c.page.Locator(connectionStatus).First().GetAttribute("class")
		if err != nil {
			return false, err
		}
		return hasClass(class, "live"), nil
	})
}

// LatestMetric returns the current value of the live metric readout.
func (c *ChartsPage) LatestMetric() (string, error) {
	locator, err := c.waitVisible(metricLatest)
	if err != nil {
		return "", err
	}
	text, err := locator.TextContent()
	if err != nil {
		return "", fmt.Errorf("read latest metric: %w", err)
	}
	return text, nil
}

// WaitMetricChange polls until the live metric readout differs from prev.
func (c *ChartsPage) WaitMetricChange(prev string) error {
	return c.waitFor("metric readout to change", func() (bool, error) {
		text, err := c.page.Locator(metricLatest).First().TextContent()
		if err != nil {
			return false, err
		}
		return text != prev && text != "", nil
	})
}

// WaitEventCountAtLeast polls until the received-events counter reaches min.
func (c *ChartsPage) WaitEventCountAtLeast(minEvents int) error {
	return c.waitFor(fmt.Sprintf("at least %d stream events", minEvents), func() (bool, error) {
		text, err := c.page.Locator(metricCount).First().TextContent()
		if err != nil {
			return false, err
		}
		var n int
		if _, err := fmt.Sscanf(text, "%d", &n); err != nil {
			return false, nil //nolint:nilerr // unparsed counter means "not yet", keep polling
		}
		return n >= minEvents, nil
	})
}

// BarCount returns the number of rendered chart bars.
func (c *ChartsPage) BarCount() (int, error) {
	count, err := c.page.Locator(chartBars).Count()
	if err != nil {
		return 0, fmt.Errorf("count chart bars: %w", err)
	}
	return count, nil
}
