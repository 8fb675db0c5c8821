package pages

import "fmt"

// selectors for the dashboard overview screen.
const (
	dashboardHeader  = "header.app-header h1"
	dashboardSidebar = "aside#sidebar"
	dashboardWidgets = ".summary-widget"
	dashboardUser    = "#user-name"
	logoutButton     = "#logout"

	navResults = "a[data-nav='results']"
	navCharts  = "a[data-nav='charts']"
)

// DashboardPage drives the main dashboard screen: header, sidebar navigation,
// and summary widgets.
type DashboardPage struct {
	base
}

// NewDashboardPage creates a dashboard page object over a live page.
func NewDashboardPage(p Params) *DashboardPage {
	return &DashboardPage{base: newBase(p)}
}

// Open navigates to the dashboard root and waits for it to load.
func (d *DashboardPage) Open() error {
	if err := d.open("/"); err != nil {
		return err
	}
	return d.WaitLoaded()
}

// WaitLoaded waits for the dashboard header to render. used after login to
// assert the transition from the login screen.
func (d *DashboardPage) WaitLoaded() error {
	_, err := d.waitVisible(dashboardHeader)
	return err
}

// HeaderVisible reports whether the application header is displayed.
func (d *DashboardPage) HeaderVisible() (bool, error) {
	return d.visible(dashboardHeader)
}

// SidebarVisible reports whether the navigation sidebar is displayed.
func (d *DashboardPage) SidebarVisible() (bool, error) {
	return d.visible(dashboardSidebar)
}

// CurrentUser waits for the signed-in user indicator and returns its text.
func (d *DashboardPage) CurrentUser() (string, error) {
	locator, err := d.waitVisible(dashboardUser)
	if err != nil {
		return "", err
	}
	text, err := locator.TextContent()
	if err != nil {
		return "", fmt.Errorf("read user name: %w", err)
	}
	return text, nil
}

// WidgetCount waits for at least one summary widget and returns how many are
// rendered.
func (d *DashboardPage) WidgetCount() (int, error) {
	if _, err := d.waitVisible(dashboardWidgets); err != nil {
		return 0, err
	}
	count, err := d.page.Locator(dashboardWidgets).Count()
	if err != nil {
		return 0, fmt.Errorf("count widgets: %w", err)
	}
	return count, nil
}

// OpenResults clicks the results navigation link and waits for the results
// screen URL.
func (d *DashboardPage) OpenResults() error {
	link, err := d.waitVisible(navResults)
	if err != nil {
		return err
	}
	if err := link.Click(); err != nil {
		return fmt.Errorf("click results nav: %w", err)
	}
	return d.waitURL("/results")
}

// OpenCharts clicks the charts navigation link and waits for the charts
// screen URL.
func (d *DashboardPage) OpenCharts() error {
	link, err := d.waitVisible(navCharts)
	if err != nil {
		return err
	}
	if err := link.Click(); err != nil {
		return fmt.Errorf("click charts nav: %w", err)
	}
	return d.waitURL("/charts")
}

// Logout clicks the logout control and waits for the login form to reappear,
// confirming the session was invalidated.
func (d *DashboardPage) Logout() error {
	btn, err := d.waitVisible(logoutButton)
	if err != nil {
		return err
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("click logout: %w", err)
	}
	_, err = d.waitVisible(loginForm)
	return err
}
