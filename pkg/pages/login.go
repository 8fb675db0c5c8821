package pages

import "fmt"

// selectors for the login screen.
const (
	loginForm     = "form#login-form"
	loginUsername = "input#username"
	loginPassword = "input#password"
	loginSubmit   = "button[type='submit']"
	loginError    = ".login-error"
)

// LoginPage drives the sign-in screen.
type LoginPage struct {
	base
}

// NewLoginPage creates a login page object over a live page.
func NewLoginPage(p Params) *LoginPage {
	return &LoginPage{base: newBase(p)}
}

// Open navigates to the login screen and waits for the form to render.
func (l *LoginPage) Open() error {
	if err := l.open("/login"); err != nil {
		return err
	}
	_, err := l.waitVisible(loginForm)
	return err
}

// SubmitCredentials fills the form and submits it. it does not wait for the
// outcome; callers assert success via DashboardPage.WaitLoaded or failure via
// ErrorMessage.
func (l *LoginPage) SubmitCredentials(username, password string) error {
	user, err := l.waitVisible(loginUsername)
	if err != nil {
		return err
	}
	if err := user.Fill(username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}

	pass, err := l.waitVisible(loginPassword)
	if err != nil {
		return err
	}
	if err := pass.Fill(password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	if err := l.page.Locator(loginSubmit).First().Click(); err != nil {
		return fmt.Errorf("click submit: %w", err)
	}
	return nil
}

// ErrorMessage waits for the login error element to become visible and returns
// its text. a TimeoutError means no error was shown within the bound.
func (l *LoginPage) ErrorMessage() (string, error) {
	locator, err := l.waitVisible(loginError)
	if err != nil {
		return "", err
	}
	text, err := locator.TextContent()
	if err != nil {
		return "", fmt.Errorf("read login error text: %w", err)
	}
	return text, nil
}

// FormVisible reports whether the login form is currently displayed.
func (l *LoginPage) FormVisible() (bool, error) {
	return l.visible(loginForm)
}
