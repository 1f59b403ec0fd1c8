package onewechat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"votewatch/internal/browser"
	"votewatch/internal/components/assert"
	"votewatch/internal/components/telemetry"
)

const (
	report_authenticator_navigate = "authenticator.navigate"
	report_authenticator_strategy = "authenticator.strategy"
	report_authenticator_click    = "authenticator.click"
	report_authenticator_dialog   = "authenticator.dialog"
	report_authenticator_page     = "authenticator.page-error"
	report_authenticator_exhaust  = "authenticator.exhausted"
)

const (
	usernameSelector   = "input[type='text']"
	passwordSelector   = "input[type='password']"
	loginButton        = "div.btn"
	pageErrorSelectors = ".error, .alert, .warning, .text-danger"
)

// Authenticator logs a browser session into the voting site.
type Authenticator struct {
	driver browser.Driver
	target string
	timing Timing
	tel    telemetry.API
}

func NewAuthenticator(driver browser.Driver, target string, timing Timing, tel telemetry.API) *Authenticator {
	assert.NotNil(driver)
	assert.NotNil(tel)
	assert.NotEmptyStr(target)
	return &Authenticator{
		driver: driver,
		target: target,
		timing: timing,
		tel:    tel,
	}
}

type loginStrategy struct {
	name    string
	attempt func(ctx context.Context, creds Credentials) error
}

func (a *Authenticator) strategies() []loginStrategy {
	return []loginStrategy{
		{name: "direct-injection", attempt: a.directInjection},
		{name: "interactive", attempt: a.interactive},
		{name: "hybrid", attempt: a.hybrid},
	}
}

// Authenticate navigates to the target page and, if it shows a login
// challenge, tries each login strategy in order until one is verified.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) bool {
	err := a.driver.Navigate(ctx, a.target)
	if err != nil {
		a.tel.ReportWarning(report_authenticator_navigate, err)
		return false
	}
	if settle(ctx, a.timing.Settle) != nil {
		return false
	}

	title, err := a.driver.Title(ctx)
	if err != nil {
		a.tel.ReportWarning(report_authenticator_navigate, fmt.Errorf("read title: %w", err))
		return false
	}
	if !strings.Contains(title, LoginTitleMarker) {
		a.tel.ReportDebug("no login challenge", telemetry.KV{Key: "title", Value: title})
		return true
	}

	a.tel.ReportDebug("login challenge present", telemetry.KV{Key: "title", Value: title})
	if settle(ctx, a.timing.Settle) != nil {
		return false
	}

	for _, strategy := range a.strategies() {
		if ctx.Err() != nil {
			a.tel.ReportWarning(report_authenticator_exhaust, ctx.Err())
			return false
		}
		a.tel.ReportDebug("trying login strategy", telemetry.KV{Key: "strategy", Value: strategy.name})

		err := strategy.attempt(ctx, creds)
		if err != nil {
			a.tel.ReportWarning(
				report_authenticator_strategy,
				telemetry.KV{Key: "strategy", Value: strategy.name},
				err,
			)
			if ctx.Err() != nil {
				return false
			}
			a.inspectFailure(ctx)
			continue
		}
		if settle(ctx, a.timing.LoginSettle) != nil {
			return false
		}
		if a.loggedIn(ctx) {
			a.tel.ReportDebug("login succeeded", telemetry.KV{Key: "strategy", Value: strategy.name})
			return true
		}
		a.inspectFailure(ctx)
	}

	a.tel.ReportWarning(report_authenticator_exhaust, fmt.Errorf("tried %d strategies", len(a.strategies())))
	return false
}

// loggedIn reports whether any one of the page heuristics indicates the
// login page was left.
func (a *Authenticator) loggedIn(ctx context.Context) bool {
	url, err := a.driver.URL(ctx)
	if err != nil {
		a.tel.ReportWarning(report_authenticator_navigate, fmt.Errorf("read url: %w", err))
		return false
	}
	title, err := a.driver.Title(ctx)
	if err != nil {
		a.tel.ReportWarning(report_authenticator_navigate, fmt.Errorf("read title: %w", err))
		return false
	}
	a.tel.ReportDebug(
		"post-login page",
		telemetry.KV{Key: "url", Value: url},
		telemetry.KV{Key: "title", Value: title},
	)
	return LoggedIn(url, title)
}

// LoggedIn is the success check shared by every strategy.
func LoggedIn(url, title string) bool {
	lowerURL := strings.ToLower(url)
	return !strings.Contains(lowerURL, LoginURLMarker) ||
		!strings.Contains(title, LoginTitleMarker) ||
		strings.Contains(lowerURL, VoteURLMarker) ||
		strings.Contains(title, VoteTitleMarker)
}

// inspectFailure accepts a blocking dialog if one is open, otherwise it
// logs whatever error messages the page shows.
func (a *Authenticator) inspectFailure(ctx context.Context) {
	msg, open, err := a.driver.DismissDialog(ctx)
	if err != nil {
		a.tel.ReportWarning(report_authenticator_dialog, err)
	}
	if open {
		a.tel.ReportWarning(report_authenticator_dialog, telemetry.KV{Key: "message", Value: msg})
		return
	}

	elements, err := a.driver.FindElements(ctx, browser.ByCSS, pageErrorSelectors)
	if err != nil {
		a.tel.ReportDebug("no page error messages found", telemetry.KV{Key: "err", Value: err})
		return
	}
	for _, el := range elements {
		text, err := a.driver.Text(ctx, el)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		a.tel.ReportWarning(report_authenticator_page, telemetry.KV{Key: "message", Value: strings.TrimSpace(text)})
	}
}

func jsString(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

func credentialScript(creds Credentials, login bool) string {
	call := ""
	if login {
		call = "vm.login();"
	}
	return fmt.Sprintf(`(() => {
	if (typeof vm === 'undefined') {
		return false;
	}
	vm.username = %s;
	vm.password = %s;
	%s
	return true;
})()`, jsString(creds.Identifier), jsString(creds.Secret), call)
}

func (a *Authenticator) writeCredentials(ctx context.Context, creds Credentials, login bool) error {
	var reachable bool
	err := a.driver.Evaluate(ctx, credentialScript(creds, login), &reachable)
	if err != nil {
		return fmt.Errorf("evaluate credential script: %w", err)
	}
	if !reachable {
		return fmt.Errorf("login application state is not reachable")
	}
	return nil
}

func (a *Authenticator) directInjection(ctx context.Context, creds Credentials) error {
	return a.writeCredentials(ctx, creds, true)
}

func (a *Authenticator) interactive(ctx context.Context, creds Credentials) error {
	err := a.driver.WaitFor(ctx, browser.ByCSS, usernameSelector, a.timing.waitTimeout())
	if err != nil {
		return fmt.Errorf("wait for username input: %w", err)
	}

	fields := []struct {
		selector string
		value    string
	}{
		{selector: usernameSelector, value: creds.Identifier},
		{selector: passwordSelector, value: creds.Secret},
	}
	for _, field := range fields {
		input, ok, err := browser.First(a.driver.FindElements(ctx, browser.ByCSS, field.selector))
		if err != nil {
			return fmt.Errorf("find %s: %w", field.selector, err)
		}
		if !ok {
			return fmt.Errorf("no element matches %s", field.selector)
		}
		err = a.driver.Type(ctx, input, field.value)
		if err != nil {
			return fmt.Errorf("fill %s: %w", field.selector, err)
		}
	}

	return a.clickLogin(ctx)
}

func (a *Authenticator) hybrid(ctx context.Context, creds Credentials) error {
	err := a.writeCredentials(ctx, creds, false)
	if err != nil {
		return err
	}
	if err := settle(ctx, a.timing.HybridPause); err != nil {
		return err
	}
	return a.clickLogin(ctx)
}

// clickLogin tries each click technique on the login control, moving on
// only when the previous one returned an error.
func (a *Authenticator) clickLogin(ctx context.Context) error {
	button, ok, err := browser.First(a.driver.FindElements(ctx, browser.ByCSS, loginButton))
	if err != nil {
		return fmt.Errorf("find login button: %w", err)
	}
	if !ok {
		return fmt.Errorf("no element matches %s", loginButton)
	}

	techniques := []struct {
		name  string
		click func() error
	}{
		{name: "native", click: func() error {
			return a.driver.Click(ctx, button)
		}},
		{name: "script-handle", click: func() error {
			return a.driver.ScriptClick(ctx, button)
		}},
		{name: "script-selector", click: func() error {
			script := fmt.Sprintf("document.querySelector(%s).click()", jsString(loginButton))
			return a.driver.Evaluate(ctx, script, nil)
		}},
	}

	var lastErr error
	for _, technique := range techniques {
		lastErr = technique.click()
		if lastErr == nil {
			a.tel.ReportDebug("clicked login button", telemetry.KV{Key: "technique", Value: technique.name})
			return nil
		}
		a.tel.ReportWarning(
			report_authenticator_click,
			telemetry.KV{Key: "technique", Value: technique.name},
			lastErr,
		)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("every click technique failed: %w", lastErr)
}
