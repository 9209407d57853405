package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/jobreach/jobreach/internal/config"
)

// pwPage implements Page on top of a Playwright page
type pwPage struct {
	page   playwright.Page
	ctx    playwright.BrowserContext
	config config.BrowserConfig
}

func (p *pwPage) Navigate(ctx context.Context, url string) error {
	timeout := float64(p.config.NavTimeout.Milliseconds())
	if deadline, ok := ctx.Deadline(); ok {
		remaining := float64(time.Until(deadline).Milliseconds())
		if remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}

	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(timeout),
	})
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	if resp != nil && resp.Status() >= 400 {
		return fmt.Errorf("page returned status %d", resp.Status())
	}

	// SPAs can keep rendering after networkidle
	p.page.WaitForTimeout(1000)

	return nil
}

func (p *pwPage) Query(selector string) ([]Element, error) {
	loc := p.page.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("counting %q: %w", selector, err)
	}

	elements := make([]Element, 0, count)
	for i := 0; i < count; i++ {
		elements = append(elements, &pwElement{loc: loc.Nth(i)})
	}
	return elements, nil
}

func (p *pwPage) First(selector string) (Element, error) {
	loc := p.page.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("counting %q: %w", selector, err)
	}
	if count == 0 {
		return nil, nil
	}
	return &pwElement{loc: loc.First()}, nil
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Title() (string, error) {
	return p.page.Title()
}

func (p *pwPage) Content() (string, error) {
	return p.page.Content()
}

func (p *pwPage) Screenshot(fullPage bool) ([]byte, error) {
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
}

func (p *pwPage) ClickAt(x, y float64) error {
	return p.page.Mouse().Click(x, y)
}

func (p *pwPage) TypeAt(x, y float64, text string) error {
	if err := p.page.Mouse().Click(x, y); err != nil {
		return fmt.Errorf("clicking at (%.0f, %.0f): %w", x, y, err)
	}
	// Replace any pre-filled content
	if err := p.page.Keyboard().Press("Control+a"); err != nil {
		return fmt.Errorf("selecting existing content: %w", err)
	}
	if err := p.page.Keyboard().Type(text); err != nil {
		return fmt.Errorf("typing: %w", err)
	}
	return nil
}

func (p *pwPage) Close() error {
	p.page.Close()
	return p.ctx.Close()
}

// pwElement implements Element on top of a Playwright locator
type pwElement struct {
	loc playwright.Locator
}

func (e *pwElement) Tag() (string, error) {
	result, err := e.loc.Evaluate("el => el.tagName.toLowerCase()", nil)
	if err != nil {
		return "", fmt.Errorf("reading tag name: %w", err)
	}
	tag, _ := result.(string)
	return tag, nil
}

func (e *pwElement) Visible() (bool, error) {
	return e.loc.IsVisible()
}

func (e *pwElement) Text() (string, error) {
	text, err := e.loc.TextContent()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *pwElement) Attribute(name string) (string, error) {
	value, err := e.loc.GetAttribute(name)
	if err != nil {
		// Playwright reports missing attributes as an error
		return "", nil
	}
	return value, nil
}

func (e *pwElement) Query(selector string) (Element, error) {
	loc := e.loc.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("counting %q: %w", selector, err)
	}
	if count == 0 {
		return nil, nil
	}
	return &pwElement{loc: loc.First()}, nil
}

func (e *pwElement) Fill(value string) error {
	return e.loc.Fill(value)
}

func (e *pwElement) Clear() error {
	return e.loc.Clear()
}

func (e *pwElement) Click() error {
	return e.loc.Click()
}

func (e *pwElement) Check() error {
	return e.loc.Check()
}

func (e *pwElement) Uncheck() error {
	return e.loc.Uncheck()
}

func (e *pwElement) SelectByLabel(label string) error {
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{
		Labels: &[]string{label},
	})
	return err
}

func (e *pwElement) SelectByValue(value string) error {
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	return err
}

func (e *pwElement) Options() ([]SelectOption, error) {
	optionLoc := e.loc.Locator("option")
	count, err := optionLoc.Count()
	if err != nil {
		return nil, fmt.Errorf("counting options: %w", err)
	}

	options := make([]SelectOption, 0, count)
	for i := 0; i < count; i++ {
		opt := optionLoc.Nth(i)
		value, _ := opt.GetAttribute("value")
		label, _ := opt.TextContent()
		options = append(options, SelectOption{
			Value: value,
			Label: strings.TrimSpace(label),
		})
	}
	return options, nil
}

func (e *pwElement) Box() (Box, error) {
	rect, err := e.loc.BoundingBox()
	if err != nil {
		return Box{}, fmt.Errorf("reading bounding box: %w", err)
	}
	if rect == nil {
		return Box{}, fmt.Errorf("element has no bounding box")
	}
	return Box{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height}, nil
}
