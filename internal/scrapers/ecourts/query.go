package ecourts

import (
	"context"
	"fmt"

	"ecourts-backend/internal/portal"
)

// Load navigates to the query form and fills in the case identifier, leaving the
// challenge ready to be captured.
func Load(ctx context.Context, page portal.Page, sel portal.Selectors, timeouts portal.Timeouts, baseURL, caseID string) error {
	err := page.Navigate(ctx, baseURL)
	if err != nil {
		return fmt.Errorf("navigate to portal: %w", err)
	}
	err = page.WaitVisible(ctx, sel.CaseIDInput, timeouts.QueryForm)
	if err != nil {
		return fmt.Errorf("wait for query form: %w", err)
	}
	err = page.Type(ctx, sel.CaseIDInput, caseID)
	if err != nil {
		return fmt.Errorf("type case id: %w", err)
	}
	err = page.WaitVisible(ctx, sel.CaptchaImage, timeouts.Table)
	if err != nil {
		return fmt.Errorf("wait for challenge: %w", err)
	}
	return nil
}

// Submit fills in the challenge answer and submits the query.
func Submit(ctx context.Context, page portal.Page, sel portal.Selectors, answer string) error {
	err := page.Type(ctx, sel.CaptchaInput, answer)
	if err != nil {
		return fmt.Errorf("type challenge answer: %w", err)
	}
	err = page.Click(ctx, sel.SubmitButton)
	if err != nil {
		return fmt.Errorf("submit query: %w", err)
	}
	return nil
}

// DismissValidation closes the validation/session alert if it is showing.
func DismissValidation(ctx context.Context, page portal.Page, sel portal.Selectors) (bool, error) {
	visible, err := page.Visible(ctx, sel.ValidationBox)
	if err != nil || !visible {
		return false, err
	}
	err = page.Evaluate(ctx, sel.DismissValidation, nil)
	if err != nil {
		return false, fmt.Errorf("dismiss validation alert: %w", err)
	}
	return true, nil
}
