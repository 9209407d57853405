package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Is(t *testing.T) {
	err := NavigationError("https://example.com", fmt.Errorf("timeout"))

	if !errors.Is(err, ErrNavigationFailed) {
		t.Error("expected errors.Is to match ErrNavigationFailed")
	}
	if errors.Is(err, ErrAccessBlocked) {
		t.Error("did not expect errors.Is to match ErrAccessBlocked")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := DatabaseError(cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestRejectedError_Stages(t *testing.T) {
	mapErr := RejectedError(StageMappingReview, "wrong email field")
	if !errors.Is(mapErr, ErrMappingRejected) {
		t.Error("mapping rejection should match ErrMappingRejected")
	}

	subErr := RejectedError(StageSubmissionReview, "")
	if !errors.Is(subErr, ErrSubmissionRejected) {
		t.Error("submission rejection should match ErrSubmissionRejected")
	}
}

func TestAuthRequiredError(t *testing.T) {
	err := AuthRequiredError("linkedin")
	if !errors.Is(err, ErrAuthRequired) {
		t.Error("expected errors.Is to match ErrAuthRequired")
	}
	if !IsCode(err, ErrCodeAuthRequired) {
		t.Error("expected AUTHENTICATION_REQUIRED code")
	}
}

func TestIsCode(t *testing.T) {
	err := ValidationError("keywords", "must not be empty")
	if !IsCode(err, ErrCodeValidation) {
		t.Error("expected IsCode to match VALIDATION_ERROR")
	}
	if IsCode(err, ErrCodeDatabase) {
		t.Error("did not expect IsCode to match DATABASE_ERROR")
	}
	if IsCode(fmt.Errorf("plain"), ErrCodeValidation) {
		t.Error("plain error should not match any code")
	}
}
