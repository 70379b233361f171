package v1

import (
	"github.com/nbisweden/lega-e2e/internal/models"
)

// NewAttemptFromModel converts a models.Attempt to an API Attempt.
func NewAttemptFromModel(a models.Attempt) Attempt {
	expected := make([]string, 0, len(a.Expected))
	for _, st := range a.Expected {
		expected = append(expected, st.String())
	}

	apiAttempt := Attempt{
		Id:        a.ID,
		Scenario:  a.Scenario,
		StableId:  a.StableID,
		User:      a.User,
		File:      a.FileName,
		Expected:  expected,
		Observed:  a.Observed.String(),
		Passed:    a.Passed,
		ElapsedMs: a.Elapsed.Milliseconds(),
		CreatedAt: a.CreatedAt,
	}

	if a.Error != "" {
		apiAttempt.Error = &a.Error
	}

	return apiAttempt
}
