// Package errors holds the typed errors shared by the harness packages.
package errors

import (
	"errors"
	"fmt"
)

// PublishError is returned when an ingestion request could not be handed to
// the broker. No status polling happens after it.
type PublishError struct {
	StableID string
	Err      error
}

func NewPublishError(stableID string, err error) *PublishError {
	return &PublishError{StableID: stableID, Err: err}
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish ingestion request %s: %v", e.StableID, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

func IsPublishError(err error) bool {
	var e *PublishError
	return errors.As(err, &e)
}

// QueryError is returned when the status source cannot be reached.
type QueryError struct {
	FileName string
	Err      error
}

func NewQueryError(fileName string, err error) *QueryError {
	return &QueryError{FileName: fileName, Err: err}
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to query ingestion status of %q: %v", e.FileName, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func IsQueryError(err error) bool {
	var e *QueryError
	return errors.As(err, &e)
}

type ResourceNotFoundError struct {
	kind string
	id   string
}

func NewResourceNotFoundError(kind, id string) *ResourceNotFoundError {
	return &ResourceNotFoundError{kind: kind, id: id}
}

func NewTraceKeyNotFoundError(key string) *ResourceNotFoundError {
	return NewResourceNotFoundError("trace key", key)
}

func NewScenarioNotFoundError(id string) *ResourceNotFoundError {
	return NewResourceNotFoundError("scenario", id)
}

func NewContainerNotFoundError(name string) *ResourceNotFoundError {
	return NewResourceNotFoundError("container", name)
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.kind, e.id)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

// InvalidArgumentError reports a caller supplied value that cannot be used.
type InvalidArgumentError struct {
	Name   string
	Reason string
}

func NewInvalidArgumentError(name, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Name: name, Reason: reason}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Name, e.Reason)
}

func IsInvalidArgumentError(err error) bool {
	var e *InvalidArgumentError
	return errors.As(err, &e)
}

// ScenarioFailedError is returned by a scenario run whose observed status
// does not match any of the expected ones.
type ScenarioFailedError struct {
	Scenario string
	Expected []string
	Observed string
}

func NewScenarioFailedError(scenario string, expected []string, observed string) *ScenarioFailedError {
	return &ScenarioFailedError{Scenario: scenario, Expected: expected, Observed: observed}
}

func (e *ScenarioFailedError) Error() string {
	return fmt.Sprintf("scenario %s: expected status in %v, got %q", e.Scenario, e.Expected, e.Observed)
}

func IsScenarioFailedError(err error) bool {
	var e *ScenarioFailedError
	return errors.As(err, &e)
}

// UnsupportedOperationError is returned by a collaborator that cannot carry
// out an operation in its current mode, e.g. stopping a container of a
// deployment managed elsewhere.
type UnsupportedOperationError struct {
	Operation string
	Reason    string
}

func NewUnsupportedOperationError(operation, reason string) *UnsupportedOperationError {
	return &UnsupportedOperationError{Operation: operation, Reason: reason}
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported: %s", e.Operation, e.Reason)
}

func IsUnsupportedOperationError(err error) bool {
	var e *UnsupportedOperationError
	return errors.As(err, &e)
}
