package model

import (
	"errors"
	"fmt"
)

// DataAccessError means a source file is missing, unreadable, or does not
// have the expected sheet/header layout. It aborts the whole pipeline.
type DataAccessError struct {
	Resource string // file path, optionally with sheet
	Err      error
}

func (e *DataAccessError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("data access: %s", e.Resource)
	}
	return fmt.Sprintf("data access: %s: %v", e.Resource, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// NewDataAccessError wraps err as a failure to read resource.
func NewDataAccessError(resource string, err error) *DataAccessError {
	return &DataAccessError{Resource: resource, Err: err}
}

// EmptyDataError means data was readable but a stage produced no usable rows.
type EmptyDataError struct {
	Stage  string
	Reason string
}

func (e *EmptyDataError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("empty data: %s produced no rows", e.Stage)
	}
	return fmt.Sprintf("empty data: %s: %s", e.Stage, e.Reason)
}

// NewEmptyDataError reports that stage yielded nothing usable.
func NewEmptyDataError(stage, reason string) *EmptyDataError {
	return &EmptyDataError{Stage: stage, Reason: reason}
}

// NotTrainedError is returned when a predictor operation runs before Train.
type NotTrainedError struct {
	Op string
}

func (e *NotTrainedError) Error() string {
	return fmt.Sprintf("model not trained: %s requires a trained model", e.Op)
}

// DegenerateMetricError means a metric has no defined value for its inputs.
type DegenerateMetricError struct {
	Metric string
	Reason string
}

func (e *DegenerateMetricError) Error() string {
	return fmt.Sprintf("degenerate metric %s: %s", e.Metric, e.Reason)
}

// InvalidArgumentError rejects a caller-supplied value.
type InvalidArgumentError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// IsDataAccess reports whether err (or any error in its chain) is a DataAccessError.
func IsDataAccess(err error) bool {
	var target *DataAccessError
	return errors.As(err, &target)
}

// IsEmptyData reports whether err (or any error in its chain) is an EmptyDataError.
func IsEmptyData(err error) bool {
	var target *EmptyDataError
	return errors.As(err, &target)
}

// IsNotTrained reports whether err (or any error in its chain) is a NotTrainedError.
func IsNotTrained(err error) bool {
	var target *NotTrainedError
	return errors.As(err, &target)
}

// IsDegenerateMetric reports whether err (or any error in its chain) is a DegenerateMetricError.
func IsDegenerateMetric(err error) bool {
	var target *DegenerateMetricError
	return errors.As(err, &target)
}

// IsInvalidArgument reports whether err (or any error in its chain) is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var target *InvalidArgumentError
	return errors.As(err, &target)
}
