package domain

import "errors"

// ErrInvalidInput indicates that an ask request is malformed, e.g. a blank
// question or a non-positive character limit. It signals a caller bug rather
// than a pipeline failure.
var ErrInvalidInput = errors.New("invalid ask input")

// ErrBackendFailure wraps any error returned by an answering backend for a
// single attempt. It is recorded in the attempt history and never aborts a run.
var ErrBackendFailure = errors.New("backend failure")

// ErrValidationRejection marks an attempt whose sanitized answer failed an
// acceptance criterion. It is recorded and the next attempt proceeds.
var ErrValidationRejection = errors.New("answer rejected")

// ErrExhaustedRetries indicates that every attempt of a run failed.
var ErrExhaustedRetries = errors.New("exhausted retries")

// ErrInvalidQuestionnaire indicates that a batch questionnaire failed validation.
var ErrInvalidQuestionnaire = errors.New("invalid questionnaire")
