package errors

import "errors"

var ErrInvalidCorrelationId = errors.New("correlationId must be exactly 36 characters")
var ErrInvalidAmount = errors.New("amount must be a positive number")
var ErrShuttingDown = errors.New("queue is shutting down")
var ErrInvalidDateTime = errors.New("invalid date time")
