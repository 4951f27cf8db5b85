package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorUnauthorized is returned by handlers when the caller's identity or
// signature could not be verified.
var ErrorUnauthorized = errors.New("unauthorized")
