package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBuildNotFound means the build id is unknown or its artifact was swept.
var ErrBuildNotFound = errors.New("build not found")

// UnsupportedResourcesError is returned when a build requests resource types
// the FHIR server does not declare. Supported is the full list from the
// server so callers can present alternatives.
type UnsupportedResourcesError struct {
	Unsupported []string
	Supported   []string
	Suggestions []string
}

func (e *UnsupportedResourcesError) Error() string {
	return fmt.Sprintf("resources not supported by the FHIR server: %s", strings.Join(e.Unsupported, ", "))
}
