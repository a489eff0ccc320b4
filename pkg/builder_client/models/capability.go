package models

import "time"

type SearchParameter struct {
	Name          string `json:"name"`
	Type          string `json:"type,omitempty"`
	Documentation string `json:"documentation,omitempty"`
}

// CapabilityAnalysis is de genormaliseerde samenvatting van een CapabilityStatement.
type CapabilityAnalysis struct {
	ServerUrl              string                       `json:"serverUrl"`
	Version                string                       `json:"version"`
	SupportedResources     []string                     `json:"supportedResources"`
	Interactions           map[string][]string          `json:"interactions"`
	SearchParameters       map[string][]string          `json:"searchParameters"`
	SearchParameterDetails map[string][]SearchParameter `json:"searchParameterDetails,omitempty"`
	RecommendedResources   []string                     `json:"recommendedResources"`
	Complexity             *ComplexityEstimate          `json:"complexity,omitempty"`
}

type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "simple"
	ComplexityModerate ComplexityLevel = "moderate"
	ComplexityComplex  ComplexityLevel = "complex"
)

type ComplexityEstimate struct {
	Complexity     ComplexityLevel `json:"complexity"`
	EstimatedHours int             `json:"estimatedHours"`
	TotalWeight    int             `json:"totalWeight"`
	Factors        []string        `json:"factors"`
}

// ResourceSupportCheck is the outcome of validating requested resources
// against the resources a server supports.
type ResourceSupportCheck struct {
	Valid                bool     `json:"valid"`
	UnsupportedResources []string `json:"unsupportedResources"`
	Suggestions          []string `json:"suggestions"`
}

// CapabilityParams is de query van GET /api/builder/capability-statement
type CapabilityParams struct {
	Url string `query:"url"`
}

type CapabilityResponse struct {
	Success   bool                `json:"success"`
	Url       string              `json:"url"`
	Analysis  *CapabilityAnalysis `json:"analysis"`
	Timestamp time.Time           `json:"timestamp"`
}

// ValidateResourcesInput is de body van POST /api/builder/validate-resources
type ValidateResourcesInput struct {
	CapabilityStatementUrl string   `json:"capabilityStatementUrl" binding:"required,http_url"`
	Resources              []string `json:"resources" binding:"required,min=1,dive,required"`
}

type ValidateResourcesResponse struct {
	Success    bool                 `json:"success"`
	Check      ResourceSupportCheck `json:"check"`
	Complexity ComplexityEstimate   `json:"complexity"`
}

// BuildParams carries the build id path parameter.
type BuildParams struct {
	BuildID string `path:"buildId"`
}
