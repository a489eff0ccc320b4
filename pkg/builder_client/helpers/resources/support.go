package resources

import (
	"fmt"
	"math"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

const (
	simpleMaxWeight   = 6
	moderateMaxWeight = 15
	heavyWeight       = 4
	baseHours         = 4
	hoursPerWeight    = 0.5
)

// Checker validates requested resources and estimates implementation effort.
type Checker struct {
	tables Tables
}

func NewChecker(tables Tables) *Checker {
	return &Checker{tables: tables}
}

// Validate reports which requested resources are not in supported and which
// supported resources could replace them. It never fails.
func (c *Checker) Validate(requested, supported []string) models.ResourceSupportCheck {
	available := make(map[string]struct{}, len(supported))
	for _, s := range supported {
		available[s] = struct{}{}
	}

	unsupported := []string{}
	for _, r := range requested {
		if _, ok := available[r]; !ok {
			unsupported = append(unsupported, r)
		}
	}

	suggestions := []string{}
	seen := map[string]struct{}{}
	for _, r := range unsupported {
		for _, alt := range c.tables.Alternatives[r] {
			if _, ok := available[alt]; !ok {
				continue
			}
			if _, dup := seen[alt]; dup {
				continue
			}
			seen[alt] = struct{}{}
			suggestions = append(suggestions, alt)
		}
	}

	return models.ResourceSupportCheck{
		Valid:                len(unsupported) == 0,
		UnsupportedResources: unsupported,
		Suggestions:          suggestions,
	}
}

// EstimateComplexity sums resource weights and classifies the total.
func (c *Checker) EstimateComplexity(resources []string) models.ComplexityEstimate {
	total := 0
	factors := []string{}
	for _, r := range resources {
		w := c.tables.WeightOf(r)
		total += w
		if w >= heavyWeight {
			factors = append(factors, fmt.Sprintf("%s has complex data structures or workflows (weight %d)", r, w))
		}
	}

	level := models.ComplexitySimple
	switch {
	case total > moderateMaxWeight:
		level = models.ComplexityComplex
		factors = append(factors, fmt.Sprintf("%d resources add up to a large integration surface (total weight %d)", len(resources), total))
	case total > simpleMaxWeight:
		level = models.ComplexityModerate
	}

	return models.ComplexityEstimate{
		Complexity:     level,
		EstimatedHours: int(math.Ceil(baseHours + hoursPerWeight*float64(total))),
		TotalWeight:    total,
		Factors:        factors,
	}
}
