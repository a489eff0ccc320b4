package capability

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

const (
	// PlaceholderServerURL is used when the statement does not declare implementation.url.
	PlaceholderServerURL = "https://your-fhir-server.example.com/fhir"
	UnknownVersion       = "Unknown"

	maxRecommended      = 8
	fallbackRecommended = 5
)

// PriorityResources are the common clinical resource types recommended
// first, in this order, when a server supports them.
var PriorityResources = []string{
	"Patient",
	"Observation",
	"Condition",
	"MedicationRequest",
	"Encounter",
	"Procedure",
	"AllergyIntolerance",
	"Immunization",
	"DiagnosticReport",
	"Practitioner",
}

// Analyzer turns a CapabilityStatement into a CapabilityAnalysis.
type Analyzer struct {
	log      zerolog.Logger
	priority []string
}

func NewAnalyzer(logger zerolog.Logger) *Analyzer {
	return &Analyzer{log: logger, priority: PriorityResources}
}

// WithPriority returns a copy of the analyzer using a different priority list.
func (a *Analyzer) WithPriority(priority []string) *Analyzer {
	cp := *a
	cp.priority = priority
	return &cp
}

// Analyze parses raw and summarises the server capabilities. It fails with
// ErrInvalidDocumentKind before looking at anything but the discriminator.
func (a *Analyzer) Analyze(raw []byte) (*models.CapabilityAnalysis, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeDocument(doc), nil
}

// AnalyzeDocument summarises an already parsed document.
func (a *Analyzer) AnalyzeDocument(doc *Document) *models.CapabilityAnalysis {
	out := &models.CapabilityAnalysis{
		ServerUrl:              resolveServerURL(doc.Implementation),
		Version:                UnknownVersion,
		SupportedResources:     []string{},
		Interactions:           map[string][]string{},
		SearchParameters:       map[string][]string{},
		SearchParameterDetails: map[string][]models.SearchParameter{},
		RecommendedResources:   []string{},
	}
	if v := strings.TrimSpace(doc.FHIRVersion); v != "" {
		out.Version = v
	}

	server, ok := doc.ServerBlock()
	if !ok {
		a.log.Warn().Str("serverUrl", out.ServerUrl).Msg("capability statement has no server-mode rest block")
		return out
	}

	skipped := 0
	for _, res := range server.Resources {
		if res.Type == "" {
			skipped++
			continue
		}
		out.SupportedResources = append(out.SupportedResources, res.Type)
		if len(res.Interactions) > 0 {
			out.Interactions[res.Type] = append(out.Interactions[res.Type], res.Interactions...)
		}
		if len(res.SearchParams) > 0 {
			names := make([]string, 0, len(res.SearchParams))
			for _, sp := range res.SearchParams {
				names = append(names, sp.Name)
			}
			out.SearchParameters[res.Type] = append(out.SearchParameters[res.Type], names...)
			out.SearchParameterDetails[res.Type] = append(out.SearchParameterDetails[res.Type], res.SearchParams...)
		}
	}
	if skipped > 0 {
		a.log.Debug().Int("skipped", skipped).Msg("ignored resource entries without type")
	}

	out.RecommendedResources = a.recommend(out.SupportedResources)
	return out
}

func (a *Analyzer) recommend(supported []string) []string {
	present := make(map[string]struct{}, len(supported))
	for _, s := range supported {
		present[s] = struct{}{}
	}

	rec := []string{}
	for _, p := range a.priority {
		if _, ok := present[p]; !ok {
			continue
		}
		rec = append(rec, p)
		if len(rec) == maxRecommended {
			break
		}
	}
	if len(rec) > 0 {
		return rec
	}

	n := fallbackRecommended
	if len(supported) < n {
		n = len(supported)
	}
	return append(rec, supported[:n]...)
}

func resolveServerURL(impl *Implementation) string {
	if impl == nil {
		return PlaceholderServerURL
	}
	u := strings.TrimSpace(impl.URL)
	if u == "" {
		return PlaceholderServerURL
	}
	return StripMetadataSuffix(u)
}

// StripMetadataSuffix removes a trailing /metadata or /metadata/ segment.
func StripMetadataSuffix(u string) string {
	if s, ok := strings.CutSuffix(u, "/metadata/"); ok {
		return s
	}
	if s, ok := strings.CutSuffix(u, "/metadata"); ok {
		return s
	}
	return u
}
