package scaffold

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

const defaultAppName = "fhir-app"

// resource types end up in paths, routes and identifiers of every stack
var resourceTypePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// Context is the substitution context every stack renders from.
type Context struct {
	Stack              models.Stack
	ServerURL          string
	FHIRVersion        string
	SupportedResources []string
	Interactions       map[string][]string
	SearchParameters   map[string][]string
	RequestedResources []string
	AppName            string
	Description        string
	Features           []string
}

// ResourceContext is passed to per-resource templates.
type ResourceContext struct {
	Context
	Resource     string
	Interactions []string
	SearchParams []string
}

// NewContext combines a build request with the capability analysis.
func NewContext(req models.BuildRequest, analysis *models.CapabilityAnalysis) Context {
	c := Context{
		Stack:              req.Stack,
		RequestedResources: req.Resources,
		AppName:            req.AppName,
		Description:        req.Description,
		Features:           req.Features,
	}
	if analysis != nil {
		c.ServerURL = analysis.ServerUrl
		c.FHIRVersion = analysis.Version
		c.SupportedResources = analysis.SupportedResources
		c.Interactions = analysis.Interactions
		c.SearchParameters = analysis.SearchParameters
	}
	if c.AppName == "" {
		c.AppName = defaultAppName
	}
	if c.Description == "" {
		c.Description = fmt.Sprintf("FHIR application for %s", c.ServerURL)
	}
	return c
}

func (c Context) validate() error {
	switch {
	case strings.TrimSpace(c.ServerURL) == "":
		return &TemplateRenderError{Param: "ServerURL"}
	case len(c.RequestedResources) == 0:
		return &TemplateRenderError{Param: "RequestedResources"}
	case c.Interactions == nil:
		return &TemplateRenderError{Param: "Interactions"}
	case c.SearchParameters == nil:
		return &TemplateRenderError{Param: "SearchParameters"}
	}
	for _, r := range c.RequestedResources {
		if !resourceTypePattern.MatchString(r) {
			return &TemplateRenderError{
				Template: "context",
				Err:      fmt.Errorf("resource type %q is not a valid identifier", r),
			}
		}
	}
	return nil
}

// Slug is the app name usable as a package or directory name.
func (c Context) Slug() string {
	if s := slugify(c.AppName); s != "" {
		return s
	}
	return defaultAppName
}

func (c Context) HasFeature(name string) bool {
	for _, f := range c.Features {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// Resources returns a per-resource context for every distinct requested resource.
func (c Context) Resources() []ResourceContext {
	out := make([]ResourceContext, 0, len(c.RequestedResources))
	seen := map[string]struct{}{}
	for _, r := range c.RequestedResources {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, ResourceContext{
			Context:      c,
			Resource:     r,
			Interactions: c.Interactions[r],
			SearchParams: c.SearchParameters[r],
		})
	}
	return out
}

// Supports reports whether the server declared the interaction for this
// resource. Resources without declared interactions are assumed readable
// and searchable.
func (r ResourceContext) Supports(code string) bool {
	if len(r.Interactions) == 0 {
		return code == "read" || code == "search-type"
	}
	for _, i := range r.Interactions {
		if i == code {
			return true
		}
	}
	return false
}

func (r ResourceContext) Slug() string {
	if s := slugify(r.Resource); s != "" {
		return s
	}
	return "resource"
}

// Module is the slug as a Python module name.
func (r ResourceContext) Module() string {
	return strings.ReplaceAll(r.Slug(), "-", "_")
}

// Ident is the resource name reduced to letters and digits.
func (r ResourceContext) Ident() string {
	var b strings.Builder
	for _, ch := range r.Resource {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			b.WriteRune(ch)
		}
	}
	if b.Len() == 0 {
		return "Resource"
	}
	return b.String()
}

func slugify(s string) string {
	var b strings.Builder
	prevLower := false
	for _, ch := range strings.TrimSpace(s) {
		if ch < unicode.MaxASCII && (unicode.IsLetter(ch) || unicode.IsDigit(ch)) {
			if unicode.IsUpper(ch) && prevLower {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(ch))
			prevLower = !unicode.IsUpper(ch)
			continue
		}
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
			b.WriteByte('-')
		}
		prevLower = false
	}
	return strings.Trim(b.String(), "-")
}
