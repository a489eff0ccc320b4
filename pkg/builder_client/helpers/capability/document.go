package capability

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

const capabilityStatementKind = "CapabilityStatement"

// ErrInvalidDocumentKind is returned when the fetched document is not a
// FHIR CapabilityStatement.
var ErrInvalidDocumentKind = errors.New("document is not a FHIR CapabilityStatement")

// Document is the typed view of the parts of a CapabilityStatement we use.
type Document struct {
	ResourceType   string
	FHIRVersion    string
	Implementation *Implementation
	Rest           []Rest
}

type Implementation struct {
	URL         string
	Description string
}

type Rest struct {
	Mode      string
	Resources []Resource
}

// Resource is one rest[].resource[] entry. Type is empty when the source
// entry had none.
type Resource struct {
	Type         string
	Interactions []string
	SearchParams []models.SearchParameter
}

// ServerBlock returns the first rest entry in server mode.
func (d *Document) ServerBlock() (*Rest, bool) {
	for i := range d.Rest {
		if d.Rest[i].Mode == "server" {
			return &d.Rest[i], true
		}
	}
	return nil, false
}

// ParseDocument checks the resourceType discriminator and converts the raw
// JSON into a Document. Malformed nested entries are tolerated and dropped.
func ParseDocument(raw []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrInvalidDocumentKind)
	}
	kind, err := jsonparser.GetString(trimmed, "resourceType")
	if err != nil {
		return nil, fmt.Errorf("%w: missing resourceType", ErrInvalidDocumentKind)
	}
	if kind != capabilityStatementKind {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidDocumentKind, kind)
	}

	doc := &Document{ResourceType: kind}
	doc.FHIRVersion, _ = jsonparser.GetString(trimmed, "fhirVersion")

	if implRaw, dt, _, err := jsonparser.Get(trimmed, "implementation"); err == nil && dt == jsonparser.Object {
		impl := &Implementation{}
		impl.URL, _ = jsonparser.GetString(implRaw, "url")
		impl.Description, _ = jsonparser.GetString(implRaw, "description")
		doc.Implementation = impl
	}

	_, _ = jsonparser.ArrayEach(trimmed, func(value []byte, dt jsonparser.ValueType, _ int, _ error) {
		if dt != jsonparser.Object {
			return
		}
		doc.Rest = append(doc.Rest, parseRest(value))
	}, "rest")

	return doc, nil
}

func parseRest(raw []byte) Rest {
	var rest Rest
	rest.Mode, _ = jsonparser.GetString(raw, "mode")
	_, _ = jsonparser.ArrayEach(raw, func(value []byte, dt jsonparser.ValueType, _ int, _ error) {
		if dt != jsonparser.Object {
			return
		}
		rest.Resources = append(rest.Resources, parseResource(value))
	}, "resource")
	return rest
}

func parseResource(raw []byte) Resource {
	var res Resource
	res.Type, _ = jsonparser.GetString(raw, "type")
	res.Type = strings.TrimSpace(res.Type)

	_, _ = jsonparser.ArrayEach(raw, func(value []byte, dt jsonparser.ValueType, _ int, _ error) {
		if dt != jsonparser.Object {
			return
		}
		if code, err := jsonparser.GetString(value, "code"); err == nil && code != "" {
			res.Interactions = append(res.Interactions, code)
		}
	}, "interaction")

	_, _ = jsonparser.ArrayEach(raw, func(value []byte, dt jsonparser.ValueType, _ int, _ error) {
		if dt != jsonparser.Object {
			return
		}
		name, err := jsonparser.GetString(value, "name")
		if err != nil || name == "" {
			return
		}
		sp := models.SearchParameter{Name: name}
		sp.Type, _ = jsonparser.GetString(value, "type")
		sp.Documentation, _ = jsonparser.GetString(value, "documentation")
		res.SearchParams = append(res.SearchParams, sp)
	}, "searchParam")

	return res
}
