package scaffold

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

type manifest struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Stack       string             `yaml:"stack"`
	FHIR        manifestServer     `yaml:"fhir"`
	Resources   []manifestResource `yaml:"resources"`
	Features    []string           `yaml:"features,omitempty"`
}

type manifestServer struct {
	ServerURL          string `yaml:"serverUrl"`
	Version            string `yaml:"version"`
	SupportedResources int    `yaml:"supportedResources"`
}

type manifestResource struct {
	Type             string   `yaml:"type"`
	Interactions     []string `yaml:"interactions,omitempty"`
	SearchParameters []string `yaml:"searchParameters,omitempty"`
}

// sharedFiles are emitted for every stack.
func sharedFiles(c Context) ([]File, error) {
	var fs fileSet
	fs.add("README.md", readmeTemplate, c)
	files, err := fs.result()
	if err != nil {
		return nil, err
	}

	m, err := renderManifest(c)
	if err != nil {
		return nil, err
	}
	doc, err := renderOpenAPI(c)
	if err != nil {
		return nil, err
	}
	return append(files,
		File{Path: "fhir-app.yaml", Content: m},
		File{Path: "openapi.json", Content: doc},
	), nil
}

func renderManifest(c Context) ([]byte, error) {
	m := manifest{
		Name:        c.Slug(),
		Description: c.Description,
		Stack:       string(c.Stack),
		FHIR: manifestServer{
			ServerURL:          c.ServerURL,
			Version:            c.FHIRVersion,
			SupportedResources: len(c.SupportedResources),
		},
		Features: c.Features,
	}
	for _, r := range c.Resources() {
		m.Resources = append(m.Resources, manifestResource{
			Type:             r.Resource,
			Interactions:     r.Interactions,
			SearchParameters: r.SearchParams,
		})
	}
	out, err := yaml.Marshal(&m)
	if err != nil {
		return nil, &TemplateRenderError{Template: "fhir-app.yaml", Err: err}
	}
	return out, nil
}

// renderOpenAPI describes the FHIR routes the scaffold proxies, one path per
// declared interaction of every requested resource.
func renderOpenAPI(c Context) ([]byte, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       c.AppName,
			Description: c.Description,
			Version:     "0.1.0",
		},
		Servers: openapi3.Servers{{URL: "/api/fhir", Description: "Proxy to " + c.ServerURL}},
		Paths:   openapi3.NewPaths(),
	}

	for _, r := range c.Resources() {
		typePath := "/" + r.Ident()
		instancePath := typePath + "/{id}"
		typeItem := &openapi3.PathItem{}
		instanceItem := &openapi3.PathItem{}

		if r.Supports("search-type") {
			params := openapi3.Parameters{}
			seen := map[string]struct{}{}
			for _, sp := range r.SearchParams {
				if _, dup := seen[sp]; dup {
					continue
				}
				seen[sp] = struct{}{}
				params = append(params, &openapi3.ParameterRef{
					Value: openapi3.NewQueryParameter(sp).WithSchema(openapi3.NewStringSchema()),
				})
			}
			typeItem.Get = operation("search"+r.Ident(), "Search "+r.Resource, r.Resource, params, "Search results Bundle")
		}
		if r.Supports("create") {
			op := operation("create"+r.Ident(), "Create "+r.Resource, r.Resource, nil, "Created "+r.Resource)
			op.RequestBody = resourceBody(r.Resource)
			typeItem.Post = op
		}
		idParam := openapi3.Parameters{{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewStringSchema())}}
		if r.Supports("read") {
			instanceItem.Get = operation("read"+r.Ident(), "Read "+r.Resource, r.Resource, idParam, r.Resource+" resource")
		}
		if r.Supports("update") {
			op := operation("update"+r.Ident(), "Update "+r.Resource, r.Resource, idParam, "Updated "+r.Resource)
			op.RequestBody = resourceBody(r.Resource)
			instanceItem.Put = op
		}
		if r.Supports("delete") {
			instanceItem.Delete = operation("delete"+r.Ident(), "Delete "+r.Resource, r.Resource, idParam, "Deleted")
		}

		if len(typeItem.Operations()) > 0 {
			doc.Paths.Set(typePath, typeItem)
		}
		if len(instanceItem.Operations()) > 0 {
			doc.Paths.Set(instancePath, instanceItem)
		}
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, &TemplateRenderError{Template: "openapi.json", Err: err}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, &TemplateRenderError{Template: "openapi.json", Err: fmt.Errorf("marshal: %w", err)}
	}
	return out, nil
}

func operation(id, summary, tag string, params openapi3.Parameters, description string) *openapi3.Operation {
	return &openapi3.Operation{
		OperationID: id,
		Summary:     summary,
		Tags:        []string{tag},
		Parameters:  params,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(200, &openapi3.ResponseRef{
				Value: openapi3.NewResponse().
					WithDescription(description).
					WithContent(openapi3.NewContentWithSchema(openapi3.NewObjectSchema(), []string{"application/fhir+json"})),
			}),
		),
	}
}

func resourceBody(resource string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithDescription(resource + " resource").
			WithRequired(true).
			WithContent(openapi3.NewContentWithSchema(openapi3.NewObjectSchema(), []string{"application/fhir+json"})),
	}
}
