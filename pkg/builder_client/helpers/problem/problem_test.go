package problem_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/archive"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/capability"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/httpclient"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/problem"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/scaffold"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/services"
)

func TestFromBuildError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   problem.Code
	}{
		{"not found", fmt.Errorf("wrapped: %w", services.ErrBuildNotFound), 404, problem.CodeNotFound},
		{"invalid document", fmt.Errorf("analyze: %w", capability.ErrInvalidDocumentKind), 400, problem.CodeInvalidDocument},
		{"invalid url", &httpclient.UpstreamFetchError{Kind: httpclient.KindInvalidURL, URL: "ftp://x"}, 400, problem.CodeInvalidURL},
		{"upstream 404", &httpclient.UpstreamFetchError{Kind: httpclient.KindNotFound, Status: 404}, 400, problem.CodeUpstreamNotFound},
		{"unreachable", &httpclient.UpstreamFetchError{Kind: httpclient.KindUnreachable, Err: errors.New("refused")}, 500, problem.CodeUpstreamUnreachable},
		{"upstream other", &httpclient.UpstreamFetchError{Kind: httpclient.KindOther, Status: 500}, 500, problem.CodeUpstreamFailed},
		{"unsupported", &services.UnsupportedResourcesError{Unsupported: []string{"A", "B"}}, 400, problem.CodeUnsupportedResources},
		{"render", fmt.Errorf("generate: %w", &scaffold.TemplateRenderError{Param: "ServerURL"}), 500, problem.CodeGenerationFailed},
		{"stack", &scaffold.UnsupportedStackError{Stack: "x"}, 500, problem.CodeGenerationFailed},
		{"packaging", &archive.PackagingError{Path: "/tmp/x", Err: fs.ErrPermission}, 500, problem.CodeGenerationFailed},
		{"other", errors.New("boom"), 500, problem.CodeInternal},
		{"passthrough", problem.NewBadRequest("nope"), 400, problem.CodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := problem.FromBuildError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
			assert.False(t, got.Timestamp.IsZero())
		})
	}
}

func TestFromBuildError_MessagesDistinguishRemedy(t *testing.T) {
	fix := problem.FromBuildError(&httpclient.UpstreamFetchError{Kind: httpclient.KindNotFound})
	later := problem.FromBuildError(&httpclient.UpstreamFetchError{Kind: httpclient.KindUnreachable})
	gone := problem.FromBuildError(services.ErrBuildNotFound)
	badURL := problem.FromBuildError(&httpclient.UpstreamFetchError{Kind: httpclient.KindInvalidURL})

	assert.Contains(t, fix.Message, "Check the URL")
	assert.Contains(t, badURL.Message, "Fix the URL")
	require.Len(t, badURL.InvalidParams, 1)
	assert.Equal(t, "capabilityStatementUrl", badURL.InvalidParams[0].Name)
	assert.Contains(t, later.Message, "Try again later")
	assert.Contains(t, gone.Message, "not found")
}

func TestFromBuildError_UnsupportedParams(t *testing.T) {
	got := problem.FromBuildError(&services.UnsupportedResourcesError{
		Unsupported: []string{"MedicationOrder"},
		Suggestions: []string{"MedicationRequest"},
	})
	require.Len(t, got.InvalidParams, 1)
	assert.Equal(t, "resources", got.InvalidParams[0].Name)
	assert.Contains(t, got.InvalidParams[0].Reason, "MedicationOrder")
	assert.Contains(t, got.Message, "MedicationRequest")
}

func TestAPIError_JSONShape(t *testing.T) {
	raw, err := json.Marshal(problem.NewNotFound("Build not found"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, k := range []string{"type", "title", "status", "detail", "error", "message", "timestamp"} {
		assert.Contains(t, m, k)
	}
	assert.Equal(t, "not_found", m["error"])
	assert.NotContains(t, m, "invalidParams")
}

func TestFromBindingError(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")
	err := v.Struct(models.BuildRequest{Stack: "cobol"})
	require.Error(t, err)

	got := problem.FromBindingError(err, models.BuildRequest{}, "Invalid build request")
	assert.Equal(t, 400, got.Status)

	names := map[string]string{}
	for _, p := range got.InvalidParams {
		names[p.Name] = p.Reason
	}
	assert.Equal(t, "is required", names["capabilityStatementUrl"])
	assert.Equal(t, "is required", names["resources"])
	assert.Contains(t, names["stack"], "must be one of")
}

func TestFromBindingError_NonValidation(t *testing.T) {
	got := problem.FromBindingError(errors.New("unexpected EOF"), models.BuildRequest{}, "Invalid build request")
	require.Len(t, got.InvalidParams, 1)
	assert.Equal(t, "body", got.InvalidParams[0].Name)
}
