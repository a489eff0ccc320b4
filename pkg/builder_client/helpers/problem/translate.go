package problem

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/archive"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/capability"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/httpclient"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/scaffold"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/services"
)

// FromBuildError maps a service error onto the three HTTP outcomes: 400 for
// caller input, 404 for missing builds, 500 for everything else. The message
// tells the user whether to fix the input, retry later, or give up on the id.
func FromBuildError(err error) APIError {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var (
		fetchErr       *httpclient.UpstreamFetchError
		unsupported    *services.UnsupportedResourcesError
		renderErr      *scaffold.TemplateRenderError
		stackErr       *scaffold.UnsupportedStackError
		packagingError *archive.PackagingError
	)
	switch {
	case errors.Is(err, services.ErrBuildNotFound):
		return NewNotFound("Build not found or expired. Generate the application again.")

	case errors.Is(err, capability.ErrInvalidDocumentKind):
		return NewBadRequest(err.Error(),
			InvalidParam{Name: "capabilityStatementUrl", Reason: "URL did not return a FHIR CapabilityStatement"},
		).WithCode(CodeInvalidDocument, "The URL does not point to a FHIR CapabilityStatement. Check the URL (usually <base>/metadata).")

	case errors.As(err, &fetchErr):
		switch fetchErr.Kind {
		case httpclient.KindInvalidURL:
			return NewBadRequest(err.Error(),
				InvalidParam{Name: "capabilityStatementUrl", Reason: "must be an absolute http(s) URL"},
			).WithCode(CodeInvalidURL, "The CapabilityStatement URL must be an http(s) URL. Fix the URL and try again.")
		case httpclient.KindNotFound:
			return NewBadRequest(err.Error(),
				InvalidParam{Name: "capabilityStatementUrl", Reason: "CapabilityStatement not found at this URL"},
			).WithCode(CodeUpstreamNotFound, "No CapabilityStatement was found at this URL. Check the URL and try again.")
		case httpclient.KindUnreachable:
			return NewInternalServerError(err.Error()).
				WithCode(CodeUpstreamUnreachable, "The FHIR server could not be reached. Try again later.")
		default:
			return NewInternalServerError(err.Error()).
				WithCode(CodeUpstreamFailed, "The FHIR server returned an error while fetching its CapabilityStatement. Try again later.")
		}

	case errors.As(err, &unsupported):
		params := make([]InvalidParam, 0, len(unsupported.Unsupported))
		for _, r := range unsupported.Unsupported {
			params = append(params, InvalidParam{Name: "resources", Reason: fmt.Sprintf("%s is not supported by this FHIR server", r)})
		}
		msg := "Some selected resources are not supported by this FHIR server. Remove them and try again."
		if len(unsupported.Suggestions) > 0 {
			msg = fmt.Sprintf("Some selected resources are not supported by this FHIR server. Consider: %s.", strings.Join(unsupported.Suggestions, ", "))
		}
		return NewBadRequest(err.Error(), params...).WithCode(CodeUnsupportedResources, msg)

	case errors.As(err, &renderErr), errors.As(err, &stackErr):
		return NewInternalServerError(err.Error()).
			WithCode(CodeGenerationFailed, "Generating the application failed. This is a bug on our side.")

	case errors.As(err, &packagingError):
		return NewInternalServerError(err.Error()).
			WithCode(CodeGenerationFailed, "Packaging the application failed. Try again later.")
	}

	return NewInternalServerError(err.Error())
}

// FromBindingError converts tonic/validator binding errors into a 400 with
// one invalidParam per failing field, named after its json tag on sample.
func FromBindingError(err error, sample any, detail string) APIError {
	return NewBadRequest(detail, invalidParamsFromBinding(err, sample)...)
}

func invalidParamsFromBinding(err error, sample any) []InvalidParam {
	// Probeer direct op validator.ValidationErrors te matchen.
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []InvalidParam{{Name: "body", Reason: err.Error()}}
	}

	t := reflect.TypeOf(sample)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	out := make([]InvalidParam, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if t != nil && t.Kind() == reflect.Struct {
			if f, ok := t.FieldByName(fe.StructField()); ok {
				if tag := f.Tag.Get("json"); tag != "" && tag != "-" {
					name = strings.Split(tag, ",")[0]
				}
			}
		}
		out = append(out, InvalidParam{
			Name:   name,
			Reason: humanReason(fe),
		})
	}
	return out
}

func humanReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url", "http_url":
		return "must be a valid URL (e.g. https://…/metadata)"
	case "min":
		return "must contain at least " + fe.Param() + " item(s)"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return fe.Error()
	}
}
