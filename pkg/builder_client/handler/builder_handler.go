package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/problem"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/util"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

const MinBuildIDLength = 16

var buildIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// BuilderServicer is wat de controller van de service nodig heeft.
type BuilderServicer interface {
	CreateBuild(ctx context.Context, req models.BuildRequest) (*models.BuildResult, error)
	GetBuild(ctx context.Context, buildID string) ([]byte, error)
	GetBuildRecord(ctx context.Context, buildID string) (*models.Build, error)
	AnalyzeURL(ctx context.Context, url string) (*models.CapabilityAnalysis, error)
	CheckResources(ctx context.Context, input models.ValidateResourcesInput) (*models.ValidateResourcesResponse, error)
	ListStacks() []models.StackInfo
}

// BuilderController binds HTTP requests to the builder service
type BuilderController struct {
	Service BuilderServicer
}

func NewBuilderController(s BuilderServicer) *BuilderController {
	return &BuilderController{Service: s}
}

// Generate handles POST /api/builder/generate
func (c *BuilderController) Generate(ctx *gin.Context, body *models.BuildRequest) (*models.BuildResponse, error) {
	if err := binding.Validator.ValidateStruct(body); err != nil {
		return nil, problem.FromBindingError(err, body, "Invalid build request")
	}
	body.Normalize()
	if len(body.Resources) == 0 {
		return nil, problem.NewBadRequest("Invalid build request",
			problem.InvalidParam{Name: "resources", Reason: "must contain at least 1 item(s)"})
	}
	res, err := c.Service.CreateBuild(ctx.Request.Context(), *body)
	if err != nil {
		return nil, translate(ctx, err)
	}
	return util.ToBuildResponse(res), nil
}

// Download handles GET /api/builder/download/:buildId. The archive is
// written directly; tonic only renders errors for this route.
func (c *BuilderController) Download(ctx *gin.Context, params *models.BuildParams) error {
	if err := checkBuildID(params.BuildID); err != nil {
		return err
	}
	data, err := c.Service.GetBuild(ctx.Request.Context(), params.BuildID)
	if err != nil {
		return translate(ctx, err)
	}

	// record is best effort, the filename falls back to a generic name
	build, _ := c.Service.GetBuildRecord(ctx.Request.Context(), params.BuildID)
	filename := util.ArchiveFilename(build, params.BuildID)

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Header("Cache-Control", "no-store")
	ctx.Data(http.StatusOK, "application/zip", data)
	return nil
}

// RetrieveBuild handles GET /api/builder/builds/:buildId
func (c *BuilderController) RetrieveBuild(ctx *gin.Context, params *models.BuildParams) (*models.Build, error) {
	if err := checkBuildID(params.BuildID); err != nil {
		return nil, err
	}
	build, err := c.Service.GetBuildRecord(ctx.Request.Context(), params.BuildID)
	if err != nil {
		return nil, translate(ctx, err)
	}
	return build, nil
}

// AnalyzeCapabilityStatement handles GET /api/builder/capability-statement
func (c *BuilderController) AnalyzeCapabilityStatement(ctx *gin.Context, params *models.CapabilityParams) (*models.CapabilityResponse, error) {
	target := strings.TrimSpace(params.Url)
	if target == "" {
		return nil, problem.NewBadRequest("Query parameter url is required",
			problem.InvalidParam{Name: "url", Reason: "is required"})
	}
	if u, err := url.ParseRequestURI(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, problem.NewBadRequest("Query parameter url is not a valid URL",
			problem.InvalidParam{Name: "url", Reason: "must be a valid URL (e.g. https://…/metadata)"})
	}

	analysis, err := c.Service.AnalyzeURL(ctx.Request.Context(), target)
	if err != nil {
		// preview reports every fetch/parse failure as 500; the code and
		// message still tell the user what went wrong
		return nil, translate(ctx, err).WithStatus(http.StatusInternalServerError)
	}
	return util.ToCapabilityResponse(target, analysis, time.Now()), nil
}

// ValidateResources handles POST /api/builder/validate-resources
func (c *BuilderController) ValidateResources(ctx *gin.Context, body *models.ValidateResourcesInput) (*models.ValidateResourcesResponse, error) {
	if err := binding.Validator.ValidateStruct(body); err != nil {
		return nil, problem.FromBindingError(err, body, "Invalid resource check")
	}
	out, err := c.Service.CheckResources(ctx.Request.Context(), *body)
	if err != nil {
		return nil, translate(ctx, err)
	}
	return out, nil
}

// ListStacks handles GET /api/builder/stacks
func (c *BuilderController) ListStacks(ctx *gin.Context) ([]models.StackInfo, error) {
	return c.Service.ListStacks(), nil
}

func checkBuildID(id string) error {
	if len(id) < MinBuildIDLength || !buildIDPattern.MatchString(id) {
		return problem.NewBadRequest("Invalid build id",
			problem.InvalidParam{Name: "buildId", Reason: fmt.Sprintf("must be at least %d characters of letters, digits and dashes", MinBuildIDLength)})
	}
	return nil
}

func translate(ctx *gin.Context, err error) problem.APIError {
	apiErr := problem.FromBuildError(err)
	apiErr.Instance = ctx.Request.URL.Path
	ev := zerolog.Ctx(ctx.Request.Context()).Warn()
	if apiErr.Status >= 500 {
		ev = zerolog.Ctx(ctx.Request.Context()).Error()
	}
	ev.Err(err).Str("code", string(apiErr.Code)).Msg("request failed")
	return apiErr
}
