package builder_client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/loopfz/gadgeto/tonic"
	"github.com/rs/zerolog"
	"github.com/wI2L/fizz"
	"github.com/wI2L/fizz/openapi"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/handler"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/problem"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/middleware"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

const maxBodyBytes = 1 << 20

var (
	apiVersionHeader = fizz.Header(
		"API-Version",
		"De API-versie van de response",
		"",
	)

	badRequestResponse  = fizz.Response("400", "Bad Request", problem.APIError{}, nil, nil)
	notFoundResponse    = fizz.Response("404", "Not Found", problem.APIError{}, nil, nil)
	serverErrorResponse = fizz.Response("500", "Internal Server Error", problem.APIError{}, nil, nil)
)

type RouterOptions struct {
	Version   string
	PublicURL string
	Logger    zerolog.Logger

	// AllowedOrigins enables CORS for browser clients; "*" allows any origin.
	AllowedOrigins []string
}

func NewRouter(opts RouterOptions, controller *handler.BuilderController) *fizz.Fizz {
	g := gin.New()
	g.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(opts.Logger),
		APIVersionMiddleware(opts.Version),
	)
	if len(opts.AllowedOrigins) > 0 {
		g.Use(corsMiddleware(opts.AllowedOrigins))
	}
	f := fizz.NewFromEngine(g)

	if opts.PublicURL != "" {
		f.Generator().SetServers([]*openapi.Server{
			{URL: opts.PublicURL, Description: "Builder service"},
		})
	}

	info := &openapi.Info{
		Title:       "FHIR Builder API v1",
		Description: "Analyseert FHIR CapabilityStatements en genereert applicatie-scaffolds.",
		Version:     opts.Version,
	}

	root := f.Group("/api/builder", "Builder", "FHIR app builder routes")

	root.GET("/capability-statement",
		[]fizz.OperationOption{
			fizz.Summary("CapabilityStatement ophalen en analyseren"),
			apiVersionHeader,
			badRequestResponse,
			serverErrorResponse,
		},
		tonic.Handler(controller.AnalyzeCapabilityStatement, 200),
	)

	root.POST("/validate-resources",
		[]fizz.OperationOption{
			fizz.Summary("Controleer of resources door de FHIR server ondersteund worden"),
			apiVersionHeader,
			badRequestResponse,
			serverErrorResponse,
		},
		tonic.Handler(controller.ValidateResources, 200),
	)

	root.GET("/stacks",
		[]fizz.OperationOption{
			fizz.Summary("Beschikbare stacks"),
			apiVersionHeader,
		},
		tonic.Handler(controller.ListStacks, 200),
	)

	root.POST("/generate",
		[]fizz.OperationOption{
			fizz.Summary("Genereer een applicatie-scaffold"),
			apiVersionHeader,
			badRequestResponse,
			serverErrorResponse,
		},
		tonic.Handler(controller.Generate, 200),
	)

	root.GET("/builds/:buildId",
		[]fizz.OperationOption{
			fizz.Summary("Status van een build"),
			apiVersionHeader,
			badRequestResponse,
			notFoundResponse,
		},
		tonic.Handler(controller.RetrieveBuild, 200),
	)

	root.GET("/download/:buildId",
		[]fizz.OperationOption{
			fizz.Summary("Download het zip-archief van een build"),
			badRequestResponse,
			notFoundResponse,
		},
		tonic.Handler(controller.Download, 200),
	)

	f.GET("/api/builder/openapi.json", []fizz.OperationOption{}, f.OpenAPI(info, "json"))

	return f
}

// ErrorHook renders every handler error as problem+json.
func ErrorHook(c *gin.Context, err error) (int, interface{}) {
	var be tonic.BindError
	if errors.As(err, &be) || isValidationErr(err) {
		apiErr := problem.FromBindingError(err, bindingSample(c), "Invalid request")
		c.Header("Content-Type", "application/problem+json")
		return apiErr.Status, apiErr
	}

	apiErr := problem.FromBuildError(err)
	if apiErr.Instance == "" {
		apiErr.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", "application/problem+json")
	return apiErr.Status, apiErr
}

// BindJSON only decodes the request body. Controllers validate the binding
// tags themselves so validator.ValidationErrors reach ErrorHook unwrapped.
func BindJSON(c *gin.Context, i interface{}) error {
	if c.Request.Method == http.MethodGet || c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err := dec.Decode(i); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error parsing request body: %w", err)
	}
	return nil
}

func bindingSample(c *gin.Context) any {
	switch c.FullPath() {
	case "/api/builder/generate":
		return models.BuildRequest{}
	case "/api/builder/validate-resources":
		return models.ValidateResourcesInput{}
	}
	return nil
}

func isValidationErr(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"API-Version", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}

type apiVersionWriter struct {
	gin.ResponseWriter
	version string
}

func (w *apiVersionWriter) WriteHeader(code int) {
	if code >= 200 && code < 300 {
		w.Header().Set("API-Version", w.version)
	}
	w.ResponseWriter.WriteHeader(code)
}

func APIVersionMiddleware(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &apiVersionWriter{c.Writer, version}
		c.Next()
	}
}
