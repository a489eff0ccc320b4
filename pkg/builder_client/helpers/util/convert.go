package util

import (
	"time"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

func ToBuildResponse(res *models.BuildResult) *models.BuildResponse {
	return &models.BuildResponse{
		Success:     true,
		BuildResult: *res,
	}
}

func ToCapabilityResponse(url string, analysis *models.CapabilityAnalysis, at time.Time) *models.CapabilityResponse {
	return &models.CapabilityResponse{
		Success:   true,
		Url:       url,
		Analysis:  analysis,
		Timestamp: at.UTC(),
	}
}

// ArchiveFilename is the download name offered to the browser.
func ArchiveFilename(build *models.Build, buildID string) string {
	name := "fhir-app"
	if build != nil && build.AppName != "" {
		name = build.AppName
	}
	return sanitize(name) + "-" + shortID(buildID) + ".zip"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ' || r == '.':
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "fhir-app"
	}
	return string(out)
}
