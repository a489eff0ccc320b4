/*
 * FHIR Builder API v1
 *
 * Analyseert FHIR CapabilityStatements en genereert applicatie-scaffolds.
 *
 * API version: 1.0.0
 */

package models

import (
	"strings"
	"time"
)

// Stack identificeert een doel-technologie voor scaffold generatie.
type Stack string

const (
	StackNextFHIRClient Stack = "nextjs-fhirclient"
	StackExpressNode    Stack = "express-node"
	StackPythonFastAPI  Stack = "python-fastapi"
	StackGoGin          Stack = "go-gin"
)

// SupportedStacks in volgorde; de eerste is de default.
var SupportedStacks = []Stack{
	StackNextFHIRClient,
	StackExpressNode,
	StackPythonFastAPI,
	StackGoGin,
}

// DefaultStack is the stack used when a request does not name one.
func DefaultStack() Stack { return SupportedStacks[0] }

// BuildStatus is the lifecycle state stored on a build record.
type BuildStatus string

const (
	BuildPending           BuildStatus = "pending"
	BuildCapabilityFetched BuildStatus = "capability_fetched"
	BuildValidated         BuildStatus = "validated"
	BuildGenerated         BuildStatus = "generated"
	BuildPackaged          BuildStatus = "packaged"
	BuildReady             BuildStatus = "ready"
	BuildExpired           BuildStatus = "expired"
	BuildDeletedOnError    BuildStatus = "deleted_on_error"
)

// BuildRequest is de body van POST /api/builder/generate
type BuildRequest struct {
	CapabilityStatementUrl string   `json:"capabilityStatementUrl" binding:"required,http_url"`
	Stack                  Stack    `json:"stack,omitempty" binding:"omitempty,oneof=nextjs-fhirclient express-node python-fastapi go-gin"`
	Resources              []string `json:"resources" binding:"required,min=1,dive,required"`
	AppName                string   `json:"appName,omitempty" binding:"omitempty,max=100"`
	Description            string   `json:"description,omitempty" binding:"omitempty,max=500"`
	Features               []string `json:"features,omitempty"`
}

// Normalize trims input and fills in the default stack.
func (r *BuildRequest) Normalize() {
	r.CapabilityStatementUrl = strings.TrimSpace(r.CapabilityStatementUrl)
	if strings.TrimSpace(string(r.Stack)) == "" {
		r.Stack = DefaultStack()
	}
	resources := make([]string, 0, len(r.Resources))
	for _, res := range r.Resources {
		if res = strings.TrimSpace(res); res != "" {
			resources = append(resources, res)
		}
	}
	r.Resources = resources
	r.AppName = strings.TrimSpace(r.AppName)
	r.Description = strings.TrimSpace(r.Description)
}

// Build is the persisted record of one scaffold build.
type Build struct {
	ID                     string      `gorm:"column:id;primaryKey" json:"buildId"`
	Status                 BuildStatus `gorm:"column:status;index" json:"status"`
	Stack                  Stack       `gorm:"column:stack" json:"stack"`
	Resources              []string    `gorm:"column:resources;serializer:json" json:"resources"`
	CapabilityStatementUrl string      `gorm:"column:capability_statement_url" json:"capabilityStatementUrl"`
	ServerUrl              string      `gorm:"column:server_url" json:"serverUrl,omitempty"`
	AppName                string      `gorm:"column:app_name" json:"appName,omitempty"`
	SizeBytes              int64       `gorm:"column:size_bytes" json:"sizeBytes"`
	CreatedAt              time.Time   `gorm:"column:created_at" json:"createdAt"`
	ExpiresAt              time.Time   `gorm:"column:expires_at;index" json:"expiresAt"`
}

// BuildArtifact stores a packaged scaffold as a blob, keyed by build id.
// UpdatedAt doubles as the storage modification time used by the sweep.
type BuildArtifact struct {
	BuildID     string    `gorm:"column:build_id;primaryKey"`
	Filename    string    `gorm:"column:filename"`
	ContentType string    `gorm:"column:content_type"`
	Data        []byte    `gorm:"column:data"`
	UpdatedAt   time.Time `gorm:"column:updated_at;index"`
}

type BuildMetadata struct {
	Stack       Stack     `json:"stack"`
	Resources   []string  `json:"resources"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// BuildResult is the retrieval handle returned by CreateBuild.
type BuildResult struct {
	BuildID     string        `json:"buildId"`
	DownloadUrl string        `json:"downloadUrl"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	Metadata    BuildMetadata `json:"metadata"`
}

// BuildResponse is de externe view van een geslaagde build
type BuildResponse struct {
	Success bool `json:"success"`
	BuildResult
}

type StackInfo struct {
	ID      Stack  `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// SweepReport summarises one sweep run.
type SweepReport struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`

	// TempRemoved counts leftovers of interrupted artifact writes.
	TempRemoved int `json:"tempRemoved"`
}
