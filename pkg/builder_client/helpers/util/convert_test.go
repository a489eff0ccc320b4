package util_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/util"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

func TestToBuildResponse_FlatShape(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	resp := util.ToBuildResponse(&models.BuildResult{
		BuildID:     "b1",
		DownloadUrl: "/api/builder/download/b1",
		ExpiresAt:   at.Add(24 * time.Hour),
		Metadata:    models.BuildMetadata{Stack: models.StackGoGin, Resources: []string{"Patient"}, GeneratedAt: at},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))

	assert.Equal(t, true, m["success"])
	assert.Equal(t, "b1", m["buildId"])
	assert.Equal(t, "/api/builder/download/b1", m["downloadUrl"])
	assert.Equal(t, "2024-05-02T12:00:00Z", m["expiresAt"])
	meta := m["metadata"].(map[string]any)
	assert.Equal(t, "go-gin", meta["stack"])
	assert.Equal(t, "2024-05-01T12:00:00Z", meta["generatedAt"])
}

func TestArchiveFilename(t *testing.T) {
	assert.Equal(t, "fhir-app-12345678.zip", util.ArchiveFilename(nil, "1234567890abcdef"))
	assert.Equal(t, "My-App-abc.zip", util.ArchiveFilename(&models.Build{AppName: "My App"}, "abc"))
	assert.Equal(t, "fhir-app-abc.zip", util.ArchiveFilename(&models.Build{AppName: "\"/\\"}, "abc"))
}
