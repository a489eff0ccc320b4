package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

// DBStore keeps archives as blobs in the build_artifacts table. A single
// upsert commits an artifact.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Put(ctx context.Context, buildID string, data []byte) error {
	if err := checkID(buildID); err != nil {
		return err
	}
	row := models.BuildArtifact{
		BuildID:     buildID,
		Filename:    buildID + artifactExt,
		ContentType: "application/zip",
		Data:        data,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}
	return nil
}

func (s *DBStore) Get(ctx context.Context, buildID string) ([]byte, error) {
	var row models.BuildArtifact
	err := s.db.WithContext(ctx).Where("build_id = ?", buildID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return row.Data, nil
}

func (s *DBStore) List(ctx context.Context) ([]ArtifactInfo, error) {
	var rows []models.BuildArtifact
	if err := s.db.WithContext(ctx).Select("build_id", "updated_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	out := make([]ArtifactInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, ArtifactInfo{BuildID: r.BuildID, ModTime: r.UpdatedAt})
	}
	return out, nil
}

func (s *DBStore) Delete(ctx context.Context, buildID string) error {
	err := s.db.WithContext(ctx).Where("build_id = ?", buildID).Delete(&models.BuildArtifact{}).Error
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}
