package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mecacaraudio/scoring-engine/models"
	"github.com/mecacaraudio/scoring-engine/repositories"
)

type ClassMapService struct {
	classRepo repositories.ClassRepository
	logger    *slog.Logger
}

func NewClassMapService(classRepo repositories.ClassRepository, logger *slog.Logger) *ClassMapService {
	return &ClassMapService{classRepo: classRepo, logger: logger}
}

// CreateMappingInput carries the admin payload for a new alias.
type CreateMappingInput struct {
	SourceName    string  `json:"source_name"`
	SourceSystem  string  `json:"source_system"`
	TargetClassID *int    `json:"target_class_id"`
	Notes         *string `json:"notes"`
}

func (s *ClassMapService) CreateMapping(ctx context.Context, input CreateMappingInput) (*models.ClassNameMapping, error) {
	if strings.TrimSpace(input.SourceName) == "" || strings.TrimSpace(input.SourceSystem) == "" {
		return nil, ErrInvalidSeasonData
	}
	if input.TargetClassID != nil {
		if _, err := s.classRepo.GetClassByID(ctx, nil, *input.TargetClassID); err != nil {
			if errors.Is(err, repositories.ErrClassNotFound) {
				return nil, ErrClassNotFound
			}
			return nil, err
		}
	}

	mapping := &models.ClassNameMapping{
		SourceName:    strings.TrimSpace(input.SourceName),
		SourceSystem:  strings.TrimSpace(input.SourceSystem),
		TargetClassID: input.TargetClassID,
		IsActive:      true,
		Notes:         input.Notes,
	}
	if err := s.classRepo.CreateMapping(ctx, nil, mapping); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMappingConflict):
			return nil, ErrMappingExists
		case errors.Is(err, repositories.ErrClassNotFound):
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	s.logger.Info("created class mapping",
		"sourceName", mapping.SourceName,
		"sourceSystem", mapping.SourceSystem)
	return mapping, nil
}

// UpdateMappingInput carries a partial mapping update. Nil fields keep their
// current value.
type UpdateMappingInput struct {
	TargetClassID *int    `json:"target_class_id"`
	IsActive      *bool   `json:"is_active"`
	Notes         *string `json:"notes"`
}

func (s *ClassMapService) UpdateMapping(ctx context.Context, id int, input UpdateMappingInput) (*models.ClassNameMapping, error) {
	mapping, err := s.classRepo.GetMappingByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMappingNotFound) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}

	if input.TargetClassID != nil {
		if _, classErr := s.classRepo.GetClassByID(ctx, nil, *input.TargetClassID); classErr != nil {
			if errors.Is(classErr, repositories.ErrClassNotFound) {
				return nil, ErrClassNotFound
			}
			return nil, classErr
		}
		mapping.TargetClassID = input.TargetClassID
	}
	if input.IsActive != nil {
		mapping.IsActive = *input.IsActive
	}
	if input.Notes != nil {
		mapping.Notes = input.Notes
	}

	if err = s.classRepo.UpdateMapping(ctx, nil, mapping); err != nil {
		if errors.Is(err, repositories.ErrMappingNotFound) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return mapping, nil
}

func (s *ClassMapService) DeleteMapping(ctx context.Context, id int) error {
	if err := s.classRepo.DeleteMapping(ctx, nil, id); err != nil {
		if errors.Is(err, repositories.ErrMappingNotFound) {
			return ErrMappingNotFound
		}
		return err
	}
	return nil
}

func (s *ClassMapService) ListMappings(ctx context.Context, sourceSystem string) ([]*models.ClassNameMapping, error) {
	return s.classRepo.ListMappings(ctx, sourceSystem)
}

// ListUnmapped returns alias rows an admin still has to point at a class.
func (s *ClassMapService) ListUnmapped(ctx context.Context, sourceSystem string) ([]*models.ClassNameMapping, error) {
	return s.classRepo.ListUnmapped(ctx, sourceSystem)
}

func (s *ClassMapService) ListClasses(ctx context.Context, seasonID int) ([]*models.CompetitionClass, error) {
	return s.classRepo.ListClassesBySeason(ctx, seasonID)
}
