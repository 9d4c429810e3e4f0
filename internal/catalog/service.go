package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrInvalidTreatment = errors.New("invalid treatment")

type Service struct {
	repo Repository
	log  logrus.FieldLogger
}

func NewService(repo Repository, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, log: log}
}

// ListNames is the public, name-only view of the catalog.
func (s *Service) ListNames(ctx context.Context) ([]TreatmentName, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]TreatmentName, 0, len(all))
	for _, t := range all {
		names = append(names, TreatmentName{ID: t.ID, Name: t.Name})
	}
	return names, nil
}

func (s *Service) ListAll(ctx context.Context) ([]Treatment, error) {
	all, err := s.repo.ListTreatments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	return all, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (*Treatment, error) {
	t, err := s.repo.GetTreatmentByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrTreatmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load treatment: %w", err)
	}
	return t, nil
}

// Upsert creates the treatment or replaces price, slots and image of the one
// with the same name. Duplicate slot labels are collapsed, first one wins.
func (s *Service) Upsert(ctx context.Context, t Treatment) (*Treatment, bool, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, false, fmt.Errorf("%w: name is required", ErrInvalidTreatment)
	}
	if t.Price < 0 {
		return nil, false, fmt.Errorf("%w: price must not be negative", ErrInvalidTreatment)
	}
	t.Slots = distinct(t.Slots)

	saved, created, err := s.repo.UpsertTreatment(ctx, t)
	if err != nil {
		return nil, false, err
	}

	s.log.WithFields(logrus.Fields{
		"treatment": saved.Name,
		"created":   created,
		"slots":     len(saved.Slots),
	}).Info("treatment upserted")

	return saved, created, nil
}

func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteTreatment(ctx, id); err != nil {
		return err
	}
	s.log.WithField("treatment_id", id).Info("treatment removed")
	return nil
}

func distinct(slots []string) []string {
	seen := make(map[string]struct{}, len(slots))
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
