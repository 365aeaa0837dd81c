package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ptzcam/internal/models"
	"ptzcam/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	return from, to, normalizeEventType(f.Type), nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.CameraEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, typ)
}
