package service

import (
	"context"
	"crypto/subtle"
	"time"

	"lessonbook/internal/domain"
	"lessonbook/internal/models"
	"lessonbook/internal/notify"

	"github.com/rs/zerolog"
)

// UserService resolves identity records and guards the teacher roster.
// Roster mutations require both the caller's admin flag and the shared
// admin secret; failing either check performs nothing and reports false.
type UserService struct {
	repo        domain.Repository
	adminSecret string
	logger      *zerolog.Logger
}

func NewUserService(repo domain.Repository, adminSecret string, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:        repo,
		adminSecret: adminSecret,
		logger:      logger,
	}
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *UserService) SaveUser(ctx context.Context, user *models.User) error {
	return s.repo.CreateOrUpdateUser(ctx, user)
}

// Teachers builds the roster cards for the booking page, including whether
// each teacher has at least one open future slot.
func (s *UserService) Teachers(ctx context.Context) ([]*models.TeacherCard, error) {
	teachers, err := s.repo.GetTeachers(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cards := make([]*models.TeacherCard, 0, len(teachers))
	for _, t := range teachers {
		available, err := s.repo.HasOpenSlot(ctx, t.ID, now)
		if err != nil {
			s.logger.Error().Err(err).Str("teacher_id", t.ID).Msg("availability check failed")
		}
		cards = append(cards, &models.TeacherCard{
			User:            *t,
			InstrumentsLine: notify.JoinList(t.Instruments),
			Available:       available,
		})
	}
	return cards, nil
}

func (s *UserService) AddTeacher(ctx context.Context, caller *models.User, secret, teacherID string) bool {
	return s.setRoster(ctx, caller, secret, teacherID, true)
}

func (s *UserService) RemoveTeacher(ctx context.Context, caller *models.User, secret, teacherID string) bool {
	return s.setRoster(ctx, caller, secret, teacherID, false)
}

func (s *UserService) setRoster(ctx context.Context, caller *models.User, secret, teacherID string, isTeacher bool) bool {
	if caller == nil || !caller.IsAdmin {
		s.logger.Warn().Str("teacher_id", teacherID).Msg("roster change rejected: caller is not admin")
		return false
	}
	if s.adminSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(s.adminSecret)) != 1 {
		s.logger.Warn().Str("caller_id", caller.ID).Msg("roster change rejected: bad admin secret")
		return false
	}

	if err := s.repo.SetTeacher(ctx, teacherID, isTeacher); err != nil {
		s.logger.Error().Err(err).Str("teacher_id", teacherID).Msg("roster change failed")
		return false
	}

	s.logger.Info().
		Str("caller_id", caller.ID).
		Str("teacher_id", teacherID).
		Bool("is_teacher", isTeacher).
		Msg("roster updated")
	return true
}
