package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vocaciona/apiserver/internal/apperr"
	"github.com/vocaciona/apiserver/internal/mq"
	"github.com/vocaciona/apiserver/internal/store"
	"github.com/vocaciona/apiserver/types"
)

// EventResultSaved is the attribute value stamped on result-saved events.
const EventResultSaved = "resultado.guardado"

// TestResultRepository defines persistence operations for test results.
type TestResultRepository interface {
	Create(ctx context.Context, result types.TestResult) (types.TestResult, error)
	GetByID(ctx context.Context, id string) (types.TestResult, error)
	ListByUser(ctx context.Context, userID string) ([]types.TestResult, error)
	GetLatest(ctx context.Context, userID string) (types.TestResult, error)
	Delete(ctx context.Context, id string) error
	StatsByUser(ctx context.Context, userID string) (types.VocationalStats, error)
}

// ResultUserRepository is the slice of user persistence the result flows need.
type ResultUserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

// EventPublisher publishes broker events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// TestResultService encapsulates test-result use-cases, including the
// privacy-gated vocational reads.
type TestResultService struct {
	results TestResultRepository
	users   ResultUserRepository
	follows FollowRepository
	events  EventPublisher
	channel string
	log     *logrus.Entry
}

func NewTestResultService(
	results TestResultRepository,
	users ResultUserRepository,
	follows FollowRepository,
	events EventPublisher,
	channel string,
	log *logrus.Entry,
) *TestResultService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if channel == "" {
		channel = "resultados"
	}
	return &TestResultService{
		results: results,
		users:   users,
		follows: follows,
		events:  events,
		channel: channel,
		log:     log,
	}
}

// Save stores a completed test and publishes a result-saved event. Event
// publishing is best-effort: a broker failure is logged, never surfaced.
func (s *TestResultService) Save(ctx context.Context, userID, tipoTest, area string, puntaje float64, detalle json.RawMessage) (types.TestResult, error) {
	tipoTest = strings.TrimSpace(tipoTest)
	if tipoTest == "" {
		return types.TestResult{}, apperr.Validation(apperr.CodeCamposIncompletos, "tipoTest es requerido")
	}

	result, err := s.results.Create(ctx, types.TestResult{
		ID:       uuid.NewString(),
		UserID:   userID,
		TestType: tipoTest,
		Area:     strings.TrimSpace(area),
		Score:    puntaje,
		Detail:   detalle,
	})
	if err != nil {
		return types.TestResult{}, s.storeFailure("result insert", err)
	}

	s.publishSaved(ctx, result)
	return result, nil
}

// ListByUser returns the caller's own results, newest first.
func (s *TestResultService) ListByUser(ctx context.Context, userID string) ([]types.TestResult, error) {
	results, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.storeFailure("result list", err)
	}
	if results == nil {
		results = []types.TestResult{}
	}
	return results, nil
}

// Delete removes a result. Only the owner or an admin may delete.
func (s *TestResultService) Delete(ctx context.Context, requesterID, requesterRole, resultID string) error {
	result, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(apperr.CodeResultadoNoEncontrado, "resultado no encontrado")
		}
		return s.storeFailure("result lookup", err)
	}
	if result.UserID != requesterID && requesterRole != adminRole {
		return apperr.Forbidden(apperr.CodeNoAutorizado, "no autorizado para eliminar este resultado")
	}

	if err := s.results.Delete(ctx, resultID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(apperr.CodeResultadoNoEncontrado, "resultado no encontrado")
		}
		return s.storeFailure("result delete", err)
	}
	return nil
}

// History returns a user's result history, privacy-gated.
func (s *TestResultService) History(ctx context.Context, requesterID, targetID string) ([]types.TestResult, error) {
	if err := s.gate(ctx, requesterID, targetID); err != nil {
		return nil, err
	}
	return s.ListByUser(ctx, targetID)
}

// Latest returns a user's most recent result, privacy-gated.
func (s *TestResultService) Latest(ctx context.Context, requesterID, targetID string) (types.TestResult, error) {
	if err := s.gate(ctx, requesterID, targetID); err != nil {
		return types.TestResult{}, err
	}
	result, err := s.results.GetLatest(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.TestResult{}, apperr.NotFound(apperr.CodeSinResultados, "el usuario no tiene resultados")
		}
		return types.TestResult{}, s.storeFailure("latest result", err)
	}
	return result, nil
}

// Stats returns a user's aggregate statistics, privacy-gated.
func (s *TestResultService) Stats(ctx context.Context, requesterID, targetID string) (types.VocationalStats, error) {
	if err := s.gate(ctx, requesterID, targetID); err != nil {
		return types.VocationalStats{}, err
	}
	stats, err := s.results.StatsByUser(ctx, targetID)
	if err != nil {
		return types.VocationalStats{}, s.storeFailure("result stats", err)
	}
	return stats, nil
}

func (s *TestResultService) gate(ctx context.Context, requesterID, targetID string) error {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(apperr.CodeUsuarioNoEncontrado, "usuario no encontrado")
		}
		return s.storeFailure("gate lookup", err)
	}
	if target.IsPublic || requesterID == target.ID {
		return nil
	}
	follows, err := s.follows.Exists(ctx, requesterID, target.ID)
	if err != nil {
		return s.storeFailure("gate follower check", err)
	}
	if !follows {
		return apperr.Forbidden(apperr.CodePerfilPrivado, "el perfil es privado")
	}
	return nil
}

func (s *TestResultService) storeFailure(op string, err error) *apperr.Error {
	s.log.WithError(err).Errorf("%s failed", op)
	return apperr.Wrap(err, apperr.KindUpstream, apperr.CodeErrorBD, "error de base de datos")
}

func (s *TestResultService) publishSaved(ctx context.Context, result types.TestResult) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.log.WithError(err).Warn("result event marshal failed")
		return
	}
	attrs := map[string]string{"evento": EventResultSaved}
	if _, err := s.events.Publish(ctx, s.channel, payload, attrs); err != nil {
		s.log.WithError(err).Warn("result event publish failed")
	}
}

// compile-time check that the broker wrapper satisfies the publisher.
var _ EventPublisher = (*mq.MQ)(nil)
