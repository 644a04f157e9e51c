package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vocaciona/apiserver/internal/apperr"
	"github.com/vocaciona/apiserver/internal/store"
	"github.com/vocaciona/apiserver/types"
)

type fakeResultRepo struct {
	results map[string]types.TestResult
	listErr error
}

func newFakeResultRepo(results ...types.TestResult) *fakeResultRepo {
	repo := &fakeResultRepo{results: map[string]types.TestResult{}}
	for _, r := range results {
		repo.results[r.ID] = r
	}
	return repo
}

func (r *fakeResultRepo) Create(_ context.Context, result types.TestResult) (types.TestResult, error) {
	result.CreatedAt = time.Now()
	r.results[result.ID] = result
	return result, nil
}

func (r *fakeResultRepo) GetByID(_ context.Context, id string) (types.TestResult, error) {
	if result, ok := r.results[id]; ok {
		return result, nil
	}
	return types.TestResult{}, store.ErrNotFound
}

func (r *fakeResultRepo) ListByUser(_ context.Context, userID string) ([]types.TestResult, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []types.TestResult
	for _, result := range r.results {
		if result.UserID == userID {
			out = append(out, result)
		}
	}
	return out, nil
}

func (r *fakeResultRepo) GetLatest(_ context.Context, userID string) (types.TestResult, error) {
	var latest types.TestResult
	found := false
	for _, result := range r.results {
		if result.UserID == userID && (!found || result.CreatedAt.After(latest.CreatedAt)) {
			latest = result
			found = true
		}
	}
	if !found {
		return types.TestResult{}, store.ErrNotFound
	}
	return latest, nil
}

func (r *fakeResultRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.results[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.results, id)
	return nil
}

func (r *fakeResultRepo) StatsByUser(_ context.Context, userID string) (types.VocationalStats, error) {
	stats := types.VocationalStats{Tipos: []string{}, PromedioPorArea: map[string]float64{}}
	for _, result := range r.results {
		if result.UserID == userID {
			stats.Total++
		}
	}
	return stats, nil
}

type fakeFollowRepo struct {
	follows map[[2]string]bool
}

func newFakeFollowRepo() *fakeFollowRepo {
	return &fakeFollowRepo{follows: map[[2]string]bool{}}
}

func (r *fakeFollowRepo) add(follower, followed string) {
	r.follows[[2]string{follower, followed}] = true
}

func (r *fakeFollowRepo) Exists(_ context.Context, followerID, followedID string) (bool, error) {
	return r.follows[[2]string{followerID, followedID}], nil
}

func (r *fakeFollowRepo) CountFollowers(_ context.Context, userID string) (int, error) {
	count := 0
	for pair := range r.follows {
		if pair[1] == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeFollowRepo) CountFollowing(_ context.Context, userID string) (int, error) {
	count := 0
	for pair := range r.follows {
		if pair[0] == userID {
			count++
		}
	}
	return count, nil
}

type fakePublisher struct {
	published []fakeEvent
	err       error
}

type fakeEvent struct {
	channel string
	data    []byte
	attrs   map[string]string
}

func (p *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, fakeEvent{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func newResultFixture() (*fakeResultRepo, *fakeUserRepo, *fakeFollowRepo) {
	users := newFakeUserRepo(
		types.User{ID: "publica", Username: "publica", Email: "publica@x.com", IsPublic: true},
		types.User{ID: "privada", Username: "privada", Email: "privada@x.com", IsPublic: false},
		types.User{ID: "fan", Username: "fan", Email: "fan@x.com", IsPublic: true},
	)
	results := newFakeResultRepo(
		types.TestResult{ID: "r1", UserID: "privada", TestType: "vocacional", Area: "ciencias", Score: 87, CreatedAt: time.Now()},
	)
	follows := newFakeFollowRepo()
	return results, users, follows
}

func TestSavePublishesEvent(t *testing.T) {
	results, users, follows := newResultFixture()
	publisher := &fakePublisher{}
	svc := NewTestResultService(results, users, follows, publisher, "resultados", nil)

	saved, err := svc.Save(context.Background(), "publica", "vocacional", "artes", 92.5, json.RawMessage(`{"q1":3}`))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "publica", saved.UserID)

	require.Len(t, publisher.published, 1)
	event := publisher.published[0]
	assert.Equal(t, "resultados", event.channel)
	assert.Equal(t, EventResultSaved, event.attrs["evento"])

	var payload types.TestResult
	require.NoError(t, json.Unmarshal(event.data, &payload))
	assert.Equal(t, saved.ID, payload.ID)
}

func TestSavePublishFailureIsNotFatal(t *testing.T) {
	results, users, follows := newResultFixture()
	publisher := &fakePublisher{err: assert.AnError}
	svc := NewTestResultService(results, users, follows, publisher, "resultados", nil)

	_, err := svc.Save(context.Background(), "publica", "vocacional", "artes", 92.5, nil)
	assert.NoError(t, err)
}

func TestSaveWithoutPublisher(t *testing.T) {
	results, users, follows := newResultFixture()
	svc := NewTestResultService(results, users, follows, nil, "", nil)

	_, err := svc.Save(context.Background(), "publica", "vocacional", "artes", 92.5, nil)
	assert.NoError(t, err)
}

func TestSaveRequiresTestType(t *testing.T) {
	results, users, follows := newResultFixture()
	svc := NewTestResultService(results, users, follows, nil, "", nil)

	_, err := svc.Save(context.Background(), "publica", "  ", "artes", 10, nil)
	assert.Equal(t, apperr.CodeCamposIncompletos, errCode(t, err))
}

func TestListByUserStoreFailure(t *testing.T) {
	results, users, follows := newResultFixture()
	results.listErr = assert.AnError
	svc := NewTestResultService(results, users, follows, nil, "", nil)

	_, err := svc.ListByUser(context.Background(), "publica")
	assert.Equal(t, apperr.CodeErrorBD, errCode(t, err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestDeleteOwnership(t *testing.T) {
	t.Run("owner deletes", func(t *testing.T) {
		results, users, follows := newResultFixture()
		svc := NewTestResultService(results, users, follows, nil, "", nil)
		assert.NoError(t, svc.Delete(context.Background(), "privada", "user", "r1"))
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		results, users, follows := newResultFixture()
		svc := NewTestResultService(results, users, follows, nil, "", nil)
		err := svc.Delete(context.Background(), "fan", "user", "r1")
		assert.Equal(t, apperr.CodeNoAutorizado, errCode(t, err))
	})

	t.Run("admin may delete", func(t *testing.T) {
		results, users, follows := newResultFixture()
		svc := NewTestResultService(results, users, follows, nil, "", nil)
		assert.NoError(t, svc.Delete(context.Background(), "fan", "admin", "r1"))
	})

	t.Run("missing result", func(t *testing.T) {
		results, users, follows := newResultFixture()
		svc := NewTestResultService(results, users, follows, nil, "", nil)
		err := svc.Delete(context.Background(), "privada", "user", "nope")
		assert.Equal(t, apperr.CodeResultadoNoEncontrado, errCode(t, err))
	})
}

func TestVocationalPrivacyGate(t *testing.T) {
	t.Run("private profile blocks strangers", func(t *testing.T) {
		results, users, follows := newResultFixture()
		svc := NewTestResultService(results, users, follows, nil, "", nil)

		_, err := svc.History(context.Background(), "fan", "privada")
		assert.Equal(t, apperr.CodePerfilPrivado, errCode(t, err))

		_, err = svc.Latest(context.Background(), "fan", "privada")
		assert.Equal(t, apperr.CodePerfilPrivado, errCode(t, err))

		_, err = svc.Stats(context.Background(), "fan", "privada")
		assert.Equal(t, apperr.CodePerfilPrivado, errCode(t, err))
	})

	t.Run("follower passes the gate", func(t *testing.T) {
		results, users, follows := newResultFixture()
		follows.add("fan", "privada")
		svc := NewTestResultService(results, users, follows, nil, "", nil)

		history, err := svc.History(context.Background(), "fan", "privada")
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("owner always passes", func(t *testing.T) {
		results, users, follows := newResultFixture()
		svc := NewTestResultService(results, users, follows, nil, "", nil)

		latest, err := svc.Latest(context.Background(), "privada", "privada")
		require.NoError(t, err)
		assert.Equal(t, "r1", latest.ID)
	})

	t.Run("public profile is open", func(t *testing.T) {
		results, users, follows := newResultFixture()
		svc := NewTestResultService(results, users, follows, nil, "", nil)

		stats, err := svc.Stats(context.Background(), "fan", "publica")
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Total)
	})

	t.Run("unknown target", func(t *testing.T) {
		results, users, follows := newResultFixture()
		svc := NewTestResultService(results, users, follows, nil, "", nil)

		_, err := svc.History(context.Background(), "fan", "nadie")
		assert.Equal(t, apperr.CodeUsuarioNoEncontrado, errCode(t, err))
	})
}

func TestLatestWithoutResults(t *testing.T) {
	results, users, follows := newResultFixture()
	svc := NewTestResultService(results, users, follows, nil, "", nil)

	_, err := svc.Latest(context.Background(), "publica", "publica")
	assert.Equal(t, apperr.CodeSinResultados, errCode(t, err))
}
