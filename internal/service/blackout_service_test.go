package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/church-schedule-api/internal/dto"
	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
)

type memoryBlackoutRepo struct {
	items map[string]models.BlackoutPeriod
	seq   int
}

func newMemoryBlackoutRepo() *memoryBlackoutRepo {
	return &memoryBlackoutRepo{items: map[string]models.BlackoutPeriod{}}
}

func (m *memoryBlackoutRepo) List(ctx context.Context, filter models.BlackoutFilter) ([]models.BlackoutPeriod, int, error) {
	out := make([]models.BlackoutPeriod, 0, len(m.items))
	for _, b := range m.items {
		out = append(out, b)
	}
	return out, len(out), nil
}

func (m *memoryBlackoutRepo) FindByID(ctx context.Context, id string) (*models.BlackoutPeriod, error) {
	b, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (m *memoryBlackoutRepo) Create(ctx context.Context, b *models.BlackoutPeriod) error {
	m.seq++
	b.ID = "b-" + string(rune('0'+m.seq))
	m.items[b.ID] = *b
	return nil
}

func (m *memoryBlackoutRepo) Update(ctx context.Context, b *models.BlackoutPeriod) error {
	if _, ok := m.items[b.ID]; !ok {
		return sql.ErrNoRows
	}
	m.items[b.ID] = *b
	return nil
}

func (m *memoryBlackoutRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func TestBlackoutServiceCreateNormalisesScope(t *testing.T) {
	repo := newMemoryBlackoutRepo()
	inv := &countingInvalidator{}
	svc := NewBlackoutService(repo, nil, nil, inv)
	end := "2024-03-31"

	created, err := svc.Create(context.Background(), dto.BlackoutRequest{
		Title:     "Renovation",
		Kind:      "blackout",
		ScopeType: "room",
		ScopeID:   " R1 ",
		StartDate: "2024-03-01",
		EndDate:   &end,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BlackoutKindBlackout, created.Kind)
	assert.Equal(t, models.ScopeRoom, created.Scope.Type)
	require.NotNil(t, created.Scope.RoomID)
	assert.Equal(t, "R1", *created.Scope.RoomID)
	assert.True(t, created.Active)
	assert.Equal(t, 1, inv.calls)
}

func TestBlackoutServiceValidation(t *testing.T) {
	svc := NewBlackoutService(newMemoryBlackoutRepo(), nil, nil)
	end := "2024-01-01"

	cases := map[string]dto.BlackoutRequest{
		"unknown kind":    {Title: "x", Kind: "picnic", ScopeType: "GLOBAL", StartDate: "2024-03-01"},
		"scope needs id":  {Title: "x", Kind: "HOLIDAY", ScopeType: "TEACHER", StartDate: "2024-03-01"},
		"inverted range":  {Title: "x", Kind: "HOLIDAY", ScopeType: "GLOBAL", StartDate: "2024-03-01", EndDate: &end},
		"malformed start": {Title: "x", Kind: "HOLIDAY", ScopeType: "GLOBAL", StartDate: "03/01/2024"},
		"missing title":   {Kind: "HOLIDAY", ScopeType: "GLOBAL", StartDate: "2024-03-01"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
		})
	}
}

func TestBlackoutServiceUpdateKeepsActiveFlag(t *testing.T) {
	repo := newMemoryBlackoutRepo()
	svc := NewBlackoutService(repo, nil, nil)
	inactive := false
	created, err := svc.Create(context.Background(), dto.BlackoutRequest{Title: "Retreat", Kind: "EVENT", ScopeType: "GLOBAL", StartDate: "2024-05-01", Active: &inactive})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, dto.BlackoutRequest{Title: "Retreat 2", Kind: "EVENT", ScopeType: "GLOBAL", StartDate: "2024-05-02"})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "Retreat 2", updated.Title)

	_, err = svc.Update(context.Background(), "missing", dto.BlackoutRequest{Title: "x", Kind: "EVENT", ScopeType: "GLOBAL", StartDate: "2024-05-02"})
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestBlackoutServiceDelete(t *testing.T) {
	repo := newMemoryBlackoutRepo()
	inv := &countingInvalidator{}
	svc := NewBlackoutService(repo, nil, nil, inv)
	created, err := svc.Create(context.Background(), dto.BlackoutRequest{Title: "Easter", Kind: "HOLIDAY", ScopeType: "GLOBAL", StartDate: "2024-03-31"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Equal(t, 2, inv.calls)

	err = svc.Delete(context.Background(), created.ID)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, err = svc.Get(context.Background(), created.ID)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}
