package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/dbtest"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
)

type recorder struct {
	mu    sync.Mutex
	notes map[uuid.UUID][]models.Notification
	msgs  []models.ChatMessage
}

func newRecorder() *recorder {
	return &recorder{notes: map[uuid.UUID][]models.Notification{}}
}

func (r *recorder) Notify(_ context.Context, to uuid.UUID, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[to] = append(r.notes[to], n)
}

func (r *recorder) Publish(_ context.Context, _ uuid.UUID, m models.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) notesFor(id uuid.UUID) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.notes[id]...)
}

func (r *recorder) published() []models.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ChatMessage(nil), r.msgs...)
}

// ticker is a clock that advances one second per reading.
type ticker struct {
	mu sync.Mutex
	t  time.Time
}

func (c *ticker) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	store *repository.GormStore
	eng   *Engine
	rec   *recorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	rec := newRecorder()
	store := repository.NewGormStore(dbtest.New(t))
	clock := &ticker{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	base := []Option{WithNotifier(rec), WithPublisher(rec), WithClock(clock.now)}
	return &harness{
		t:     t,
		ctx:   context.Background(),
		store: store,
		eng:   New(store, append(base, opts...)...),
		rec:   rec,
	}
}

func (h *harness) user(name string, role models.Role) Actor {
	h.t.Helper()
	reg := Registration{
		Username: name,
		Email:    name + "@example.com",
		Password: "password-" + name,
		Role:     role,
	}
	register := h.eng.RegisterUser
	if role == models.RoleAdmin {
		register = h.eng.SeedAdmin
	}
	u, err := register(h.ctx, reg)
	require.NoError(h.t, err)
	return Actor{ID: u.ID, Role: u.Role}
}

func (h *harness) project(client Actor, skills ...string) *models.Project {
	h.t.Helper()
	p, err := h.eng.CreateProject(h.ctx, client, NewProject{
		Title:       "Marketplace frontend",
		Description: "Build the landing page",
		Budget:      500,
		Skills:      skills,
	})
	require.NoError(h.t, err)
	return p
}

func (h *harness) bid(fl Actor, projectID uuid.UUID) *models.Application {
	h.t.Helper()
	a, err := h.eng.SubmitBid(h.ctx, fl, Bid{ProjectID: projectID, Budget: 450, EstimatedDays: 5, Proposal: "I can do it"})
	require.NoError(h.t, err)
	return a
}

func (h *harness) reload(id uuid.UUID) *models.Project {
	h.t.Helper()
	p, err := h.store.GetProject(h.ctx, id)
	require.NoError(h.t, err)
	return p
}

func (h *harness) status(id uuid.UUID) models.ApplicationStatus {
	h.t.Helper()
	a, err := h.store.GetApplication(h.ctx, id)
	require.NoError(h.t, err)
	return a.Status
}

func (h *harness) acceptedCount(projectID uuid.UUID) int {
	h.t.Helper()
	apps, err := h.store.ListApplicationsByProject(h.ctx, projectID)
	require.NoError(h.t, err)
	n := 0
	for _, a := range apps {
		if a.Status == models.ApplicationAccepted {
			n++
		}
	}
	return n
}

func (a Actor) withRole(r models.Role) Actor {
	a.Role = r
	return a
}
