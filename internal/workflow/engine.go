// Package workflow owns the project lifecycle and the bidding workflow. It is
// the only writer of Project.State and Application.Status.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/metrics"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
)

// Actor is the authenticated identity behind a call.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

func (a Actor) IsZero() bool { return a.ID == uuid.Nil }

// Notifier delivers a notification to one user. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, n models.Notification)
}

// Publisher fans a stored chat message out to the project's live sessions.
type Publisher interface {
	Publish(ctx context.Context, projectID uuid.UUID, msg models.ChatMessage)
}

type Engine struct {
	store       repository.Store
	notifier    Notifier
	relay       Publisher
	now         func() time.Time
	matchPolicy MatchPolicy
	log         *zap.Logger
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option   { return func(e *Engine) { e.notifier = n } }
func WithPublisher(p Publisher) Option { return func(e *Engine) { e.relay = p } }
func WithLogger(l *zap.Logger) Option  { return func(e *Engine) { e.log = l } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithMatchPolicy sets the default skill matching of the open-projects feed.
func WithMatchPolicy(p MatchPolicy) Option { return func(e *Engine) { e.matchPolicy = p } }

func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		notifier:    nopNotifier{},
		relay:       nopPublisher{},
		now:         time.Now,
		matchPolicy: MatchOverlap,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) MatchPolicy() MatchPolicy { return e.matchPolicy }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, uuid.UUID, models.Notification) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, uuid.UUID, models.ChatMessage) {}

// fail records a failed operation and passes err through.
func (e *Engine) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	code := apperr.CodeOf(err)
	metrics.RecordWorkflowError(op, string(code))
	if code == apperr.CodeStoreUnavailable || code == apperr.CodeInternal {
		e.log.Error("workflow operation failed", zap.String("op", op), zap.Error(err))
	} else {
		e.log.Debug("workflow operation rejected", zap.String("op", op), zap.String("code", string(code)))
	}
	return err
}

// effects are side effects collected inside a transaction and released
// only after it commits. Nothing here may run while a row lock is held.
type effects struct {
	notes []note
	msgs  []models.ChatMessage
	moves [][2]models.ProjectState
}

type note struct {
	to uuid.UUID
	n  models.Notification
}

func (f *effects) notify(to uuid.UUID, n models.Notification) {
	f.notes = append(f.notes, note{to: to, n: n})
}

func (e *Engine) flush(ctx context.Context, f *effects) {
	for _, mv := range f.moves {
		metrics.RecordTransition(string(mv[0]), string(mv[1]))
	}
	for _, m := range f.msgs {
		e.relay.Publish(ctx, m.ProjectID, m)
	}
	for _, nt := range f.notes {
		e.notifier.Notify(ctx, nt.to, nt.n)
	}
}

// transition applies one lifecycle move inside tx: the conditional update,
// the history event and a system line in the project chat.
func (e *Engine) transition(ctx context.Context, tx repository.Store, fx *effects, p *models.Project, to models.ProjectState, actor Actor, appID *uuid.UUID, note string, set map[string]any) error {
	if !p.State.CanTransition(to) {
		return apperr.Newf(apperr.CodeInvalidTransition, "cannot move project from %s to %s", p.State, to)
	}
	from := p.State
	version, err := tx.TransitionProject(ctx, repository.ProjectTransition{
		ProjectID: p.ID,
		From:      from,
		To:        to,
		Version:   p.Version,
		Set:       set,
	})
	if err != nil {
		return err
	}

	at := e.now()
	if err := tx.AppendEvent(ctx, &models.ProjectEvent{
		ProjectID:     p.ID,
		From:          from,
		To:            to,
		Version:       version,
		ActorID:       actor.ID,
		ApplicationID: appID,
		Note:          note,
		CreatedAt:     at,
	}); err != nil {
		return err
	}

	msg := models.ChatMessage{
		ProjectID: p.ID,
		SenderID:  actor.ID,
		Type:      models.MessageSystem,
		Body:      systemLine(from, to, note),
		CreatedAt: at,
	}
	if err := tx.AppendMessage(ctx, &msg); err != nil {
		return err
	}

	p.State = to
	p.Version = version
	fx.msgs = append(fx.msgs, msg)
	fx.moves = append(fx.moves, [2]models.ProjectState{from, to})
	return nil
}

func systemLine(from, to models.ProjectState, note string) string {
	line := "project moved from " + string(from) + " to " + string(to)
	if note != "" {
		line += ": " + note
	}
	return line
}
