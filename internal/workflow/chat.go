package workflow

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
)

const maxMessageLen = 4000

// CanJoinChat returns the project when actor may read and write its chat.
// Besides the participants, a freelancer who bid on the project may talk to
// the client.
func (e *Engine) CanJoinChat(ctx context.Context, actor Actor, projectID uuid.UUID) (*models.Project, error) {
	const op = "join_chat"
	if err := requireActor(actor); err != nil {
		return nil, e.fail(op, err)
	}
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, e.fail(op, err)
	}
	if isParticipant(actor, p) {
		return p, nil
	}
	if actor.Role == models.RoleFreelancer {
		bids, err := e.store.ListApplications(ctx, repository.ApplicationFilter{
			ProjectID:    &p.ID,
			FreelancerID: &actor.ID,
			Page:         repository.Page{Limit: 1},
		})
		if err != nil {
			return nil, e.fail(op, err)
		}
		if len(bids) > 0 {
			return p, nil
		}
	}
	return nil, e.fail(op, apperr.New(apperr.CodeNotAuthorized, "not a participant of this project"))
}

// SendChatMessage appends a message to the project chat, then hands it to
// the relay. Delivery to live sessions is at most once; the stored log is
// the source of truth.
func (e *Engine) SendChatMessage(ctx context.Context, actor Actor, projectID uuid.UUID, body string) (*models.ChatMessage, error) {
	const op = "send_chat_message"
	if _, err := e.CanJoinChat(ctx, actor, projectID); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	fe := apperr.FieldErrors{}
	if body == "" {
		fe.Add("body", "message is empty")
	} else if utf8.RuneCountInString(body) > maxMessageLen {
		fe.Add("body", "message is too long")
	}
	if err := fe.Err(); err != nil {
		return nil, e.fail(op, err)
	}

	msg := &models.ChatMessage{
		ProjectID: projectID,
		SenderID:  actor.ID,
		Type:      models.MessageText,
		Body:      body,
		CreatedAt: e.now(),
	}
	if err := e.store.AppendMessage(ctx, msg); err != nil {
		return nil, e.fail(op, err)
	}
	e.relay.Publish(ctx, projectID, *msg)
	return msg, nil
}

// ChatHistory replays stored messages newer than since, oldest first.
func (e *Engine) ChatHistory(ctx context.Context, actor Actor, projectID uuid.UUID, since time.Time, limit int) ([]models.ChatMessage, error) {
	if _, err := e.CanJoinChat(ctx, actor, projectID); err != nil {
		return nil, err
	}
	out, err := e.store.ListMessages(ctx, projectID, since, limit)
	return out, e.fail("chat_history", err)
}
