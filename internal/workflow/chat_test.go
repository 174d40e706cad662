package workflow

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

func TestChatParticipants(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	gina := h.user("gina", models.RoleFreelancer)
	p := h.project(client)

	_, err := h.eng.SendChatMessage(h.ctx, fred, p.ID, "hello?")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized), "no bid yet")

	h.bid(fred, p.ID)
	msg, err := h.eng.SendChatMessage(h.ctx, fred, p.ID, "  hi carol  ")
	require.NoError(t, err)
	assert.Equal(t, "hi carol", msg.Body)
	assert.Equal(t, models.MessageText, msg.Type)

	_, err = h.eng.SendChatMessage(h.ctx, client, p.ID, "hi fred")
	require.NoError(t, err)

	_, err = h.eng.ChatHistory(h.ctx, gina, p.ID, time.Time{}, 0)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized))

	history, err := h.eng.ChatHistory(h.ctx, client, p.ID, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, fred.ID, history[0].SenderID)
	assert.Equal(t, client.ID, history[1].SenderID)

	assert.Len(t, h.rec.published(), 2)
}

func TestChatMessageValidation(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	p := h.project(client)

	_, err := h.eng.SendChatMessage(h.ctx, client, p.ID, "   ")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = h.eng.SendChatMessage(h.ctx, client, p.ID, strings.Repeat("a", maxMessageLen+1))
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	assert.Empty(t, h.rec.published())
}
