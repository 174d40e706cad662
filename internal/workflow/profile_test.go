package workflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

func TestRegisterFreelancerCreatesProfile(t *testing.T) {
	h := newHarness(t)

	u, err := h.eng.RegisterUser(h.ctx, Registration{Username: "fred", Email: "Fred@Example.com", Password: "secret1", Role: models.RoleFreelancer})
	require.NoError(t, err)
	require.NotNil(t, u.Profile)
	assert.Equal(t, "fred@example.com", u.Email)
	assert.NotEqual(t, "secret1", u.Password)

	f, err := h.eng.GetFreelancer(h.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Profile.ID, f.ID)
	assert.Empty(t, f.Skills)
}

func TestRegisterRules(t *testing.T) {
	h := newHarness(t)

	u, err := h.eng.RegisterUser(h.ctx, Registration{Username: "carol", Email: "carol@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, u.Role)
	assert.Nil(t, u.Profile)

	_, err = h.eng.RegisterUser(h.ctx, Registration{Username: "c2", Email: "CAROL@example.com", Password: "secret1"})
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))

	_, err = h.eng.RegisterUser(h.ctx, Registration{Username: "boss", Email: "boss@example.com", Password: "secret1", Role: models.RoleAdmin})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized))

	_, err = h.eng.RegisterUser(h.ctx, Registration{Username: "", Email: "nope", Password: "1", Role: "guest"})
	var ae *apperr.AppError
	require.ErrorAs(t, err, &ae)
	assert.Len(t, ae.Fields, 4)

	_, err = h.eng.GetFreelancer(h.ctx, u.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeUserNotFound))
}

func TestAuthenticate(t *testing.T) {
	h := newHarness(t)
	fred := h.user("fred", models.RoleFreelancer)

	u, err := h.eng.Authenticate(h.ctx, "FRED@example.com", "password-fred")
	require.NoError(t, err)
	assert.Equal(t, fred.ID, u.ID)

	_, err = h.eng.Authenticate(h.ctx, "fred@example.com", "wrong")
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
	_, err = h.eng.Authenticate(h.ctx, "ghost@example.com", "whatever")
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}

func TestUpsertExternalUser(t *testing.T) {
	h := newHarness(t)

	first, err := h.eng.UpsertExternalUser(h.ctx, ExternalIdentity{Email: "gail@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, first.Role)
	assert.Equal(t, "gail", first.Username)

	again, err := h.eng.UpsertExternalUser(h.ctx, ExternalIdentity{Email: "gail@example.com", Username: "Gail"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestUpdateFreelancerProfile(t *testing.T) {
	h := newHarness(t)
	fred := h.user("fred", models.RoleFreelancer)
	gina := h.user("gina", models.RoleFreelancer)
	ginaProfile, err := h.eng.GetFreelancer(h.ctx, gina.ID)
	require.NoError(t, err)

	f, err := h.eng.UpdateFreelancerProfile(h.ctx, fred, ProfileUpdate{
		Skills:      SplitSkills("Go, react ,go,,"),
		Description: "  backend dev ",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "react"}, []string(f.Skills))
	assert.Equal(t, "backend dev", f.Description)

	_, err = h.eng.UpdateFreelancerProfile(h.ctx, fred, ProfileUpdate{FreelancerID: &ginaProfile.ID})
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized))

	stored, err := h.eng.GetFreelancer(h.ctx, fred.ID)
	require.NoError(t, err)
	assert.Equal(t, "backend dev", stored.Description)

	_, err = h.eng.GetFreelancer(h.ctx, uuid.New())
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}
