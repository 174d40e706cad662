//go:build integration

package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/dbtest"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
)

func TestPostgresAcceptanceRace(t *testing.T) {
	ctx := context.Background()
	store := repository.NewGormStore(dbtest.NewPostgres(t))
	h := &harness{t: t, ctx: ctx, store: store, eng: New(store), rec: newRecorder()}

	client := h.user("carol", models.RoleClient)
	p := h.project(client)
	const bidders = 8
	apps := make([]*models.Application, bidders)
	for i := range apps {
		fl := h.user("fl"+string(rune('a'+i)), models.RoleFreelancer)
		apps[i] = h.bid(fl, p.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, bidders)
	start := make(chan struct{})
	for i, a := range apps {
		wg.Add(1)
		go func(i int, a models.Application) {
			defer wg.Done()
			<-start
			_, errs[i] = h.eng.AcceptBid(ctx, client, p.ID, a.ID)
		}(i, *a)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyResolved), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, models.ProjectAssigned, h.reload(p.ID).State)
	assert.Equal(t, 1, h.acceptedCount(p.ID))
}

func TestPostgresPartialIndexRejectsDuplicatePendingBid(t *testing.T) {
	ctx := context.Background()
	store := repository.NewGormStore(dbtest.NewPostgres(t))
	h := &harness{t: t, ctx: ctx, store: store, eng: New(store), rec: newRecorder()}
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	p := h.project(client)
	h.bid(fred, p.ID)

	err := store.CreateApplication(ctx, &models.Application{
		ProjectID: p.ID, FreelancerID: fred.ID, Budget: 1, EstimatedDays: 1,
		Proposal: "bypassing the pre-check", Status: models.ApplicationPending,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeDuplicateBid))
}
