package workflow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
)

func TestPostedProjectIsListedOpen(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)

	p := h.project(client, "React", "node", "react")

	all, err := h.eng.ListProjects(h.ctx, repository.Page{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, p.ID, all[0].ID)
	assert.Equal(t, models.ProjectOpen, all[0].State)
	assert.Equal(t, int64(500), all[0].Budget)
	assert.Equal(t, []string{"react", "node"}, []string(all[0].Skills))
	assert.Equal(t, "carol", all[0].ClientName)
	assert.Equal(t, "carol@example.com", all[0].ClientEmail)
}

func TestBidIsListedPending(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	p := h.project(client, "react")

	a := h.bid(fred, p.ID)
	assert.Equal(t, models.ApplicationPending, a.Status)
	assert.False(t, a.SubmittedAt.IsZero())

	apps, err := h.eng.ApplicationsByProject(h.ctx, client, p.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, models.ApplicationPending, apps[0].Status)
	assert.Equal(t, "fred", apps[0].Bidder.Username)
	assert.Equal(t, 5, apps[0].EstimatedDays)

	// bidding does not touch the project
	assert.Equal(t, 1, h.reload(p.ID).Version)
}

func TestSecondPendingBidIsDuplicate(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	p := h.project(client)
	h.bid(fred, p.ID)

	_, err := h.eng.SubmitBid(h.ctx, fred, Bid{ProjectID: p.ID, Budget: 300, EstimatedDays: 2, Proposal: "cheaper"})
	assert.True(t, apperr.IsCode(err, apperr.CodeDuplicateBid))

	apps, err := h.eng.ApplicationsByProject(h.ctx, client, p.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestAcceptAssignsAndRejectsOthers(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	gina := h.user("gina", models.RoleFreelancer)
	p := h.project(client)
	ga := h.bid(gina, p.ID)
	fa := h.bid(fred, p.ID)

	res, err := h.eng.AcceptBid(h.ctx, client, p.ID, fa.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectAssigned, res.Project.State)
	assert.Equal(t, models.ApplicationAccepted, res.Application.Status)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, ga.ID, res.Rejected[0].ID)

	got := h.reload(p.ID)
	assert.Equal(t, models.ProjectAssigned, got.State)
	require.NotNil(t, got.AcceptedApplicationID)
	assert.Equal(t, fa.ID, *got.AcceptedApplicationID)
	require.NotNil(t, got.AssignedFreelancerID)
	assert.Equal(t, fred.ID, *got.AssignedFreelancerID)

	assert.Equal(t, models.ApplicationAccepted, h.status(fa.ID))
	assert.Equal(t, models.ApplicationRejected, h.status(ga.ID))

	require.Len(t, h.rec.notesFor(fred.ID), 1)
	assert.Equal(t, models.NotifyApplicationAccepted, h.rec.notesFor(fred.ID)[0].Type)
	require.Len(t, h.rec.notesFor(gina.ID), 1)
	assert.Equal(t, models.NotifyApplicationRejected, h.rec.notesFor(gina.ID)[0].Type)
}

func TestOtherClientCannotAccept(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	mallory := h.user("mallory", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	p := h.project(client)
	fa := h.bid(fred, p.ID)

	_, err := h.eng.AcceptBid(h.ctx, mallory, p.ID, fa.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized))

	assert.Equal(t, models.ProjectOpen, h.reload(p.ID).State)
	assert.Equal(t, models.ApplicationPending, h.status(fa.ID))

	_, err = h.eng.AcceptBid(h.ctx, fred, p.ID, fa.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized))
}

func TestCancelAfterAssignmentRevertsAcceptedBid(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	p := h.project(client)
	fa := h.bid(fred, p.ID)
	_, err := h.eng.AcceptBid(h.ctx, client, p.ID, fa.ID)
	require.NoError(t, err)

	res, err := h.eng.CancelProject(h.ctx, client, p.ID, "budget cut")
	require.NoError(t, err)
	assert.False(t, res.AlreadyCancelled)
	assert.Equal(t, models.ProjectCancelled, res.Project.State)

	got := h.reload(p.ID)
	assert.Equal(t, models.ProjectCancelled, got.State)
	assert.Nil(t, got.AcceptedApplicationID)
	assert.Nil(t, got.AssignedFreelancerID)
	assert.Equal(t, models.ApplicationRejected, h.status(fa.ID))
	assert.Equal(t, 0, h.acceptedCount(p.ID))

	notes := h.rec.notesFor(fred.ID)
	require.Len(t, notes, 2)
	assert.Equal(t, models.NotifyProjectCancelled, notes[1].Type)
}

func TestCancelOpenRejectsPendingBids(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	p := h.project(client)
	fa := h.bid(fred, p.ID)

	_, err := h.eng.CancelProject(h.ctx, client, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, h.status(fa.ID))

	_, err = h.eng.SubmitBid(h.ctx, fred, Bid{ProjectID: p.ID, Budget: 1, EstimatedDays: 1, Proposal: "late"})
	assert.True(t, apperr.IsCode(err, apperr.CodeProjectNotOpen))
}

func TestCancelIsIdempotent(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	p := h.project(client)

	first, err := h.eng.CancelProject(h.ctx, client, p.ID, "")
	require.NoError(t, err)
	second, err := h.eng.CancelProject(h.ctx, client, p.ID, "")
	require.NoError(t, err)

	assert.False(t, first.AlreadyCancelled)
	assert.True(t, second.AlreadyCancelled)
	assert.Equal(t, models.ProjectCancelled, second.Project.State)
	assert.Equal(t, first.Project.Version, second.Project.Version)

	events, err := h.eng.ProjectHistory(h.ctx, client, p.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestAdminMayCancelOtherClientsCannot(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	other := h.user("oscar", models.RoleClient)
	admin := h.user("root", models.RoleAdmin)
	p := h.project(client)

	_, err := h.eng.CancelProject(h.ctx, other, p.ID, "")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized))

	res, err := h.eng.CancelProject(h.ctx, admin, p.ID, "spam")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCancelled, res.Project.State)
}

func TestFullLifecycleAndHistory(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	gina := h.user("gina", models.RoleFreelancer)
	p := h.project(client)
	fa := h.bid(fred, p.ID)

	_, err := h.eng.StartWork(h.ctx, fred, p.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized), "not assigned yet")

	_, err = h.eng.AcceptBid(h.ctx, client, p.ID, fa.ID)
	require.NoError(t, err)

	_, err = h.eng.CompleteProject(h.ctx, client, p.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition), "cannot skip in_progress")

	_, err = h.eng.StartWork(h.ctx, gina, p.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized))

	started, err := h.eng.StartWork(h.ctx, fred, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectInProgress, started.State)

	_, err = h.eng.CancelProject(h.ctx, client, p.ID, "")
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition))

	_, err = h.eng.CompleteProject(h.ctx, fred.withRole(models.RoleClient), p.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized))

	done, err := h.eng.CompleteProject(h.ctx, client, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCompleted, done.State)
	assert.Equal(t, 4, done.Version)

	events, err := h.eng.ProjectHistory(h.ctx, fred, p.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	var prev models.ProjectState
	for i, ev := range events {
		assert.Equal(t, i+1, ev.Version)
		assert.Equal(t, prev, ev.From)
		if i > 0 {
			assert.True(t, ev.From.CanTransition(ev.To), "%s -> %s", ev.From, ev.To)
		}
		prev = ev.To
	}
	assert.Equal(t, done.State, prev)

	_, err = h.eng.ProjectHistory(h.ctx, gina, p.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthorized))

	assert.Equal(t, models.NotifyWorkStarted, h.rec.notesFor(client.ID)[0].Type)
	fredNotes := h.rec.notesFor(fred.ID)
	assert.Equal(t, models.NotifyProjectCompleted, fredNotes[len(fredNotes)-1].Type)
}

func TestAcceptOnFinishedProjectChangesNothing(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	p := h.project(client)
	fa := h.bid(fred, p.ID)
	_, err := h.eng.CancelProject(h.ctx, client, p.ID, "")
	require.NoError(t, err)
	before := h.reload(p.ID)

	_, err = h.eng.AcceptBid(h.ctx, client, p.ID, fa.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidTransition))

	after := h.reload(p.ID)
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, models.ApplicationRejected, h.status(fa.ID))
}

func TestAcceptRejectsForeignOrResolvedApplication(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	gina := h.user("gina", models.RoleFreelancer)
	p := h.project(client)
	other := h.project(client)
	foreign := h.bid(fred, other.ID)

	_, err := h.eng.AcceptBid(h.ctx, client, p.ID, foreign.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeApplicationNotFound))

	fa := h.bid(fred, p.ID)
	ga := h.bid(gina, p.ID)
	_, err = h.eng.AcceptBid(h.ctx, client, p.ID, fa.ID)
	require.NoError(t, err)

	_, err = h.eng.AcceptBid(h.ctx, client, p.ID, ga.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyResolved))
	_, err = h.eng.AcceptBid(h.ctx, client, p.ID, fa.ID)
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyResolved))
	assert.Equal(t, 1, h.acceptedCount(p.ID))
}

func TestConcurrentAcceptanceHasOneWinner(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	gina := h.user("gina", models.RoleFreelancer)
	p := h.project(client)
	apps := []*models.Application{h.bid(fred, p.ID), h.bid(gina, p.ID)}

	var wg sync.WaitGroup
	errs := make([]error, len(apps))
	start := make(chan struct{})
	for i, a := range apps {
		wg.Add(1)
		go func(i int, a models.Application) {
			defer wg.Done()
			<-start
			_, errs[i] = h.eng.AcceptBid(h.ctx, client, p.ID, a.ID)
		}(i, *a)
	}
	close(start)
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.IsCode(err, apperr.CodeAlreadyResolved):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
	assert.Equal(t, models.ProjectAssigned, h.reload(p.ID).State)
	assert.Equal(t, 1, h.acceptedCount(p.ID))
}

func TestSystemMessagesFollowTransitions(t *testing.T) {
	h := newHarness(t)
	client := h.user("carol", models.RoleClient)
	fred := h.user("fred", models.RoleFreelancer)
	p := h.project(client)
	fa := h.bid(fred, p.ID)
	_, err := h.eng.AcceptBid(h.ctx, client, p.ID, fa.ID)
	require.NoError(t, err)

	pub := h.rec.published()
	require.Len(t, pub, 1)
	assert.Equal(t, models.MessageSystem, pub[0].Type)
	assert.Contains(t, pub[0].Body, "open to assigned")

	history, err := h.eng.ChatHistory(h.ctx, fred, p.ID, pub[0].CreatedAt.Add(-1), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, pub[0].ID, history[0].ID)
}
