package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectStateTransitions(t *testing.T) {
	cases := []struct {
		from, to ProjectState
		ok       bool
	}{
		{ProjectOpen, ProjectAssigned, true},
		{ProjectOpen, ProjectCancelled, true},
		{ProjectOpen, ProjectInProgress, false},
		{ProjectOpen, ProjectCompleted, false},
		{ProjectAssigned, ProjectInProgress, true},
		{ProjectAssigned, ProjectCancelled, true},
		{ProjectAssigned, ProjectOpen, false},
		{ProjectInProgress, ProjectCompleted, true},
		{ProjectInProgress, ProjectCancelled, false},
		{ProjectCompleted, ProjectCancelled, false},
		{ProjectCancelled, ProjectOpen, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.ok, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range ProjectStates {
		if !s.Terminal() {
			continue
		}
		for _, next := range ProjectStates {
			assert.Falsef(t, s.CanTransition(next), "%s must be terminal", s)
		}
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleFreelancer.Valid())
	assert.False(t, Role("owner").Valid())
}
