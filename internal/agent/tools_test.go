package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voicereach/voicereach/internal/calls"
)

func stateForGoal(goal calls.Goal) *CallState {
	return NewCallState(&calls.ContextInstance{
		ID:      "ctx-1",
		Phone:   "+14155551234",
		Product: "Test Product",
		Goal:    goal,
	})
}

func TestApplyTool_RecordInfo(t *testing.T) {
	state := stateForGoal(calls.GoalQualifyInterest)
	state.Phase = PhaseDiscovery

	guidance, err := ApplyTool(state, ToolCall{
		Name: ToolRecordInfo,
		Args: map[string]string{"field_name": "budget", "value": "around 50k"},
	})
	require.NoError(t, err)
	assert.Contains(t, guidance, "Recorded")
	assert.Equal(t, "around 50k", state.CollectedData["budget"])
	assert.Equal(t, PhaseDiscovery, state.Phase)

	_, err = ApplyTool(state, ToolCall{Name: ToolRecordInfo})
	assert.Error(t, err, "missing field_name")
}

func TestApplyTool_RecordObjection(t *testing.T) {
	state := stateForGoal(calls.GoalQualifyInterest)
	state.Phase = PhasePitch

	_, err := ApplyTool(state, ToolCall{
		Name: ToolRecordObjection,
		Args: map[string]string{"objection_type": "price", "details": "too much for us"},
	})
	require.NoError(t, err)
	assert.Equal(t, "price", state.ObjectionReason)
	assert.Equal(t, "too much for us", state.CollectedData["objection_price"])
}

func TestApplyTool_CollectEmail(t *testing.T) {
	cases := []struct {
		goal calls.Goal
		want string
	}{
		{calls.GoalBookMeeting, "booking link"},
		{calls.GoalCloseSale, "payment link"},
		{calls.GoalCollectInfo, "got your email"},
	}
	for _, tc := range cases {
		t.Run(string(tc.goal), func(t *testing.T) {
			state := stateForGoal(tc.goal)
			state.Phase = PhaseClose

			guidance, err := ApplyTool(state, ToolCall{
				Name: ToolCollectEmail,
				Args: map[string]string{"email": "lead@example.com"},
			})
			require.NoError(t, err)
			assert.Contains(t, guidance, tc.want)
			assert.Equal(t, "lead@example.com", state.LeadEmail)
			assert.Equal(t, "lead@example.com", state.CollectedData["email"])
		})
	}
}

func TestApplyTool_EndCallSuccessMapsGoalToOutcome(t *testing.T) {
	cases := []struct {
		goal calls.Goal
		want Outcome
	}{
		{calls.GoalBookMeeting, OutcomeBooked},
		{calls.GoalQualifyInterest, OutcomeQualified},
		{calls.GoalCollectInfo, OutcomeCollected},
		{calls.GoalCloseSale, OutcomeCommitted},
	}
	for _, tc := range cases {
		t.Run(string(tc.goal), func(t *testing.T) {
			state := stateForGoal(tc.goal)
			state.Phase = PhaseClose

			_, err := ApplyTool(state, ToolCall{Name: ToolEndCallSuccess})
			require.NoError(t, err)
			assert.Equal(t, tc.want, state.Outcome)
			assert.Equal(t, PhaseEnded, state.Phase)
			assert.True(t, state.Ended())
		})
	}
}

func TestApplyTool_EndCallDeclined(t *testing.T) {
	state := stateForGoal(calls.GoalBookMeeting)
	state.Phase = PhaseClose

	_, err := ApplyTool(state, ToolCall{
		Name: ToolEndCallDeclined,
		Args: map[string]string{"reason": "bad_timing"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeclined, state.Outcome)
	assert.Equal(t, "bad_timing", state.ObjectionReason)
	assert.Equal(t, PhaseEnded, state.Phase)
}

func TestApplyTool_OutOfPhaseToolLeavesStateUntouched(t *testing.T) {
	state := stateForGoal(calls.GoalBookMeeting)

	_, err := ApplyTool(state, ToolCall{Name: ToolEndCallSuccess})
	require.Error(t, err)
	assert.Equal(t, PhaseGreeting, state.Phase)
	assert.Equal(t, OutcomePending, state.Outcome)
	assert.Empty(t, state.CollectedData)
}
