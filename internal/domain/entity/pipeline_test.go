package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStage(t *testing.T) {
	assert.Equal(t, StageRuleFilter, NextStage(StageFetch))
	assert.Equal(t, StageLLMAnalysis, NextStage(StageRuleFilter))
	assert.Equal(t, StageStore, NextStage(StageLLMAnalysis))
	assert.Equal(t, StageNone, NextStage(StageStore))
	assert.Equal(t, StageNone, NextStage(StageNone))
}

func TestPipelineRun_IsTerminal(t *testing.T) {
	cases := []struct {
		status PipelineStatus
		want   bool
	}{
		{PipelineStatusPending, false},
		{PipelineStatusRunning, false},
		{PipelineStatusPaused, false},
		{PipelineStatusCompleted, true},
		{PipelineStatusFailed, true},
	}

	for _, tc := range cases {
		r := PipelineRun{Status: tc.status}
		assert.Equal(t, tc.want, r.IsTerminal())
	}
}
