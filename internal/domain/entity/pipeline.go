package entity

import "time"

// PipelineStatus is the overall lifecycle of a PipelineRun.
type PipelineStatus string

const (
	PipelineStatusPending   PipelineStatus = "PENDING"
	PipelineStatusRunning   PipelineStatus = "RUNNING"
	PipelineStatusPaused    PipelineStatus = "PAUSED"
	PipelineStatusCompleted PipelineStatus = "COMPLETED"
	PipelineStatusFailed    PipelineStatus = "FAILED"
)

// PipelineStage is one stage of the FETCH -> RULE_FILTER -> LLM_ANALYSIS -> STORE
// sequence a PipelineRun drives articles through. StageNone is the value held
// before any stage begins and after a run reaches a terminal status.
type PipelineStage string

const (
	StageNone        PipelineStage = ""
	StageFetch       PipelineStage = "FETCH"
	StageRuleFilter  PipelineStage = "RULE_FILTER"
	StageLLMAnalysis PipelineStage = "LLM_ANALYSIS"
	StageStore       PipelineStage = "STORE"
)

// stageOrder fixes the sequence stages advance through.
var stageOrder = []PipelineStage{StageFetch, StageRuleFilter, StageLLMAnalysis, StageStore}

// NextStage returns the stage following s, or StageNone if s is StageStore or
// not a recognized stage.
func NextStage(s PipelineStage) PipelineStage {
	for i, st := range stageOrder {
		if st == s && i+1 < len(stageOrder) {
			return stageOrder[i+1]
		}
	}
	return StageNone
}

// PipelineRun is a named execution of the analysis pipeline over articles in
// an optional [date_from, date_to) window. FilterResult and AnalysisResult rows
// scoped by RunID are its owned per-article artifacts.
type PipelineRun struct {
	ID                 int64
	Name               string
	Status             PipelineStatus
	CurrentStage       PipelineStage
	DateFrom           *time.Time
	DateTo             *time.Time
	TotalArticles      int
	RuleFilteredCount  int
	RulePassedCount    int
	AnalyzedCount      int
	ForceIncludedCount int
	BatchID            string
	StartedAt          *time.Time
	CompletedAt        *time.Time
	ErrorLog           string
}

// IsTerminal reports whether the run has reached COMPLETED or FAILED, at which
// point CurrentStage must be StageNone (§8 invariant 5).
func (r *PipelineRun) IsTerminal() bool {
	return r.Status == PipelineStatusCompleted || r.Status == PipelineStatusFailed
}

// FilterDecision is the outcome of evaluating one article against the active
// FilterRule set during the RULE_FILTER stage.
type FilterDecision string

const (
	DecisionKeep         FilterDecision = "KEEP"
	DecisionFilter       FilterDecision = "FILTER"
	DecisionForceInclude FilterDecision = "FORCE_INCLUDE"
)

// FilterResult is one article's per-stage decision within a run. Rows are
// append-only; they are deleted only by an explicit ResetPipelineRun.
type FilterResult struct {
	ID         int64
	RunID      int64
	ArticleID  int64
	Stage      PipelineStage
	Decision   FilterDecision
	Confidence *float64
	RuleName   string
	Reason     string
	CreatedAt  time.Time
}
