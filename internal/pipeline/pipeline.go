// Package pipeline implements the C8 stage-machine orchestrator: it drives a
// PipelineRun through FETCH -> RULE_FILTER -> LLM_ANALYSIS -> STORE, in that
// strict order, persisting progress after each stage so a paused or crashed
// run can resume from where it left off.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"newsgraph/internal/analysisstore"
	"newsgraph/internal/domain/entity"
	"newsgraph/internal/filter"
	"newsgraph/internal/llm"
	"newsgraph/internal/repository"
)

// pageSize is how many articles each streaming stage pulls per page.
const pageSize = 100

// ProgressFunc is an optional callback RunPipeline invokes after every page
// within RULE_FILTER and after STORE finishes each article, so a caller can
// report live progress without polling GetRun.
type ProgressFunc func(stage entity.PipelineStage, processed, total int)

// Orchestrator wires together the stage implementations: C8.8's Evaluator,
// C9's Coordinator, and C10's Store, over the article and run repositories.
type Orchestrator struct {
	runs     repository.PipelineRepository
	articles repository.ArticleRepository
	filters  repository.FilterRepository
	analysis repository.AnalysisRepository
	eval     *filter.Evaluator
	coord    *llm.Coordinator
	store    *analysisstore.Store
	logger   *slog.Logger
}

func NewOrchestrator(
	runs repository.PipelineRepository,
	articles repository.ArticleRepository,
	filters repository.FilterRepository,
	analysis repository.AnalysisRepository,
	eval *filter.Evaluator,
	coord *llm.Coordinator,
	store *analysisstore.Store,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		runs: runs, articles: articles, filters: filters, analysis: analysis,
		eval: eval, coord: coord, store: store, logger: logger,
	}
}

// runContext carries the per-run state a RunPipeline invocation accumulates
// as it advances stages; none of it outlives one RunPipeline call except
// what gets persisted to PipelineRun/FilterResult rows between stages.
type runContext struct {
	run        *entity.PipelineRun
	survivors  []*entity.Article // RULE_FILTER's KEEP/FORCE_INCLUDE survivors, consumed by LLM_ANALYSIS
	ruleFiltered, rulePassed, analyzedCount, forceIncluded int
}

// RunPipeline executes runID from its current stage (StageFetch if never
// started) through untilStage inclusive, or to completion if untilStage is
// StageNone. limit caps FETCH's candidate count; 0 means unbounded.
func (o *Orchestrator) RunPipeline(ctx context.Context, runID int64, untilStage entity.PipelineStage, limit int, progress ProgressFunc) error {
	run, err := o.runs.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("RunPipeline: %w", err)
	}
	if run == nil {
		return entity.ErrNotFound
	}
	if run.IsTerminal() {
		return fmt.Errorf("RunPipeline: run %d is already %s", runID, run.Status)
	}

	stage := run.CurrentStage
	if stage == entity.StageNone {
		stage = entity.StageFetch
	}
	if err := o.runs.UpdateRunStage(ctx, runID, entity.PipelineStatusRunning, stage); err != nil {
		return fmt.Errorf("RunPipeline: mark running: %w", err)
	}
	run.Status = entity.PipelineStatusRunning
	run.CurrentStage = stage

	rc := &runContext{
		run:           run,
		ruleFiltered:  run.RuleFilteredCount,
		rulePassed:    run.RulePassedCount,
		analyzedCount: run.AnalyzedCount,
		forceIncluded: run.ForceIncludedCount,
	}

	for {
		var stageErr error
		switch stage {
		case entity.StageFetch:
			stageErr = o.runFetch(ctx, rc, limit)
		case entity.StageRuleFilter:
			stageErr = o.runRuleFilter(ctx, rc, progress)
		case entity.StageLLMAnalysis:
			stageErr = o.runLLMAnalysis(ctx, rc)
		case entity.StageStore:
			stageErr = o.runStore(ctx, rc, progress)
		default:
			stageErr = fmt.Errorf("RunPipeline: unknown stage %q", stage)
		}

		if stageErr != nil {
			var timeoutErr *llm.TimeoutError
			if errors.As(stageErr, &timeoutErr) {
				o.logger.WarnContext(ctx, "pipeline run paused on llm batch timeout",
					slog.Int64("run_id", runID), slog.String("stage", string(stage)))
				return o.pauseAt(ctx, rc, stage)
			}
			return o.fail(ctx, rc, stageErr)
		}

		next := entity.NextStage(stage)
		if next == entity.StageNone {
			return o.complete(ctx, rc)
		}
		if stage == untilStage {
			return o.pauseAt(ctx, rc, next)
		}

		if err := o.runs.UpdateRunStage(ctx, runID, entity.PipelineStatusRunning, next); err != nil {
			return fmt.Errorf("RunPipeline: advance to %s: %w", next, err)
		}
		stage = next
	}
}

func (o *Orchestrator) pauseAt(ctx context.Context, rc *runContext, stage entity.PipelineStage) error {
	if err := o.persistCounters(ctx, rc); err != nil {
		return err
	}
	return o.runs.UpdateRunStage(ctx, rc.run.ID, entity.PipelineStatusPaused, stage)
}

func (o *Orchestrator) fail(ctx context.Context, rc *runContext, cause error) error {
	_ = o.persistCounters(ctx, rc)
	if err := o.runs.FinishRun(ctx, rc.run.ID, entity.PipelineStatusFailed, cause.Error()); err != nil {
		return fmt.Errorf("RunPipeline: run %d failed (%v) and finalize also failed: %w", rc.run.ID, cause, err)
	}
	return fmt.Errorf("RunPipeline: run %d failed: %w", rc.run.ID, cause)
}

func (o *Orchestrator) complete(ctx context.Context, rc *runContext) error {
	if err := o.persistCounters(ctx, rc); err != nil {
		return err
	}
	return o.runs.FinishRun(ctx, rc.run.ID, entity.PipelineStatusCompleted, "")
}

func (o *Orchestrator) persistCounters(ctx context.Context, rc *runContext) error {
	if err := o.runs.UpdateRunCounters(ctx, rc.run.ID, rc.run.TotalArticles,
		rc.ruleFiltered, rc.rulePassed, rc.analyzedCount, rc.forceIncluded); err != nil {
		return fmt.Errorf("RunPipeline: persist counters: %w", err)
	}
	return nil
}

// runFetch counts candidate articles in the run's date window (capped by
// limit) and stores the count as total_articles. No FilterResult rows are
// produced at this stage.
func (o *Orchestrator) runFetch(ctx context.Context, rc *runContext, limit int) error {
	total := 0
	offset := 0
	for {
		page, err := o.articles.ListByPublishedRange(ctx, rc.run.DateFrom, rc.run.DateTo, offset, pageSize)
		if err != nil {
			return fmt.Errorf("runFetch: %w", err)
		}
		total += len(page)
		if limit > 0 && total >= limit {
			total = limit
			break
		}
		if len(page) < pageSize {
			break
		}
		offset += pageSize
	}
	rc.run.TotalArticles = total
	return o.persistCounters(ctx, rc)
}

// runRuleFilter streams articles in the run's window, evaluates each against
// FORCE_INCLUDE (checked first, short-circuiting the rule set entirely per
// §4.8) and then the active FilterRule set, and records one FilterResult per
// article. KEEP and FORCE_INCLUDE survivors are collected for LLM_ANALYSIS.
func (o *Orchestrator) runRuleFilter(ctx context.Context, rc *runContext, progress ProgressFunc) error {
	processed := 0
	offset := 0
	for {
		page, err := o.articles.ListByPublishedRange(ctx, rc.run.DateFrom, rc.run.DateTo, offset, pageSize)
		if err != nil {
			return fmt.Errorf("runRuleFilter: list page: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, a := range page {
			forced, err := o.filters.IsForceIncluded(ctx, a.ID)
			if err != nil {
				return fmt.Errorf("runRuleFilter: check force-include for article %d: %w", a.ID, err)
			}

			var fr entity.FilterResult
			fr.RunID = rc.run.ID
			fr.ArticleID = a.ID
			fr.Stage = entity.StageRuleFilter

			if forced {
				fr.Decision = entity.DecisionForceInclude
				rc.forceIncluded++
				rc.survivors = append(rc.survivors, a)
			} else {
				verdict, err := o.eval.Evaluate(ctx, a)
				if err != nil {
					return fmt.Errorf("runRuleFilter: evaluate article %d: %w", a.ID, err)
				}
				fr.Decision = verdict.Decision
				fr.RuleName = verdict.RuleName
				fr.Reason = verdict.Reason

				switch verdict.Decision {
				case entity.DecisionFilter:
					rc.ruleFiltered++
					if err := o.filters.IncrementFilteredCount(ctx, verdict.RuleID, 1); err != nil {
						return fmt.Errorf("runRuleFilter: increment filtered count for rule %d: %w", verdict.RuleID, err)
					}
				default:
					rc.rulePassed++
					rc.survivors = append(rc.survivors, a)
				}
			}

			if _, err := o.runs.InsertFilterResult(ctx, &fr); err != nil {
				return fmt.Errorf("runRuleFilter: insert filter result for article %d: %w", a.ID, err)
			}
			processed++
		}

		if progress != nil {
			progress(entity.StageRuleFilter, processed, rc.run.TotalArticles)
		}
		if len(page) < pageSize {
			break
		}
		offset += pageSize
	}
	return o.persistCounters(ctx, rc)
}

// runLLMAnalysis hands RULE_FILTER's survivors to C9. A *llm.TimeoutError
// is returned wrapped, so RunPipeline finds it with errors.As and pauses the
// run instead of failing it.
func (o *Orchestrator) runLLMAnalysis(ctx context.Context, rc *runContext) error {
	if len(rc.survivors) == 0 {
		return nil
	}

	requests := make([]entity.AnalysisRequest, 0, len(rc.survivors))
	for _, a := range rc.survivors {
		requests = append(requests, entity.AnalysisRequest{
			ArticleID: a.ID, Title: a.Title, Content: a.Content, Source: a.Source,
		})
	}

	batchID, err := o.coord.Analyze(ctx, rc.run.BatchID, requests, func(id string) error {
		rc.run.BatchID = id
		return o.runs.SetBatchID(ctx, rc.run.ID, id)
	})
	if err != nil {
		return fmt.Errorf("runLLMAnalysis: %w", err)
	}
	rc.run.BatchID = batchID
	rc.analyzedCount = len(rc.survivors)
	return o.persistCounters(ctx, rc)
}

// runStore recomputes statistics from the authoritative FilterResult table
// and writes every SUCCESS analysis result through C10, then finalizes
// counters. A per-article store failure is classified via
// entity.StoreFailure and re-stamped onto AnalysisTracking rather than
// aborting the run.
func (o *Orchestrator) runStore(ctx context.Context, rc *runContext, progress ProgressFunc) error {
	ruleFilterResults, err := o.runs.ListFilterResults(ctx, rc.run.ID, entity.StageRuleFilter)
	if err != nil {
		return fmt.Errorf("runStore: list filter results: %w", err)
	}
	ruleFiltered, rulePassed, forceIncluded := 0, 0, 0
	for _, fr := range ruleFilterResults {
		switch fr.Decision {
		case entity.DecisionFilter:
			ruleFiltered++
		case entity.DecisionForceInclude:
			forceIncluded++
		default:
			rulePassed++
		}
	}
	rc.ruleFiltered, rc.rulePassed, rc.forceIncluded = ruleFiltered, rulePassed, forceIncluded

	if rc.run.BatchID == "" {
		return o.persistCounters(ctx, rc)
	}

	successRows, err := o.analysis.ListByBatch(ctx, rc.run.BatchID, entity.AnalysisStatusSuccess)
	if err != nil {
		return fmt.Errorf("runStore: list successful analyses: %w", err)
	}

	stored := 0
	for i, row := range successRows {
		resultJSON, err := o.analysis.GetResult(ctx, row.ArticleID, rc.run.BatchID)
		if err != nil {
			return fmt.Errorf("runStore: fetch result for article %d: %w", row.ArticleID, err)
		}
		if resultJSON == nil {
			continue
		}

		var payload entity.AnalysisResultPayload
		if err := decodePayload(resultJSON, &payload); err != nil {
			if updErr := o.analysis.UpdateStatus(ctx, row.ID, entity.AnalysisStatusFailed, nil, err.Error()); updErr != nil {
				return fmt.Errorf("runStore: re-stamp undecodable article %d: %w", row.ArticleID, updErr)
			}
			continue
		}

		if _, _, err := o.store.StoreOne(ctx, &payload); err != nil {
			var sf *entity.StoreFailure
			status := entity.AnalysisStatusFailed
			keptJSON := []byte(nil)
			if errors.As(err, &sf) && sf.IsTransient {
				status = entity.AnalysisStatusStoreFailed
				keptJSON = resultJSON
			}
			if updErr := o.analysis.UpdateStatus(ctx, row.ID, status, keptJSON, err.Error()); updErr != nil {
				return fmt.Errorf("runStore: re-stamp article %d after store failure: %w", row.ArticleID, updErr)
			}
			continue
		}
		stored++
		if progress != nil {
			progress(entity.StageStore, i+1, len(successRows))
		}
	}

	o.logger.InfoContext(ctx, "pipeline store stage finished",
		slog.Int64("run_id", rc.run.ID), slog.Int("stored", stored), slog.Int("candidates", len(successRows)))
	return o.persistCounters(ctx, rc)
}

// ResetPipelineRun deletes FilterResults from fromStage onward (and, when
// LLM_ANALYSIS is at or after fromStage, every AnalysisTracking/Result row
// for the run's batch), zeroes the corresponding counters, and rewinds the
// run to PENDING at fromStage (§4.7).
func (o *Orchestrator) ResetPipelineRun(ctx context.Context, runID int64, fromStage entity.PipelineStage) error {
	run, err := o.runs.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("ResetPipelineRun: %w", err)
	}
	if run == nil {
		return entity.ErrNotFound
	}

	if err := o.runs.ResetFromStage(ctx, runID, fromStage); err != nil {
		return fmt.Errorf("ResetPipelineRun: %w", err)
	}

	total := run.TotalArticles
	ruleFiltered, rulePassed, forceIncluded := run.RuleFilteredCount, run.RulePassedCount, run.ForceIncludedCount
	analyzed := run.AnalyzedCount
	batchID := run.BatchID

	includesLLMOrLater := fromStage == entity.StageFetch || fromStage == entity.StageRuleFilter ||
		fromStage == entity.StageLLMAnalysis
	if fromStage == entity.StageFetch {
		total = 0
	}
	if fromStage == entity.StageFetch || fromStage == entity.StageRuleFilter {
		ruleFiltered, rulePassed, forceIncluded = 0, 0, 0
	}
	if includesLLMOrLater {
		analyzed = 0
		if batchID != "" {
			if err := o.analysis.DeleteByBatch(ctx, batchID); err != nil {
				return fmt.Errorf("ResetPipelineRun: delete analysis rows for batch %s: %w", batchID, err)
			}
			if err := o.runs.SetBatchID(ctx, runID, ""); err != nil {
				return fmt.Errorf("ResetPipelineRun: clear batch id: %w", err)
			}
		}
	}

	if err := o.runs.UpdateRunCounters(ctx, runID, total, ruleFiltered, rulePassed, analyzed, forceIncluded); err != nil {
		return fmt.Errorf("ResetPipelineRun: %w", err)
	}
	return nil
}

func decodePayload(raw []byte, out *entity.AnalysisResultPayload) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode analysis result payload: %w", err)
	}
	return nil
}
