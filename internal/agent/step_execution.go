package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Thejas775/Browser-Agent/internal/llm"
)

func (r *runner) executeStep(ctx context.Context, step int) (bool, error) {
	log := r.agent.logger.With(zap.Int("step", step))

	snap, err := r.drv.Snapshot(ctx)
	if err != nil {
		r.history.add(StepRecord{Step: step, Err: err.Error()})
		return false, fmt.Errorf("%w: %w", ErrSnapshotFail, err)
	}

	if r.prevTree != "" && snap.Tree == r.prevTree {
		r.mem.AddSystemNote("SYSTEM ALERT: Last action had NO VISIBLE EFFECT.")
	}
	r.prevTree = snap.Tree

	log.Debug("page", zap.String("url", snap.URL), zap.String("title", snap.Title))

	decision, err := r.agent.llm.DecideActions(ctx, llm.DecisionInput{
		Task:             r.task,
		DOMTree:          snap.Tree,
		CurrentURL:       snap.URL,
		History:          r.mem.HistoryString(),
		ScreenshotBase64: snap.ScreenshotBase64,
		MaxActions:       r.agent.maxActionsPerStep,
	})
	if err != nil {
		r.history.add(StepRecord{Step: step, URL: snap.URL, Err: err.Error()})
		return false, fmt.Errorf("%w: %w", ErrLLMFail, err)
	}

	actions := decision.Actions
	if len(actions) > r.agent.maxActionsPerStep {
		log.Debug("actions capped", zap.Int("proposed", len(actions)), zap.Int("max", r.agent.maxActionsPerStep))
		actions = actions[:r.agent.maxActionsPerStep]
	}

	r.reporter.LogDecision(step, snap.URL, decision, actions)

	rec := StepRecord{Step: step, URL: snap.URL, Thought: decision.Thought}
	defer func() { r.history.add(rec) }()

	if len(actions) == 0 {
		r.mem.AddSystemNote("SYSTEM NOTE: No action was returned. Return at least one action.")
		return false, nil
	}

	for _, action := range actions {
		if action.Type == llm.ActionFinish {
			rec.Actions = append(rec.Actions, action)
			return true, nil
		}

		if blocked, reason := r.mem.ShouldBlock(snap.URL, action); blocked {
			log.Info("loop guard", zap.String("reason", reason))
			r.mem.AddSystemNote(reason)
			r.mem.MarkLoopTriggered()
			if err := r.drv.Scroll(ctx); err != nil {
				log.Warn("loop guard scroll failed", zap.Error(err))
			}
			break
		}

		if action.IsDestructive && !r.agent.confirm(action) {
			r.mem.AddSystemNote(fmt.Sprintf(
				"SYSTEM NOTE: destructive action %s [%d] was declined by the user.",
				action.Type, action.TargetID,
			))
			break
		}

		if err := r.executeAction(ctx, action); err != nil {
			r.mem.AddSystemNote(fmt.Sprintf("SYSTEM ERROR: %v", err))
			rec.Err = err.Error()
			return false, err
		}

		r.mem.Add(step, snap.URL, action)
		rec.Actions = append(rec.Actions, action)

		// Element ids belong to the old page after a navigation.
		if action.Type == llm.ActionNavigate {
			break
		}
	}

	if decision.CurrentPhase != "" || decision.Observation != "" {
		r.mem.AddSystemNote(fmt.Sprintf(
			"STATE UPDATE: %s | %s",
			strings.ToUpper(decision.CurrentPhase),
			decision.Observation,
		))
	}

	return false, nil
}
