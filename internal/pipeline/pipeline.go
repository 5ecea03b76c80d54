// Package pipeline composes the generation stages into the end-to-end
// prompt-to-app flow: gates, parallel research and reasoning, deterministic
// spec build, streaming code generation, quality scoring, and persistence.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/appforge/internal/appspec"
	"github.com/appforge/internal/budget"
	"github.com/appforge/internal/codegen"
	"github.com/appforge/internal/intent"
	"github.com/appforge/internal/llm"
	"github.com/appforge/internal/logging"
	"github.com/appforge/internal/metrics"
	"github.com/appforge/internal/progress"
	"github.com/appforge/internal/quality"
	"github.com/appforge/internal/research"
	"github.com/appforge/internal/safety"
)

// Prompt length bounds for a generation request.
const (
	MinPromptLen = 10
	MaxPromptLen = 4000
)

// RejectionError is a policy rejection: the request was refused before any
// paid call. Never retried automatically.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

// RunArtifact is the audit record of one generation attempt.
type RunArtifact struct {
	RunID        string   `json:"run_id"`
	Stages       []string `json:"stages"`
	SelectedID   string   `json:"selected_candidate_id"`
	CandidateIDs []string `json:"candidate_ids"`
	Repaired     bool     `json:"repaired"`
}

// AppRecord is what the orchestrator asks the store to persist.
type AppRecord struct {
	Name             string
	Tagline          string
	Description      string
	Spec             *appspec.AppSpec
	GeneratedCode    string
	ThemeColor       string
	QualityScore     int
	QualityBreakdown *quality.Breakdown
}

// PersistedApp carries the identifiers assigned by the store.
type PersistedApp struct {
	ID      string
	ShortID string
}

// Store is the persistence boundary.
type Store interface {
	CreateApp(ctx context.Context, record *AppRecord) (*PersistedApp, error)
}

// ArtifactQueue receives the best-effort side writes: version snapshots and
// pipeline-run audit rows. Failures here are logged and swallowed; they must
// never fail a request that otherwise succeeded.
type ArtifactQueue interface {
	EnqueueVersionSnapshot(ctx context.Context, appID, code string, qualityScore int, breakdown *quality.Breakdown) error
	EnqueuePipelineRun(ctx context.Context, appID string, artifact *RunArtifact) error
}

// GenerateResult is the unified outcome of one generation request.
type GenerateResult struct {
	ID               string             `json:"id,omitempty"`
	ShortID          string             `json:"short_id,omitempty"`
	Name             string             `json:"name"`
	Tagline          string             `json:"tagline"`
	Description      string             `json:"description"`
	Spec             *appspec.AppSpec   `json:"spec"`
	GeneratedCode    string             `json:"generated_code,omitempty"`
	PipelineRunID    string             `json:"pipeline_run_id,omitempty"`
	QualityScore     int                `json:"quality_score,omitempty"`
	QualityBreakdown *quality.Breakdown `json:"quality_breakdown,omitempty"`
	PipelineSummary  string             `json:"pipeline_summary,omitempty"`
	SharePath        string             `json:"share_path,omitempty"`
}

// Options wires an Orchestrator. Store and Queue may be nil (persistence is
// skipped, e.g. for the one-shot CLI path).
type Options struct {
	Client      llm.Client
	Ledger      *budget.Ledger
	Store       Store
	Queue       ArtifactQueue
	SonnetModel string
	OpusModel   string

	ClarifyTimeout  time.Duration
	ResearchTimeout time.Duration
	ReasonTimeout   time.Duration
	CodegenTimeout  time.Duration
}

// Orchestrator runs the generation pipeline.
type Orchestrator struct {
	ledger         *budget.Ledger
	researcher     *research.Researcher
	reasoner       *intent.Reasoner
	generator      *codegen.Generator
	store          Store
	queue          ArtifactQueue
	sonnetModel    string
	opusModel      string
	clarifyTimeout time.Duration
}

// New builds an Orchestrator from its collaborators.
func New(opts Options) *Orchestrator {
	sonnet := opts.SonnetModel
	if sonnet == "" {
		sonnet = llm.ModelSonnet
	}
	opus := opts.OpusModel
	if opus == "" {
		opus = llm.ModelOpus
	}
	clarify := opts.ClarifyTimeout
	if clarify <= 0 {
		clarify = 15 * time.Second
	}
	return &Orchestrator{
		ledger:         opts.Ledger,
		researcher:     research.New(opts.Client, opts.Ledger, sonnet, opts.ResearchTimeout),
		reasoner:       intent.NewReasoner(opts.Client, opts.Ledger, sonnet, opts.ReasonTimeout),
		generator:      codegen.New(opts.Client, opts.Ledger, opts.CodegenTimeout),
		store:          opts.Store,
		queue:          opts.Queue,
		sonnetModel:    sonnet,
		opusModel:      opus,
		clarifyTimeout: clarify,
	}
}

// ResolveModel maps a requested model name to a concrete model id. Only an
// explicit "opus" request selects the higher-cost model; "auto" and "sonnet"
// are equivalent. Never auto-escalate cost.
func (o *Orchestrator) ResolveModel(requested string) string {
	if strings.EqualFold(requested, "opus") {
		return o.opusModel
	}
	return o.sonnetModel
}

// Clarify runs the advisory pre-stage on behalf of a caller. The same gates
// that guard full generation run first: clarification is a paid model call
// too. It carries its own short deadline so a slow probe never holds up the
// caller's request.
func (o *Orchestrator) Clarify(ctx context.Context, prompt string) (intent.ClarifyResult, error) {
	prompt, rej := o.gate(prompt)
	if rej != nil {
		return intent.ClarifyResult{}, rej
	}

	ctx, cancel := context.WithTimeout(ctx, o.clarifyTimeout)
	defer cancel()
	return o.reasoner.Clarify(ctx, prompt, nil), nil
}

// gate applies the request checks shared by every paid-call entry point:
// prompt length, the content safety filter, and the daily spend cap. It
// returns the trimmed prompt, or the rejection.
func (o *Orchestrator) gate(prompt string) (string, *RejectionError) {
	prompt = strings.TrimSpace(prompt)
	if n := utf8.RuneCountInString(prompt); n < MinPromptLen || n > MaxPromptLen {
		metrics.GenerationsRejected.WithLabelValues("invalid_request").Inc()
		return "", &RejectionError{Reason: fmt.Sprintf("prompt must be between %d and %d characters", MinPromptLen, MaxPromptLen)}
	}

	if verdict := safety.Check(prompt); !verdict.Safe {
		metrics.GenerationsRejected.WithLabelValues("unsafe_prompt").Inc()
		return "", &RejectionError{Reason: verdict.Reason}
	}

	if !o.ledger.CanSpend() {
		metrics.GenerationsRejected.WithLabelValues("budget_exceeded").Inc()
		return "", &RejectionError{Reason: fmt.Sprintf("daily budget of $%.2f exhausted, try again tomorrow", o.ledger.DailyCap())}
	}

	return prompt, nil
}

// GenerateFromPrompt runs the full pipeline. The sink (may be nil) receives
// ordered progress events; every call terminates the stream with a done or
// error event. The worst case for a request that passed the gates is a
// spec-only result with an explanatory status, never nothing.
func (o *Orchestrator) GenerateFromPrompt(ctx context.Context, prompt, requestedModel string, sink progress.Sink) (*GenerateResult, error) {
	emitter := progress.NewEmitter(sink)

	result, err := o.generate(ctx, prompt, requestedModel, emitter)
	if err != nil {
		emitter.Emit(progress.Event{Type: progress.TypeError, Message: err.Error()})
		return nil, err
	}
	emitter.Emit(progress.Event{
		Type:    progress.TypeDone,
		Message: "Your app is ready.",
		Data:    map[string]interface{}{"result": result},
	})
	return result, nil
}

func (o *Orchestrator) generate(ctx context.Context, prompt, requestedModel string, emitter *progress.Emitter) (*GenerateResult, error) {
	prompt, rej := o.gate(prompt)
	if rej != nil {
		return nil, rej
	}

	metrics.GenerationsStarted.Inc()
	runID := uuid.NewString()
	runLog, logErr := logging.StartRunLogging(runID)
	if logErr != nil {
		log.Warn().Err(logErr).Msg("run log unavailable, continuing without it")
	}
	defer runLog.Close()
	runLog.LogSection("generation " + runID)
	runLog.Log("Prompt: %s", prompt)

	model := o.ResolveModel(requestedModel)
	emitter.Status("Studying your idea...")

	// research and reasoning are independent: both start together and both
	// are allowed to finish, whatever happens to the other
	var (
		wg    sync.WaitGroup
		brief *research.ContextBrief
		ri    *intent.ReasonedIntent
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		brief = o.researcher.Gather(ctx, prompt, runLog)
		metrics.StageDuration.WithLabelValues("research").Observe(time.Since(start).Seconds())
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		ri = o.reasoner.Reason(ctx, prompt, nil, runLog)
		metrics.StageDuration.WithLabelValues("reason").Observe(time.Since(start).Seconds())
	}()
	wg.Wait()

	stages := []string{"safety", "budget", "research", "reason"}
	if ri == nil {
		ri = intent.FallbackIntent(prompt)
		stages = append(stages, "fallback_intent")
		runLog.Log("Reasoner unavailable, using fallback intent")
	}

	spec, err := appspec.Build(ri)
	if err != nil {
		// every input is an already-validated intent field, so this is an
		// internal bug, not a model problem
		metrics.GenerationsCompleted.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("building app spec: %w", err)
	}
	stages = append(stages, "spec")

	tabLabels := make([]string, 0, len(ri.Tabs))
	for _, tab := range ri.Tabs {
		tabLabels = append(tabLabels, tab.Label)
	}
	emitter.Emit(progress.Event{
		Type:    progress.TypePlan,
		Message: fmt.Sprintf("Building %s: %s", spec.Name, ri.PrimaryGoal),
		Data: map[string]interface{}{
			"name":              spec.Name,
			"domain":            ri.Domain,
			"design_philosophy": ri.DesignPhilosophy,
			"tabs":              tabLabels,
			"features":          ri.PremiumFeatures,
		},
	})

	result := &GenerateResult{
		Name:        spec.Name,
		Tagline:     spec.Tagline,
		Description: spec.Description,
		Spec:        spec,
	}
	record := &AppRecord{
		Name:        spec.Name,
		Tagline:     spec.Tagline,
		Description: spec.Description,
		Spec:        spec,
		ThemeColor:  spec.Theme.PrimaryColor,
	}

	codeStart := time.Now()
	codeResult, codeErr := o.generator.Generate(ctx, ri, prompt, model, brief, emitter, runLog)
	metrics.StageDuration.WithLabelValues("codegen").Observe(time.Since(codeStart).Seconds())
	repaired := false
	switch {
	case codeErr != nil:
		log.Warn().Err(codeErr).Str("run_id", runID).Msg("code generation failed, continuing spec-only")
		runLog.LogError("code generation", codeErr)
		emitter.Status("Build failed, but your app spec is ready. Retrying is recommended.")
		stages = append(stages, "codegen_failed")
	case codeResult == nil:
		runLog.Log("Code generation produced no usable payload")
		emitter.Status("Build failed, but your app spec is ready. Retrying is recommended.")
		stages = append(stages, "codegen_empty")
	default:
		stages = append(stages, "codegen")
		repaired = codeResult.Repaired
		if codeResult.Tagline != "" {
			result.Tagline = codeResult.Tagline
			record.Tagline = codeResult.Tagline
		}
		if codeResult.PrimaryColor != "" {
			record.ThemeColor = codeResult.PrimaryColor
		}
		result.GeneratedCode = codeResult.Code
		record.GeneratedCode = codeResult.Code

		q := quality.Score(quality.Input{
			Code:         codeResult.Code,
			Prompt:       prompt,
			OutputFormat: ri.OutputFormatHint,
		})
		stages = append(stages, "quality")
		result.QualityScore = q.Score
		result.QualityBreakdown = &q.Breakdown
		record.QualityScore = q.Score
		record.QualityBreakdown = &q.Breakdown
		emitter.Emit(progress.Event{
			Type:    progress.TypeQuality,
			Message: fmt.Sprintf("Quality check: %d/100", q.Score),
			Data: map[string]interface{}{
				"quality_score":     q.Score,
				"quality_breakdown": q.Breakdown,
			},
		})
	}

	if o.store != nil {
		persisted, err := o.store.CreateApp(ctx, record)
		if err != nil {
			metrics.GenerationsCompleted.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("persisting app: %w", err)
		}
		result.ID = persisted.ID
		result.ShortID = persisted.ShortID
		result.SharePath = "/a/" + persisted.ShortID
		stages = append(stages, "persist")

		o.enqueueArtifacts(ctx, persisted.ID, runID, record, stages, repaired)
		result.PipelineRunID = runID
	}

	result.PipelineSummary = strings.Join(stages, " > ")
	runLog.Log("Pipeline finished: %s", result.PipelineSummary)

	outcome := "code"
	if result.GeneratedCode == "" {
		outcome = "spec_only"
	}
	metrics.GenerationsCompleted.WithLabelValues(outcome).Inc()
	return result, nil
}

// enqueueArtifacts performs the best-effort side writes. Failures are logged
// and swallowed.
func (o *Orchestrator) enqueueArtifacts(ctx context.Context, appID, runID string, record *AppRecord, stages []string, repaired bool) {
	if o.queue == nil {
		return
	}
	if record.GeneratedCode != "" {
		err := o.queue.EnqueueVersionSnapshot(ctx, appID, record.GeneratedCode,
			record.QualityScore, record.QualityBreakdown)
		if err != nil {
			log.Warn().Err(err).Str("app_id", appID).Msg("version snapshot enqueue failed")
		}
	}
	artifact := &RunArtifact{
		RunID:        runID,
		Stages:       stages,
		SelectedID:   runID,
		CandidateIDs: []string{runID},
		Repaired:     repaired,
	}
	if err := o.queue.EnqueuePipelineRun(ctx, appID, artifact); err != nil {
		log.Warn().Err(err).Str("app_id", appID).Msg("pipeline run enqueue failed")
	}
}
