// Package store persists apps and their generation artifacts in Postgres.
// It implements the pipeline's persistence boundary: app creation is the one
// write the pipeline depends on, version snapshots and run audits are
// best-effort rows written by the job queue workers.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appforge/internal/appspec"
	"github.com/appforge/internal/pipeline"
	"github.com/appforge/internal/quality"
)

// ErrNotFound is returned when an app does not exist.
var ErrNotFound = errors.New("app not found")

// App is one persisted app row.
type App struct {
	ID               string             `json:"id"`
	ShortID          string             `json:"short_id"`
	Name             string             `json:"name"`
	Tagline          string             `json:"tagline"`
	Description      string             `json:"description"`
	Spec             *appspec.AppSpec   `json:"spec"`
	GeneratedCode    string             `json:"generated_code,omitempty"`
	ThemeColor       string             `json:"theme_color"`
	QualityScore     *int               `json:"quality_score,omitempty"`
	QualityBreakdown *quality.Breakdown `json:"quality_breakdown,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// AppStore is the sql-backed store.
type AppStore struct {
	db *sql.DB
}

// New wraps a database handle.
func New(db *sql.DB) *AppStore {
	return &AppStore{db: db}
}

// CreateApp inserts an app record and returns its assigned identifiers.
func (s *AppStore) CreateApp(ctx context.Context, record *pipeline.AppRecord) (*pipeline.PersistedApp, error) {
	specJSON, err := json.Marshal(record.Spec)
	if err != nil {
		return nil, fmt.Errorf("marshaling spec: %w", err)
	}

	var breakdownJSON []byte
	var score sql.NullInt64
	if record.QualityBreakdown != nil {
		breakdownJSON, err = json.Marshal(record.QualityBreakdown)
		if err != nil {
			return nil, fmt.Errorf("marshaling quality breakdown: %w", err)
		}
		score = sql.NullInt64{Int64: int64(record.QualityScore), Valid: true}
	}

	id := uuid.NewString()
	shortID := newShortID()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO apps (id, short_id, name, tagline, description, spec,
			generated_code, theme_color, quality_score, quality_breakdown)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, shortID, record.Name, record.Tagline, record.Description,
		specJSON, record.GeneratedCode, record.ThemeColor, score, nullableJSON(breakdownJSON))
	if err != nil {
		return nil, fmt.Errorf("inserting app: %w", err)
	}

	return &pipeline.PersistedApp{ID: id, ShortID: shortID}, nil
}

// GetAppByID loads an app by its primary id.
func (s *AppStore) GetAppByID(ctx context.Context, id string) (*App, error) {
	return s.getApp(ctx, "id", id)
}

// GetAppByShortID loads an app by its public short id.
func (s *AppStore) GetAppByShortID(ctx context.Context, shortID string) (*App, error) {
	return s.getApp(ctx, "short_id", shortID)
}

func (s *AppStore) getApp(ctx context.Context, column, value string) (*App, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, short_id, name, tagline, description, spec,
			generated_code, theme_color, quality_score, quality_breakdown, created_at
		FROM apps WHERE %s = $1`, column), value)

	var (
		app           App
		specJSON      []byte
		breakdownJSON []byte
		score         sql.NullInt64
	)
	err := row.Scan(&app.ID, &app.ShortID, &app.Name, &app.Tagline, &app.Description,
		&specJSON, &app.GeneratedCode, &app.ThemeColor, &score, &breakdownJSON, &app.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading app %s: %w", value, err)
	}

	if err := json.Unmarshal(specJSON, &app.Spec); err != nil {
		return nil, fmt.Errorf("decoding spec for app %s: %w", value, err)
	}
	if score.Valid {
		v := int(score.Int64)
		app.QualityScore = &v
	}
	if len(breakdownJSON) > 0 {
		app.QualityBreakdown = &quality.Breakdown{}
		if err := json.Unmarshal(breakdownJSON, app.QualityBreakdown); err != nil {
			return nil, fmt.Errorf("decoding quality breakdown for app %s: %w", value, err)
		}
	}
	return &app, nil
}

// UpdateGeneratedFields replaces the aggregate generated-code and quality
// columns on an app row. Callers treat failures as best-effort.
func (s *AppStore) UpdateGeneratedFields(ctx context.Context, appID, code string, qualityScore *int, breakdown *quality.Breakdown) error {
	var breakdownJSON []byte
	var score sql.NullInt64
	if breakdown != nil {
		b, err := json.Marshal(breakdown)
		if err != nil {
			return fmt.Errorf("marshaling quality breakdown: %w", err)
		}
		breakdownJSON = b
	}
	if qualityScore != nil {
		score = sql.NullInt64{Int64: int64(*qualityScore), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE apps SET generated_code = $2, quality_score = $3, quality_breakdown = $4
		WHERE id = $1`,
		appID, code, score, nullableJSON(breakdownJSON))
	if err != nil {
		return fmt.Errorf("updating generated fields for app %s: %w", appID, err)
	}
	return nil
}

// InsertVersion writes a generated-code snapshot row.
func (s *AppStore) InsertVersion(ctx context.Context, appID, code string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_versions (app_id, generated_code) VALUES ($1, $2)`, appID, code)
	if err != nil {
		return fmt.Errorf("inserting version for app %s: %w", appID, err)
	}
	return nil
}

// InsertPipelineRun writes a pipeline-run audit row.
func (s *AppStore) InsertPipelineRun(ctx context.Context, appID string, artifact *pipeline.RunArtifact) error {
	stagesJSON, err := json.Marshal(artifact.Stages)
	if err != nil {
		return fmt.Errorf("marshaling stages: %w", err)
	}
	candidatesJSON, err := json.Marshal(artifact.CandidateIDs)
	if err != nil {
		return fmt.Errorf("marshaling candidates: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (run_id, app_id, stages, selected_candidate_id, candidate_ids, repaired)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO NOTHING`,
		artifact.RunID, appID, stagesJSON, artifact.SelectedID, candidatesJSON, artifact.Repaired)
	if err != nil {
		return fmt.Errorf("inserting pipeline run %s: %w", artifact.RunID, err)
	}
	return nil
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

// newShortID derives the public short id from a fresh UUID: the first two
// groups, hyphen dropped.
func newShortID() string {
	return strings.ReplaceAll(uuid.NewString()[:13], "-", "")
}
