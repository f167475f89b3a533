package repository

import (
	"database/sql"
	"fmt"

	"github.com/coinhunt/coinhunt-backend-go/internal/models"
)

// TargetRepository handles database operations for coin targets. Targets are
// owned by the content layer; the engine only reads their geometry and radii.
type TargetRepository struct {
	db *sql.DB
}

// NewTargetRepository creates a new target repository
func NewTargetRepository(db *sql.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

const targetColumns = "id, name, latitude, longitude, value_category, collection_radius, materialization_radius, hide_radius"

func scanTarget(row interface{ Scan(...interface{}) error }) (*models.Target, error) {
	var t models.Target
	err := row.Scan(&t.ID, &t.Name, &t.Latitude, &t.Longitude, &t.ValueCategory,
		&t.CollectionRadiusMeters, &t.MaterializationRadiusMeters, &t.HideRadiusMeters)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTargets retrieves the full target catalog.
func (r *TargetRepository) GetTargets() ([]models.Target, error) {
	rows, err := r.db.Query("SELECT " + targetColumns + " FROM targets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	var targets []models.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, *t)
	}
	return targets, rows.Err()
}

// GetTargetByID retrieves a single target.
func (r *TargetRepository) GetTargetByID(id string) (*models.Target, error) {
	row := r.db.QueryRow("SELECT "+targetColumns+" FROM targets WHERE id = ?", id)
	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get target: %w", err)
	}
	return t, nil
}

// CreateTarget inserts a new target (content/admin tooling).
func (r *TargetRepository) CreateTarget(t *models.Target) error {
	_, err := r.db.Exec(`INSERT INTO targets (`+targetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Latitude, t.Longitude, t.ValueCategory,
		t.CollectionRadiusMeters, t.MaterializationRadiusMeters, t.HideRadiusMeters)
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}
	return nil
}
