package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coinhunt/coinhunt-backend-go/internal/models"
)

// CheatFlagRepository is the append-only cheat flag ledger. The engine only
// ever appends; moderation reads, aggregates and resolves.
type CheatFlagRepository struct {
	db *sql.DB
}

// NewCheatFlagRepository creates a new cheat flag repository
func NewCheatFlagRepository(db *sql.DB) *CheatFlagRepository {
	return &CheatFlagRepository{db: db}
}

// Append stores a cheat flag. Implements events.FlagStore.
func (r *CheatFlagRepository) Append(flag *models.CheatFlag) error {
	evidence, err := json.Marshal(flag.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	_, err = r.db.Exec(`INSERT INTO cheat_flags
		(flag_id, session_id, user_id, reason, severity, evidence, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		flag.FlagID, flag.SessionID, flag.UserID, string(flag.Reason), string(flag.Severity),
		string(evidence), flag.DetectedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append cheat flag: %w", err)
	}
	return nil
}

// GetFlags retrieves cheat flags with filtering and pagination
func (r *CheatFlagRepository) GetFlags(filter models.CheatFlagFilter) ([]models.CheatFlag, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Reason != "" {
		conditions = append(conditions, "reason = ?")
		args = append(args, filter.Reason)
	}
	if filter.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "detected_at >= ?")
		args = append(args, filter.StartTime*1000)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "detected_at <= ?")
		args = append(args, filter.EndTime*1000)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM cheat_flags"+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count cheat flags: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}
	offset := (filter.Page - 1) * filter.PageSize

	query := `SELECT id, flag_id, session_id, user_id, reason, severity, evidence, detected_at, resolution, resolved_at
		FROM cheat_flags` + whereClause + " ORDER BY detected_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query cheat flags: %w", err)
	}
	defer rows.Close()

	var flags []models.CheatFlag
	for rows.Next() {
		var f models.CheatFlag
		var reason, severity, evidence string
		var detectedAt int64
		var resolvedAt sql.NullInt64
		if err := rows.Scan(&f.ID, &f.FlagID, &f.SessionID, &f.UserID, &reason, &severity,
			&evidence, &detectedAt, &f.Resolution, &resolvedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan cheat flag: %w", err)
		}
		f.Reason = models.CheatReason(reason)
		f.Severity = models.Severity(severity)
		f.DetectedAt = time.UnixMilli(detectedAt).UTC()
		if err := json.Unmarshal([]byte(evidence), &f.Evidence); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal evidence: %w", err)
		}
		if resolvedAt.Valid {
			t := time.UnixMilli(resolvedAt.Int64).UTC()
			f.ResolvedAt = &t
		}
		flags = append(flags, f)
	}
	return flags, total, rows.Err()
}

// Resolve attaches a moderation verdict to a flag. Returns false when the
// flag does not exist.
func (r *CheatFlagRepository) Resolve(flagID, resolution string, at time.Time) (bool, error) {
	res, err := r.db.Exec("UPDATE cheat_flags SET resolution = ?, resolved_at = ? WHERE flag_id = ?",
		resolution, at.UnixMilli(), flagID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve cheat flag: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetStats aggregates the ledger for the moderation stats view.
func (r *CheatFlagRepository) GetStats(now time.Time) (*models.CheatFlagStats, error) {
	stats := &models.CheatFlagStats{
		ByReason:   make(map[string]int64),
		BySeverity: make(map[string]int64),
	}

	if err := r.db.QueryRow("SELECT COUNT(*) FROM cheat_flags").Scan(&stats.TotalFlags); err != nil {
		return nil, fmt.Errorf("failed to count flags: %w", err)
	}

	rows, err := r.db.Query("SELECT reason, COUNT(*) FROM cheat_flags GROUP BY reason")
	if err != nil {
		return nil, fmt.Errorf("failed to group by reason: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var reason string
		var count int64
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("failed to scan reason count: %w", err)
		}
		stats.ByReason[reason] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sevRows, err := r.db.Query("SELECT severity, COUNT(*) FROM cheat_flags GROUP BY severity")
	if err != nil {
		return nil, fmt.Errorf("failed to group by severity: %w", err)
	}
	defer sevRows.Close()
	for sevRows.Next() {
		var severity string
		var count int64
		if err := sevRows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan severity count: %w", err)
		}
		stats.BySeverity[severity] = count
	}
	if err := sevRows.Err(); err != nil {
		return nil, err
	}

	for _, window := range []struct {
		dur  time.Duration
		dest *int64
	}{
		{24 * time.Hour, &stats.LastDay},
		{7 * 24 * time.Hour, &stats.LastWeek},
		{30 * 24 * time.Hour, &stats.LastMonth},
	} {
		since := now.Add(-window.dur).UnixMilli()
		if err := r.db.QueryRow("SELECT COUNT(*) FROM cheat_flags WHERE detected_at >= ?", since).Scan(window.dest); err != nil {
			return nil, fmt.Errorf("failed to count recent flags: %w", err)
		}
	}

	err = r.db.QueryRow("SELECT COUNT(DISTINCT user_id) FROM cheat_flags WHERE resolution = ?",
		models.ResolutionConfirmed).Scan(&stats.ConfirmedUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to count confirmed users: %w", err)
	}

	if err := r.db.QueryRow("SELECT COUNT(DISTINCT session_id) FROM cheat_flags").Scan(&stats.DistinctSessions); err != nil {
		return nil, fmt.Errorf("failed to count distinct sessions: %w", err)
	}

	return stats, nil
}
