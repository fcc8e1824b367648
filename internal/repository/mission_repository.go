package repository

import (
	"context"
	"database/sql"

	"github.com/example/game-missions/internal/model"
)

// MissionRepo provides access to the missions table.  Rows are written
// only through the optimistic-concurrency Save below; there is no
// unconditional update path.  All timestamps are stored in UTC.
type MissionRepo struct {
	db *sql.DB
}

// NewMissionRepo returns a new MissionRepo bound to the given database.
func NewMissionRepo(db *sql.DB) *MissionRepo { return &MissionRepo{db: db} }

// DB exposes the underlying handle so services can open transactions
// spanning a load-and-save cycle.
func (r *MissionRepo) DB() *sql.DB { return r.db }

const missionColumns = `id, user_id, mission_type, progress, target, completed, completed_at, expired_at, version`

func scanMission(row interface{ Scan(...interface{}) error }) (model.Mission, error) {
	var m model.Mission
	var completedAt sql.NullTime
	err := row.Scan(&m.ID, &m.UserID, &m.Type, &m.Progress, &m.Target,
		&m.Completed, &completedAt, &m.ExpiredAt, &m.Version)
	if err != nil {
		return model.Mission{}, err
	}
	if completedAt.Valid {
		at := completedAt.Time
		m.CompletedAt = &at
	}
	return m, nil
}

// FindByUser returns all missions for a user.  When the user has not
// been initialized yet, an empty slice is returned.
func (r *MissionRepo) FindByUser(ctx context.Context, userID uint64) ([]model.Mission, error) {
	const q = `SELECT ` + missionColumns + ` FROM missions WHERE user_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	missions := make([]model.Mission, 0, model.MissionTypeCount())
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return missions, nil
}

// FindByUserAndTypeTx loads one mission row inside an existing
// transaction.  Returns ErrMissionNotFound when the row does not exist.
func (r *MissionRepo) FindByUserAndTypeTx(ctx context.Context, tx *sql.Tx, userID uint64, t model.MissionType) (model.Mission, error) {
	const q = `SELECT ` + missionColumns + ` FROM missions WHERE user_id = ? AND mission_type = ?`
	m, err := scanMission(tx.QueryRowContext(ctx, q, userID, t))
	if err == sql.ErrNoRows {
		return model.Mission{}, ErrMissionNotFound
	}
	return m, err
}

// SaveTx persists a mutated mission with an expected-version
// compare-and-swap: the UPDATE only matches while the stored version
// equals the version the mission was loaded with, and bumps it by one.
// Zero rows affected means a concurrent writer persisted first, which
// surfaces as ErrConcurrencyConflict.  The mission's Version field is
// advanced on success so the aggregate stays consistent with the row.
func (r *MissionRepo) SaveTx(ctx context.Context, tx *sql.Tx, m *model.Mission) error {
	const q = `UPDATE missions
	           SET progress = ?, completed = ?, completed_at = ?, version = version + 1
	           WHERE user_id = ? AND mission_type = ? AND version = ?`
	var completedAt interface{}
	if m.CompletedAt != nil {
		completedAt = m.CompletedAt.UTC().Format("2006-01-02 15:04:05")
	}
	res, err := tx.ExecContext(ctx, q, m.Progress, m.Completed, completedAt, m.UserID, m.Type, m.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConcurrencyConflict
	}
	m.Version++
	return nil
}

// Update runs one optimistic update cycle in its own transaction: load
// the (user, type) row, apply mutate, and when mutate reports a change
// persist through the expected-version CAS in SaveTx.  A false return
// from mutate commits nothing (no-op mutations must not burn a
// version).  The returned mission reflects the state after mutate.
func (r *MissionRepo) Update(ctx context.Context, userID uint64, t model.MissionType,
	mutate func(m *model.Mission) (bool, error)) (model.Mission, error) {

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Mission{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	m, err := r.FindByUserAndTypeTx(ctx, tx, userID, t)
	if err != nil {
		return model.Mission{}, err
	}
	changed, err := mutate(&m)
	if err != nil {
		return model.Mission{}, err
	}
	if changed {
		if err := r.SaveTx(ctx, tx, &m); err != nil {
			return model.Mission{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Mission{}, err
	}
	committed = true
	return m, nil
}

// CreateAllIfAbsent bulk-inserts mission rows, silently skipping pairs
// that already exist.  Used by mission initialization: every action
// command calls it for the full mission set, so it must be idempotent
// and cheap under duplicate delivery.
func (r *MissionRepo) CreateAllIfAbsent(ctx context.Context, missions []model.Mission) error {
	if len(missions) == 0 {
		return nil
	}
	query := `INSERT IGNORE INTO missions (user_id, mission_type, progress, target, completed, expired_at) VALUES `
	args := make([]interface{}, 0, len(missions)*6)
	for i, m := range missions {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, m.UserID, m.Type, m.Progress, m.Target, m.Completed,
			m.ExpiredAt.UTC().Format("2006-01-02 15:04:05"))
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}
