package repository

import (
	"context"
	"database/sql"
	"time"
)

// ActionRepo records user-action facts and answers the authoritative
// recomputation queries the progress pipeline runs after each event.
//
// The fact tables (login_records, game_launch_records,
// game_play_records) exist purely as duplicate-delivery filters: each
// carries a natural uniqueness constraint and inserts use INSERT IGNORE
// with RowsAffected deciding whether the fact was new.  Progress is
// never incremented from a fact insert; it is always recomputed fresh
// from these tables, which is what makes the pipeline idempotent under
// replay and concurrent writers.
type ActionRepo struct {
	db *sql.DB
}

// NewActionRepo returns a new ActionRepo bound to the given database.
func NewActionRepo(db *sql.DB) *ActionRepo { return &ActionRepo{db: db} }

// RecordLogin inserts a (user, date) login fact.  Returns true when the
// fact was new, false on duplicate delivery.
func (r *ActionRepo) RecordLogin(ctx context.Context, userID uint64, date time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO login_records (user_id, login_date) VALUES (?, ?)`,
		userID, date.UTC().Format("2006-01-02"))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RecordGameLaunch inserts a (user, game) launch fact.  Returns true
// when the fact was new.
func (r *ActionRepo) RecordGameLaunch(ctx context.Context, userID, gameID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO game_launch_records (user_id, game_id) VALUES (?, ?)`,
		userID, gameID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RecordGamePlay inserts a play-session fact keyed by the caller's
// idempotency key.  Returns true when the fact was new.
func (r *ActionRepo) RecordGamePlay(ctx context.Context, userID, gameID uint64, score int, idempotencyKey string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO game_play_records (user_id, game_id, score, idempotency_key) VALUES (?, ?, ?, ?)`,
		userID, gameID, score, idempotencyKey)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountConsecutiveLoginDays computes the length of the login streak
// ending at asOf.  It pulls the most recent recorded dates up to asOf
// and walks backwards day by day until the chain breaks.  The LIMIT
// bounds the scan to the eligibility window; a streak cannot be longer
// than the window itself.
func (r *ActionRepo) CountConsecutiveLoginDays(ctx context.Context, userID uint64, asOf time.Time) (int, error) {
	const q = `SELECT login_date FROM login_records
	           WHERE user_id = ? AND login_date <= ?
	           ORDER BY login_date DESC LIMIT 30`
	rows, err := r.db.QueryContext(ctx, q, userID, asOf.UTC().Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	expected := asOf.UTC().Truncate(24 * time.Hour)
	count := 0
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return 0, err
		}
		if !sameDay(date, expected) {
			break
		}
		count++
		expected = expected.AddDate(0, 0, -1)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// CountDistinctGamesLaunched returns how many different games the user
// has launched.
func (r *ActionRepo) CountDistinctGamesLaunched(ctx context.Context, userID uint64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT game_id) FROM game_launch_records WHERE user_id = ?`,
		userID).Scan(&count)
	return count, err
}

// SumPlayScores returns the total recorded play score for the user.
func (r *ActionRepo) SumPlayScores(ctx context.Context, userID uint64) (int, error) {
	var sum int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(score), 0) FROM game_play_records WHERE user_id = ?`,
		userID).Scan(&sum)
	return sum, err
}

// CountPlaySessions returns how many play sessions have been recorded
// for the user.
func (r *ActionRepo) CountPlaySessions(ctx context.Context, userID uint64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_play_records WHERE user_id = ?`,
		userID).Scan(&count)
	return count, err
}
