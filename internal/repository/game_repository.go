package repository

import (
	"context"
	"database/sql"

	"github.com/example/game-missions/internal/model"
)

// GameRepo provides read access to the games reference table.
type GameRepo struct{ DB *sql.DB }

func NewGameRepo(db *sql.DB) *GameRepo { return &GameRepo{DB: db} }

// Exists reports whether a game id is present.
func (r *GameRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM games WHERE id=?", id).Scan(&count)
	return count > 0, err
}

// List returns all games ordered by id.
func (r *GameRepo) List(ctx context.Context) ([]model.Game, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, title FROM games ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	games := make([]model.Game, 0)
	for rows.Next() {
		var g model.Game
		if err := rows.Scan(&g.ID, &g.Title); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return games, nil
}
