package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EtherLoda/minifc/internal/domain"
)

// TeamRepository resolves callers to the team they manage.
type TeamRepository struct {
	db
}

func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{db{pool: pool}}
}

func (r *TeamRepository) FindByManager(ctx context.Context, managerID string) (domain.Team, error) {
	const query = `SELECT id, name, manager_id, balance FROM teams WHERE manager_id = $1`

	var t domain.Team
	err := r.queryRow(ctx, query, managerID).Scan(&t.ID, &t.Name, &t.ManagerID, &t.Balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Team{}, domain.ErrTeamNotFound
		}
		return domain.Team{}, fmt.Errorf("find team by manager: %w", err)
	}
	return t, nil
}
