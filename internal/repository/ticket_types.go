package repository

import (
	"context"
	"database/sql"

	"github.com/Ronaldkim807/NairobiLB/internal/database"
	"github.com/Ronaldkim807/NairobiLB/internal/models"
)

type TicketTypeRepository struct {
	db *database.DB
}

func NewTicketTypeRepository(db *database.DB) *TicketTypeRepository {
	return &TicketTypeRepository{db: db}
}

func (r *TicketTypeRepository) GetByID(ctx context.Context, id int64) (*models.TicketType, error) {
	tt := &models.TicketType{}
	query := `
		SELECT id, event_id, name, price, quantity_total, quantity_available, created_at
		FROM ticket_types
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.Price,
		&tt.QuantityTotal,
		&tt.QuantityAvailable,
		&tt.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return tt, err
}

func (r *TicketTypeRepository) GetByEventID(ctx context.Context, eventID int64) ([]models.TicketType, error) {
	var ticketTypes []models.TicketType
	query := `
		SELECT id, event_id, name, price, quantity_total, quantity_available, created_at
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY price ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var tt models.TicketType
		err := rows.Scan(
			&tt.ID,
			&tt.EventID,
			&tt.Name,
			&tt.Price,
			&tt.QuantityTotal,
			&tt.QuantityAvailable,
			&tt.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		ticketTypes = append(ticketTypes, tt)
	}

	return ticketTypes, rows.Err()
}
