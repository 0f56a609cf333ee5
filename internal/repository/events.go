package repository

import (
	"context"
	"database/sql"

	"github.com/Ronaldkim807/NairobiLB/internal/database"
	"github.com/Ronaldkim807/NairobiLB/internal/models"

	"github.com/lib/pq"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts the event and its ticket types in one transaction
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	eventQuery := `
		INSERT INTO events (organizer_id, title, description, category, venue, city,
		                    start_time, end_time, capacity, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, eventQuery,
		event.OrganizerID,
		event.Title,
		event.Description,
		event.Category,
		event.Venue,
		event.City,
		event.StartTime,
		event.EndTime,
		event.Capacity,
		event.ImageURL,
		event.IsActive,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return err
	}

	ticketTypeQuery := `
		INSERT INTO ticket_types (event_id, name, price, quantity_total, quantity_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	for i := range event.TicketTypes {
		tt := &event.TicketTypes[i]
		tt.EventID = event.ID
		tt.QuantityAvailable = tt.QuantityTotal

		err = tx.QueryRowContext(ctx, ticketTypeQuery,
			tt.EventID,
			tt.Name,
			tt.Price,
			tt.QuantityTotal,
			tt.QuantityAvailable,
		).Scan(&tt.ID, &tt.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, organizer_id, title, description, category, venue, city,
		       start_time, end_time, capacity, image_url, is_active, created_at, updated_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&event.Description,
		&event.Category,
		&event.Venue,
		&event.City,
		&event.StartTime,
		&event.EndTime,
		&event.Capacity,
		&event.ImageURL,
		&event.IsActive,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

// List returns active events, newest first
func (r *EventRepository) List(ctx context.Context, page, pageSize int) ([]models.Event, error) {
	query := `
		SELECT id, organizer_id, title, description, category, venue, city,
		       start_time, end_time, capacity, image_url, is_active, created_at, updated_at
		FROM events
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	offset := (page - 1) * pageSize
	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByIDs fetches events for the given ids, preserving the input order
// (search relevance order from Elasticsearch)
func (r *EventRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, organizer_id, title, description, category, venue, city,
		       start_time, end_time, capacity, image_url, is_active, created_at, updated_at
		FROM events
		WHERE id = ANY($1) AND is_active = TRUE`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.Event, len(events))
	for _, event := range events {
		byID[event.ID] = event
	}

	ordered := make([]models.Event, 0, len(events))
	for _, id := range ids {
		if event, ok := byID[id]; ok {
			ordered = append(ordered, event)
		}
	}

	return ordered, nil
}

func scanEvents(rows *sql.Rows) ([]models.Event, error) {
	var events []models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.OrganizerID,
			&event.Title,
			&event.Description,
			&event.Category,
			&event.Venue,
			&event.City,
			&event.StartTime,
			&event.EndTime,
			&event.Capacity,
			&event.ImageURL,
			&event.IsActive,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
