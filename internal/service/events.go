package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ronaldkim807/NairobiLB/internal/cache"
	apperrors "github.com/Ronaldkim807/NairobiLB/internal/errors"
	"github.com/Ronaldkim807/NairobiLB/internal/logger"
	"github.com/Ronaldkim807/NairobiLB/internal/models"
	"github.com/Ronaldkim807/NairobiLB/internal/repository"
	"github.com/Ronaldkim807/NairobiLB/internal/search"
)

// EventService serves the event catalog. Listings go through the Redis cache
// and free-text queries go through Elasticsearch; both are optional and the
// service degrades to plain database reads without them.
type EventService struct {
	events      *repository.EventRepository
	ticketTypes TicketTypeStore
	cache       *cache.RedisClient
	search      *search.Client
}

func NewEventService(events *repository.EventRepository, ticketTypes TicketTypeStore, redisClient *cache.RedisClient, searchClient *search.Client) *EventService {
	return &EventService{
		events:      events,
		ticketTypes: ticketTypes,
		cache:       redisClient,
		search:      searchClient,
	}
}

// List returns active events. With a query it is a relevance-ordered search;
// without one it is the newest-first listing, cached per page.
func (s *EventService) List(ctx context.Context, query string, page, pageSize int) ([]models.Event, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	if query != "" && s.search != nil {
		ids, err := s.search.Search(ctx, query, page, pageSize)
		if err != nil {
			logger.WithContext(ctx).Warn("Search failed, falling back to listing", "error", err)
			return s.events.List(ctx, page, pageSize)
		}
		return s.events.GetByIDs(ctx, ids)
	}

	if s.cache != nil {
		if raw, err := s.cache.GetEventsListRaw(ctx, page, pageSize); err == nil {
			var events []models.Event
			if err := json.Unmarshal(raw, &events); err == nil {
				return events, nil
			}
		}
	}

	events, err := s.events.List(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetEventsList(ctx, page, pageSize, events)
	}

	return events, nil
}

// GetByID returns the event with its ticket types
func (s *EventService) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperrors.ErrNotFound
	}

	ticketTypes, err := s.ticketTypes.GetByEventID(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	event.TicketTypes = ticketTypes

	return event, nil
}

// Create publishes a new event with its ticket types. Indexing and cache
// invalidation are best effort; the database row is the source of truth.
func (s *EventService) Create(ctx context.Context, user models.AuthUser, req *models.CreateEventRequest) (*models.Event, error) {
	log := logger.WithContext(ctx)

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start_time: %v", apperrors.ErrValidation, err)
	}

	var endTime *time.Time
	if req.EndTime != nil {
		parsed, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid end_time: %v", apperrors.ErrValidation, err)
		}
		endTime = &parsed
	}

	event := &models.Event{
		OrganizerID: user.ID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Venue:       req.Venue,
		City:        req.City,
		StartTime:   startTime,
		EndTime:     endTime,
		Capacity:    req.Capacity,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}

	for _, tt := range req.TicketTypes {
		if tt.Price < 0 {
			return nil, fmt.Errorf("%w: ticket type price must not be negative", apperrors.ErrValidation)
		}
		if tt.Quantity < 1 {
			return nil, fmt.Errorf("%w: ticket type quantity must be positive", apperrors.ErrValidation)
		}
		event.TicketTypes = append(event.TicketTypes, models.TicketType{
			Name:          tt.Name,
			Price:         tt.Price,
			QuantityTotal: tt.Quantity,
		})
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	log.Info("Event created", "event_id", event.ID, "title", event.Title, "ticket_types", len(event.TicketTypes))

	if s.search != nil {
		if err := s.search.IndexEvent(ctx, event); err != nil {
			log.Warn("Failed to index event", "event_id", event.ID, "error", err)
		}
	}
	if s.cache != nil {
		s.cache.InvalidateEventsList(ctx)
	}

	return event, nil
}
