package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/padel-booking/internal/db"
	"github.com/example/padel-booking/internal/notify"
	"github.com/example/padel-booking/internal/slots"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Store is the single storage capability set the workflow needs; the
// postgres implementation lives in internal/slots.
type Store interface {
	Create(ctx context.Context, date, start, end, court string) (int64, error)
	List(ctx context.Context, onlyAvailable bool) ([]slots.Slot, error)
	Get(ctx context.Context, id int64) (slots.Slot, error)
	SetBooked(ctx context.Context, id int64, name, email string) (bool, error)
	SetAvailable(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Notifier hands a message to the outbound queue. Enqueued is all the
// workflow ever guarantees; delivery is best effort.
type Notifier interface {
	Enqueue(m notify.Message)
}

// Caller is the identity the web layer resolved from the session.
type Caller struct {
	Coach bool
}

type AddSlotInput struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Court     string `json:"court"`
}

type BookSlotInput struct {
	ID    int64  `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Event is a slot rendered for the calendar frontend.
type Event struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Start         string     `json:"start"`
	End           string     `json:"end"`
	Color         string     `json:"color"`
	ExtendedProps EventProps `json:"extendedProps"`
}

type EventProps struct {
	Status slots.Status `json:"status"`
}

const (
	colorAvailable = "#0091ad"
	colorBooked    = "#ccc"
)

type Service struct {
	store      Store
	queue      Notifier
	coachEmail string
	validate   *validator.Validate
	log        *zap.Logger
}

func NewService(store Store, queue Notifier, coachEmail string, log *zap.Logger) *Service {
	return &Service{
		store:      store,
		queue:      queue,
		coachEmail: coachEmail,
		validate:   validator.New(),
		log:        log,
	}
}

// AddSlot creates a new available slot. Coach only.
func (s *Service) AddSlot(ctx context.Context, caller Caller, in AddSlotInput) (int64, error) {
	if !caller.Coach {
		return 0, ErrUnauthorized
	}
	if err := s.validate.Struct(in); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidInput, "missing fields")
	}
	if in.Court == "" {
		in.Court = slots.DefaultCourt
	}

	id, err := s.store.Create(ctx, in.Date, in.StartTime, in.EndTime, in.Court)
	if err != nil {
		s.log.Error("create slot failed", zap.Error(err))
		return 0, err
	}

	s.log.Info("slot created",
		zap.Int64("id", id),
		zap.String("date", in.Date),
		zap.String("start", in.StartTime),
	)
	return id, nil
}

// DeleteSlot removes a slot in any state. Succeeds even when the id is
// already gone.
func (s *Service) DeleteSlot(ctx context.Context, caller Caller, id int64) error {
	if !caller.Coach {
		return ErrUnauthorized
	}
	found, err := s.store.Delete(ctx, id)
	if err != nil {
		s.log.Error("delete slot failed", zap.Int64("id", id), zap.Error(err))
		return err
	}
	s.log.Info("slot deleted", zap.Int64("id", id), zap.Bool("existed", found))
	return nil
}

// UnbookSlot reverts a slot to available and clears the client fields.
// Idempotent.
func (s *Service) UnbookSlot(ctx context.Context, caller Caller, id int64) error {
	if !caller.Coach {
		return ErrUnauthorized
	}
	if _, err := s.store.SetAvailable(ctx, id); err != nil {
		s.log.Error("unbook slot failed", zap.Int64("id", id), zap.Error(err))
		return err
	}
	s.log.Info("slot unbooked", zap.Int64("id", id))
	return nil
}

// BookSlot attaches a client to an available slot. A missing or
// already-booked slot is not an error: it returns (false, nil) and the
// UI asks the client to pick another slot. On success two notifications
// are enqueued after the state change is committed.
func (s *Service) BookSlot(ctx context.Context, in BookSlotInput) (bool, error) {
	if err := s.validate.Struct(in); err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidInput, "missing info")
	}

	sl, err := s.store.Get(ctx, in.ID)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		s.log.Error("book slot lookup failed", zap.Int64("id", in.ID), zap.Error(err))
		return false, err
	}
	if sl.Status == slots.StatusBooked {
		return false, nil
	}

	ok, err := s.store.SetBooked(ctx, in.ID, in.Name, in.Email)
	if err != nil {
		s.log.Error("book slot update failed", zap.Int64("id", in.ID), zap.Error(err))
		return false, err
	}
	if !ok {
		// lost the race against another booking for the same slot
		return false, nil
	}

	s.queue.Enqueue(notify.ClientConfirmation(in.Name, in.Email, sl))
	if s.coachEmail != "" {
		s.queue.Enqueue(notify.CoachAlert(s.coachEmail, in.Name, in.Email, sl))
	}

	s.log.Info("slot booked",
		zap.Int64("id", in.ID),
		zap.String("client", in.Name),
	)
	return true, nil
}

// ListSlots renders calendar events. Coach identity only changes the
// title of booked slots; timing data is visible to everyone.
func (s *Service) ListSlots(ctx context.Context, caller Caller, onlyAvailable bool) ([]Event, error) {
	list, err := s.store.List(ctx, onlyAvailable)
	if err != nil {
		s.log.Error("list slots failed", zap.Error(err))
		return nil, err
	}

	events := make([]Event, 0, len(list))
	for _, sl := range list {
		events = append(events, eventFor(sl, caller.Coach))
	}
	return events, nil
}

func eventFor(sl slots.Slot, coach bool) Event {
	title := "Available"
	color := colorAvailable
	if sl.Status == slots.StatusBooked {
		title = "Booked"
		color = colorBooked
		if coach && sl.ClientName != nil && *sl.ClientName != "" {
			title = *sl.ClientName
		}
	}
	return Event{
		ID:            sl.ID,
		Title:         title,
		Start:         sl.Date + "T" + sl.StartTime,
		End:           sl.Date + "T" + sl.EndTime,
		Color:         color,
		ExtendedProps: EventProps{Status: sl.Status},
	}
}
