package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/seminars/internal/model"
)

// TimeSlotRepo manages the time slots of events.
type TimeSlotRepo struct {
	db *sql.DB
}

func NewTimeSlotRepo(db *sql.DB) *TimeSlotRepo { return &TimeSlotRepo{db: db} }

// listTimeSlots loads the slots of an event with their place, ordered by
// begin.
func listTimeSlots(ctx context.Context, q querier, eventID uint64) ([]*model.TimeSlot, error) {
	const stmt = `SELECT s.id, s.event_id, s.begin_date, s.end_date, s.entry_date, s.room, s.place_id,
       COALESCE(p.title, ''), COALESCE(p.address, ''), COALESCE(p.zip, ''), COALESCE(p.city, '')
FROM time_slots s
LEFT JOIN places p ON p.id = s.place_id
WHERE s.event_id = ?
ORDER BY s.begin_date, s.id`
	rows, err := q.QueryContext(ctx, stmt, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.TimeSlot
	for rows.Next() {
		s := &model.TimeSlot{}
		p := &model.Place{}
		if err := rows.Scan(&s.ID, &s.EventID, &s.Begin, &s.End, &s.EntryDate, &s.Room, &s.PlaceID,
			&p.Title, &p.Address, &p.ZIP, &p.City); err != nil {
			return nil, err
		}
		if s.HasPlace() {
			p.ID = s.PlaceID
			s.Place = p
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *TimeSlotRepo) ListByEvent(ctx context.Context, eventID uint64) ([]*model.TimeSlot, error) {
	return listTimeSlots(ctx, r.db, eventID)
}

// Create stores a slot for an existing event.  The span rules are checked
// by the model setters before anything is written.
func (r *TimeSlotRepo) Create(ctx context.Context, s *model.TimeSlot) (uint64, error) {
	if err := s.SetSpan(s.Begin, s.End); err != nil {
		return 0, err
	}
	if err := s.SetEntryDate(s.EntryDate); err != nil {
		return 0, err
	}
	var exists int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM events WHERE id = ?", s.EventID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrEventNotFound
	}
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO time_slots (event_id, begin_date, end_date, entry_date, room, place_id) VALUES (?, ?, ?, ?, ?, ?)",
		s.EventID, s.Begin, s.End, s.EntryDate, s.Room, s.PlaceID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.ID = uint64(id)
	return s.ID, nil
}

// Delete removes a slot of the given event.
func (r *TimeSlotRepo) Delete(ctx context.Context, eventID, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM time_slots WHERE id = ? AND event_id = ?", id, eventID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordNotFound
	}
	return nil
}
