package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/seminars/internal/model"
)

// RegistrationRepo provides access to registrations from the attendee's
// point of view.  Booking itself happens in EventRepo.Register because it
// needs the event row locked.
type RegistrationRepo struct {
	db *sql.DB
}

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `r.id, r.event_id, r.user_id, r.seats, r.registration_queue, r.registered_themselves,
       r.price_code, r.price_cents, r.total_price_cents, r.attendees_names, r.payment_method_id,
       r.notes, r.known_from, r.interests, r.expectations, r.background_knowledge, r.paid,
       r.created_at, r.updated_at`

// registrationDest returns the scan targets matching registrationColumns.
func registrationDest(reg *model.Registration) []any {
	return []any{
		&reg.ID, &reg.EventID, &reg.UserID, &reg.Seats, &reg.OnQueue, &reg.RegisteredThemselves,
		&reg.PriceCode, &reg.PriceCents, &reg.TotalPriceCents, &reg.AttendeesNames, &reg.PaymentMethodID,
		&reg.Notes, &reg.KnownFrom, &reg.Interests, &reg.Expectations, &reg.Background, &reg.Paid,
		&reg.CreatedAt, &reg.UpdatedAt,
	}
}

// listEventRegistrations loads the registrations of one event together with
// the registering user's names and the linked additional persons, oldest
// first.
func listEventRegistrations(ctx context.Context, q querier, eventID uint64) ([]*model.Registration, error) {
	const stmt = `SELECT ` + registrationColumns + `,
       COALESCE(u.username, ''), COALESCE(u.email, ''), COALESCE(u.name, ''), COALESCE(u.first_name, ''), COALESCE(u.last_name, '')
FROM registrations r
LEFT JOIN users u ON u.id = r.user_id
WHERE r.event_id = ?
ORDER BY r.created_at, r.id`
	rows, err := q.QueryContext(ctx, stmt, eventID)
	if err != nil {
		return nil, err
	}
	var (
		out  []*model.Registration
		byID = map[uint64]*model.Registration{}
	)
	for rows.Next() {
		reg := &model.Registration{}
		var u model.User
		dest := append(registrationDest(reg), &u.Username, &u.Email, &u.Name, &u.FirstName, &u.LastName)
		if err := rows.Scan(dest...); err != nil {
			rows.Close()
			return nil, err
		}
		if reg.UserID > 0 {
			u.ID = reg.UserID
			reg.User = &model.FrontEndUser{User: u}
		}
		out = append(out, reg)
		byID[reg.ID] = reg
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	const persons = `SELECT mm.registration_id, u.id, u.username, u.name, u.first_name, u.last_name
FROM registrations_persons_mm mm
JOIN users u ON u.id = mm.record_id
JOIN registrations r ON r.id = mm.registration_id
WHERE r.event_id = ?
ORDER BY mm.registration_id, mm.sorting`
	prows, err := q.QueryContext(ctx, persons, eventID)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var regID uint64
		p := &model.FrontEndUser{}
		if err := prows.Scan(&regID, &p.ID, &p.Username, &p.Name, &p.FirstName, &p.LastName); err != nil {
			return nil, err
		}
		if reg, ok := byID[regID]; ok {
			reg.AdditionalPersons = append(reg.AdditionalPersons, p)
		}
	}
	return out, prows.Err()
}

// insertRegistration writes a registration and its list relations inside
// the booking transaction.
func insertRegistration(ctx context.Context, tx *sql.Tx, reg *model.Registration) error {
	const q = `INSERT INTO registrations
  (event_id, user_id, seats, registration_queue, registered_themselves, price_code, price_cents,
   total_price_cents, attendees_names, payment_method_id, notes, known_from, interests,
   expectations, background_knowledge)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		reg.EventID, reg.UserID, reg.Seats, reg.OnQueue, reg.RegisteredThemselves, reg.PriceCode, reg.PriceCents,
		reg.TotalPriceCents, reg.AttendeesNames, reg.PaymentMethodID, reg.Notes, reg.KnownFrom, reg.Interests,
		reg.Expectations, reg.Background)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)

	personIDs := make([]uint64, 0, len(reg.AdditionalPersons))
	for _, p := range reg.AdditionalPersons {
		personIDs = append(personIDs, p.ID)
	}
	relations := []struct {
		table string
		ids   []uint64
	}{
		{"registrations_lodgings_mm", reg.LodgingIDs},
		{"registrations_foods_mm", reg.FoodIDs},
		{"registrations_checkboxes_mm", reg.CheckboxIDs},
		{"registrations_persons_mm", personIDs},
	}
	for _, rel := range relations {
		if len(rel.ids) == 0 {
			continue
		}
		if err := insertRelation(ctx, tx, rel.table, "registration_id", reg.ID, rel.ids); err != nil {
			return err
		}
	}
	return nil
}

// RegistrationDetail is a registration together with the event it is for,
// as shown on the "my registrations" pages.
type RegistrationDetail struct {
	Registration *model.Registration
	EventTitle   string
	EventBegin   *time.Time
	EventEnd     *time.Time
	EventStatus  int
}

const detailQuery = `SELECT ` + registrationColumns + `, e.title, e.begin_date, e.end_date, e.status
FROM registrations r
JOIN events e ON e.id = r.event_id
WHERE r.user_id = ?`

func scanDetail(sc interface{ Scan(...any) error }) (*RegistrationDetail, error) {
	d := &RegistrationDetail{Registration: &model.Registration{}}
	dest := append(registrationDest(d.Registration), &d.EventTitle, &d.EventBegin, &d.EventEnd, &d.EventStatus)
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	return d, nil
}

// ListByUser returns the user's registrations, upcoming events first.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uint64) ([]*RegistrationDetail, error) {
	rows, err := r.db.QueryContext(ctx, detailQuery+` ORDER BY e.begin_date IS NULL, e.begin_date, r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*RegistrationDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByIDForUser returns one registration of the user.  Registrations of
// other users are reported as not found.
func (r *RegistrationRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*RegistrationDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, detailQuery+` AND r.id = ?`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegistrationNotFound
	}
	return d, err
}

// CancelForUser deletes a registration of the user if the event still
// allows unregistration at now.  Seats freed this way are handed to the
// waiting list in registration order; the moved registrations are
// returned so that their owners can be notified.
func (r *RegistrationRepo) CancelForUser(ctx context.Context, id, userID uint64, now time.Time) (cancelled *model.Registration, promoted []*model.Registration, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var eventID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT event_id FROM registrations WHERE id = ? AND user_id = ?", id, userID).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	ev, err := lockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if !ev.IsUnregistrationPossibleAt(now) {
		return nil, nil, ErrRegistrationClosed
	}

	var kept []*model.Registration
	for _, reg := range ev.Registrations() {
		if reg.ID == id {
			cancelled = reg
			continue
		}
		kept = append(kept, reg)
	}
	if cancelled == nil {
		return nil, nil, ErrRegistrationNotFound
	}

	for _, table := range []string{"registrations_lodgings_mm", "registrations_foods_mm", "registrations_checkboxes_mm", "registrations_persons_mm"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE registration_id = ?", id); err != nil {
			return nil, nil, err
		}
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM registrations WHERE id = ?", id); err != nil {
		return nil, nil, err
	}

	ev.SetRegistrations(kept)
	if !cancelled.OnQueue && ev.Record.HasRegistrationQueue {
		promoted = promotable(ev)
		for _, reg := range promoted {
			if _, err = tx.ExecContext(ctx, "UPDATE registrations SET registration_queue = 0 WHERE id = ?", reg.ID); err != nil {
				return nil, nil, err
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}
	return cancelled, promoted, nil
}

// promotable moves waiting registrations that fit into the free seats off
// the queue, oldest first.  A registration that does not fit blocks the
// ones behind it so the queue order is kept.
func promotable(ev *model.Event) []*model.Registration {
	var out []*model.Registration
	for _, reg := range ev.QueueRegistrations() {
		if !ev.HasUnlimitedVacancies() && ev.Vacancies() < reg.Seats {
			break
		}
		reg.OnQueue = false
		out = append(out, reg)
	}
	return out
}
