package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/seminars/internal/model"
)

// EventRepo loads and stores events together with their relations.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// eventWriteColumns are the columns written on insert and update, in the
// order of eventWriteArgs.
var eventWriteColumns = []string{
	"pid", "object_type", "topic_id", "title", "subtitle", "teaser", "description",
	"additional_information", "notes", "image", "credit_points",
	"price_regular", "price_regular_early", "price_regular_board",
	"price_special", "price_special_early", "price_special_board",
	"event_type_id", "status", "begin_date", "end_date", "registration_begin",
	"registration_deadline", "early_bird_deadline", "unregistration_deadline",
	"details_page", "attendees_min", "attendees_max", "offline_registrations",
	"needs_registration", "allows_multiple_registrations", "queue_size",
	"automatic_confirmation_cancelation", "hidden", "owner_feuser",
}

func eventWriteArgs(r *model.EventRecord) []any {
	return []any{
		r.PID, r.ObjectType, r.TopicID, r.Title, r.Subtitle, r.Teaser, r.Description,
		r.AdditionalInformation, r.Notes, r.Image, r.CreditPoints,
		r.RegularPriceCents, r.RegularEarlyPriceCents, r.RegularBoardPriceCents,
		r.SpecialPriceCents, r.SpecialEarlyPriceCents, r.SpecialBoardPriceCents,
		r.EventTypeID, r.Status, r.BeginDate, r.EndDate, r.RegistrationBegin,
		r.RegistrationDeadline, r.EarlyBirdDeadline, r.UnregistrationDeadline,
		r.DetailsPage, r.AttendeesMin, r.AttendeesMax, r.OfflineRegistrations,
		r.NeedsRegistration, r.AllowsMultipleRegistrations, r.HasRegistrationQueue,
		r.AutomaticConfirmation, r.Hidden, r.OwnerID,
	}
}

var eventSelectColumns = "e.id, e." + strings.Join(eventWriteColumns, ", e.") + ", e.created_at, e.updated_at"

func eventDest(r *model.EventRecord) []any {
	return []any{
		&r.ID, &r.PID, &r.ObjectType, &r.TopicID, &r.Title, &r.Subtitle, &r.Teaser, &r.Description,
		&r.AdditionalInformation, &r.Notes, &r.Image, &r.CreditPoints,
		&r.RegularPriceCents, &r.RegularEarlyPriceCents, &r.RegularBoardPriceCents,
		&r.SpecialPriceCents, &r.SpecialEarlyPriceCents, &r.SpecialBoardPriceCents,
		&r.EventTypeID, &r.Status, &r.BeginDate, &r.EndDate, &r.RegistrationBegin,
		&r.RegistrationDeadline, &r.EarlyBirdDeadline, &r.UnregistrationDeadline,
		&r.DetailsPage, &r.AttendeesMin, &r.AttendeesMax, &r.OfflineRegistrations,
		&r.NeedsRegistration, &r.AllowsMultipleRegistrations, &r.HasRegistrationQueue,
		&r.AutomaticConfirmation, &r.Hidden, &r.OwnerID, &r.CreatedAt, &r.UpdatedAt,
	}
}

// eventRelations lists the mm relations of events in load order.  assign
// stores the loaded records into the event's own storage.
var eventRelations = []struct {
	kind   Kind
	table  string
	assign func(rel *model.EventRelations, recs []any)
}{
	{KindCategories, "events_categories_mm", func(rel *model.EventRelations, recs []any) { rel.Categories = typed[model.Category](recs) }},
	{KindPaymentMethods, "events_payment_methods_mm", func(rel *model.EventRelations, recs []any) { rel.PaymentMethods = typed[model.PaymentMethod](recs) }},
	{KindTargetGroups, "events_target_groups_mm", func(rel *model.EventRelations, recs []any) { rel.TargetGroups = typed[model.TargetGroup](recs) }},
	{KindPlaces, "events_places_mm", func(rel *model.EventRelations, recs []any) { rel.Places = typed[model.Place](recs) }},
	{KindSpeakers, "events_speakers_mm", func(rel *model.EventRelations, recs []any) { rel.Speakers = typed[model.Speaker](recs) }},
	{KindOrganizers, "events_organizers_mm", func(rel *model.EventRelations, recs []any) { rel.Organizers = typed[model.Organizer](recs) }},
	{KindLodgings, "events_lodgings_mm", func(rel *model.EventRelations, recs []any) { rel.Lodgings = typed[model.Lodging](recs) }},
	{KindFoods, "events_foods_mm", func(rel *model.EventRelations, recs []any) { rel.Foods = typed[model.Food](recs) }},
	{KindCheckboxes, "events_checkboxes_mm", func(rel *model.EventRelations, recs []any) { rel.Checkboxes = typed[model.Checkbox](recs) }},
}

func typed[T any](recs []any) []*T {
	out := make([]*T, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.(*T))
	}
	return out
}

// relationIDs extracts the ids of the event's own relations per mm table.
func relationIDs(rel *model.EventRelations) map[string][]uint64 {
	ids := func(n int, id func(int) uint64) []uint64 {
		out := make([]uint64, n)
		for i := range out {
			out[i] = id(i)
		}
		return out
	}
	return map[string][]uint64{
		"events_categories_mm":      ids(len(rel.Categories), func(i int) uint64 { return rel.Categories[i].ID }),
		"events_payment_methods_mm": ids(len(rel.PaymentMethods), func(i int) uint64 { return rel.PaymentMethods[i].ID }),
		"events_target_groups_mm":   ids(len(rel.TargetGroups), func(i int) uint64 { return rel.TargetGroups[i].ID }),
		"events_places_mm":          ids(len(rel.Places), func(i int) uint64 { return rel.Places[i].ID }),
		"events_speakers_mm":        ids(len(rel.Speakers), func(i int) uint64 { return rel.Speakers[i].ID }),
		"events_organizers_mm":      ids(len(rel.Organizers), func(i int) uint64 { return rel.Organizers[i].ID }),
		"events_lodgings_mm":        ids(len(rel.Lodgings), func(i int) uint64 { return rel.Lodgings[i].ID }),
		"events_foods_mm":           ids(len(rel.Foods), func(i int) uint64 { return rel.Foods[i].ID }),
		"events_checkboxes_mm":      ids(len(rel.Checkboxes), func(i int) uint64 { return rel.Checkboxes[i].ID }),
		"events_requirements_mm":    ids(len(rel.Requirements), func(i int) uint64 { return rel.Requirements[i].Record.ID }),
	}
}

func scanEvent(sc interface{ Scan(...any) error }) (*model.Event, error) {
	ev := &model.Event{}
	if err := sc.Scan(eventDest(&ev.Record)...); err != nil {
		return nil, err
	}
	return ev, nil
}

func getEventRecord(ctx context.Context, q querier, id uint64, lock bool) (*model.Event, error) {
	stmt := "SELECT " + eventSelectColumns + " FROM events e WHERE e.id = ?"
	if lock {
		stmt += " FOR UPDATE"
	}
	ev, err := scanEvent(q.QueryRowContext(ctx, stmt, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// attachTopic loads the topic record of an event date.  A missing topic
// leaves the date detached so it falls back to its own fields.
func attachTopic(ctx context.Context, q querier, ev *model.Event, full bool) error {
	if ev.Record.ObjectType != model.TypeDate || ev.Record.TopicID == 0 {
		return nil
	}
	topic, err := getEventRecord(ctx, q, ev.Record.TopicID, false)
	if errors.Is(err, ErrEventNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if full {
		if err := loadDescriptiveRelations(ctx, q, topic); err != nil {
			return err
		}
	} else if err := loadEventType(ctx, q, topic); err != nil {
		return err
	}
	ev.SetTopic(topic)
	return nil
}

func loadEventType(ctx context.Context, q querier, ev *model.Event) error {
	if ev.Record.EventTypeID == 0 {
		return nil
	}
	spec := kinds[KindEventTypes]
	t := &model.EventType{}
	err := q.QueryRowContext(ctx, "SELECT id, title, single_view_page FROM event_types WHERE id = ?", ev.Record.EventTypeID).
		Scan(spec.fields(t)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	ev.Relations.EventType = t
	return nil
}

// loadDescriptiveRelations loads the event type, the mm relations and the
// requirement links of an event into its own storage.
func loadDescriptiveRelations(ctx context.Context, q querier, ev *model.Event) error {
	if err := loadEventType(ctx, q, ev); err != nil {
		return err
	}
	for _, rel := range eventRelations {
		recs, err := listRelated(ctx, q, rel.kind, rel.table, "event_id", ev.Record.ID)
		if err != nil {
			return err
		}
		rel.assign(&ev.Relations, recs)
	}
	var err error
	if ev.Relations.Requirements, err = listLinkedEvents(ctx, q,
		"SELECT e.id, e.title, e.object_type FROM events e JOIN events_requirements_mm mm ON mm.record_id = e.id WHERE mm.event_id = ? ORDER BY mm.sorting",
		ev.Record.ID); err != nil {
		return err
	}
	ev.Relations.Dependencies, err = listLinkedEvents(ctx, q,
		"SELECT e.id, e.title, e.object_type FROM events e JOIN events_requirements_mm mm ON mm.event_id = e.id WHERE mm.record_id = ? ORDER BY e.id",
		ev.Record.ID)
	return err
}

// listLinkedEvents loads requirement or dependency events with only their
// id, title and type.
func listLinkedEvents(ctx context.Context, q querier, stmt string, id uint64) ([]*model.Event, error) {
	rows, err := q.QueryContext(ctx, stmt, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Event
	for rows.Next() {
		ev := &model.Event{}
		if err := rows.Scan(&ev.Record.ID, &ev.Record.Title, &ev.Record.ObjectType); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// GetByID loads an event with all relations, its time slots, its
// registrations and, for dates, the topic it derives from.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	ev, err := getEventRecord(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	if err := attachTopic(ctx, r.db, ev, true); err != nil {
		return nil, err
	}
	if err := loadDescriptiveRelations(ctx, r.db, ev); err != nil {
		return nil, err
	}
	if ev.Relations.TimeSlots, err = listTimeSlots(ctx, r.db, ev.Record.ID); err != nil {
		return nil, err
	}
	if ev.Relations.Registrations, err = listEventRegistrations(ctx, r.db, ev.Record.ID); err != nil {
		return nil, err
	}
	return ev, nil
}

// lockEvent selects an event FOR UPDATE inside tx together with what the
// booking rules need: its registrations and its topic for the prices.
func lockEvent(ctx context.Context, tx *sql.Tx, id uint64) (*model.Event, error) {
	ev, err := getEventRecord(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := attachTopic(ctx, tx, ev, false); err != nil {
		return nil, err
	}
	if ev.Relations.Registrations, err = listEventRegistrations(ctx, tx, id); err != nil {
		return nil, err
	}
	return ev, nil
}

// EventFilter narrows List.  Zero values mean "no restriction".
type EventFilter struct {
	ObjectType    *int
	CategoryID    uint64
	OwnerID       uint64
	UpcomingAt    *time.Time
	IncludeHidden bool
	Limit         int
	Offset        int
}

// List returns events matching the filter ordered by begin date.  Each
// event carries its event type, its registrations and, for dates, its
// topic with event type so that prices and vacancies can be computed.
func (r *EventRepo) List(ctx context.Context, f EventFilter) ([]*model.Event, error) {
	var (
		where []string
		args  []any
	)
	if !f.IncludeHidden {
		where = append(where, "e.hidden = 0")
	}
	if f.ObjectType != nil {
		where = append(where, "e.object_type = ?")
		args = append(args, *f.ObjectType)
	}
	if f.CategoryID > 0 {
		// dates are categorized through their topic
		where = append(where, "EXISTS (SELECT 1 FROM events_categories_mm mm WHERE mm.record_id = ? AND (mm.event_id = e.id OR (e.object_type = 2 AND mm.event_id = e.topic_id)))")
		args = append(args, f.CategoryID)
	}
	if f.OwnerID > 0 {
		where = append(where, "e.owner_feuser = ?")
		args = append(args, f.OwnerID)
	}
	if f.UpcomingAt != nil {
		where = append(where, "e.begin_date >= ?")
		args = append(args, *f.UpcomingAt)
	}
	q := "SELECT " + eventSelectColumns + " FROM events e"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY e.begin_date IS NULL, e.begin_date, e.id"
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []*model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, ev := range out {
		if err := r.loadSummary(ctx, ev); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *EventRepo) loadSummary(ctx context.Context, ev *model.Event) error {
	if err := attachTopic(ctx, r.db, ev, false); err != nil {
		return err
	}
	if err := loadEventType(ctx, r.db, ev); err != nil {
		return err
	}
	// categories feed the single view page fallback; dates use the topic's
	src := ev
	if topic, _ := ev.Topic(); topic != nil {
		src = topic
	}
	cats, err := listRelated(ctx, r.db, KindCategories, "events_categories_mm", "event_id", src.Record.ID)
	if err != nil {
		return err
	}
	src.Relations.Categories = typed[model.Category](cats)
	regs, err := listEventRegistrations(ctx, r.db, ev.Record.ID)
	if err != nil {
		return err
	}
	ev.SetRegistrations(regs)
	return nil
}

// Create inserts the event record and its relations in one transaction.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) (id uint64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := "INSERT INTO events (" + strings.Join(eventWriteColumns, ", ") + ") VALUES (" + placeholders(len(eventWriteColumns)) + ")"
	res, err := tx.ExecContext(ctx, q, eventWriteArgs(&ev.Record)...)
	if err != nil {
		return 0, err
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	ev.Record.ID = uint64(lastID)
	if err = writeRelations(ctx, tx, ev, false); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return ev.Record.ID, nil
}

// Update rewrites the event record and replaces its relations.
func (r *EventRepo) Update(ctx context.Context, ev *model.Event) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := "UPDATE events SET " + strings.Join(eventWriteColumns, " = ?, ") + " = ? WHERE id = ?"
	args := append(eventWriteArgs(&ev.Record), ev.Record.ID)
	if _, err = tx.ExecContext(ctx, q, args...); err != nil {
		return err
	}
	if err = writeRelations(ctx, tx, ev, true); err != nil {
		return err
	}
	return tx.Commit()
}

// writeRelations stores the event's own relations in a fixed table order.
func writeRelations(ctx context.Context, tx *sql.Tx, ev *model.Event, replace bool) error {
	ids := relationIDs(&ev.Relations)
	tables := make([]string, 0, len(eventRelations)+1)
	for _, rel := range eventRelations {
		tables = append(tables, rel.table)
	}
	tables = append(tables, "events_requirements_mm")
	for _, table := range tables {
		var err error
		if replace {
			err = replaceRelation(ctx, tx, table, "event_id", ev.Record.ID, ids[table])
		} else {
			err = insertRelation(ctx, tx, table, "event_id", ev.Record.ID, ids[table])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus moves a planned event to status.  An event that is no
// longer planned, or gone, yields ErrEventNotFound.
func (r *EventRepo) UpdateStatus(ctx context.Context, id uint64, status int) error {
	res, err := r.db.ExecContext(ctx, "UPDATE events SET status = ? WHERE id = ? AND status = ?", status, id, model.StatusPlanned)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ListStatusCandidates returns planned events with automatic confirmation
// whose registration deadline (or begin date) lies at or before now, with
// their registrations loaded.
func (r *EventRepo) ListStatusCandidates(ctx context.Context, now time.Time) ([]*model.Event, error) {
	q := "SELECT " + eventSelectColumns + ` FROM events e
WHERE e.status = ? AND e.automatic_confirmation_cancelation = 1
  AND COALESCE(e.registration_deadline, e.begin_date) <= ?
ORDER BY e.id`
	rows, err := r.db.QueryContext(ctx, q, model.StatusPlanned, now)
	if err != nil {
		return nil, err
	}
	var out []*model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for _, ev := range out {
		regs, err := listEventRegistrations(ctx, r.db, ev.Record.ID)
		if err != nil {
			return nil, err
		}
		ev.SetRegistrations(regs)
	}
	return out, nil
}

// Register books reg for the event.  The event row is locked while the
// rules are checked: registration must be possible at now, a user may
// only register once unless the event allows multiple registrations, and
// a booking that does not fit goes to the waiting list when the event has
// one.  The price is taken from the event for reg.PriceCode.
func (r *EventRepo) Register(ctx context.Context, eventID uint64, reg *model.Registration, now time.Time) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ev, err := lockEvent(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if err = applyBookingRules(ev, reg, now); err != nil {
		return err
	}
	reg.EventID = eventID
	if err = insertRegistration(ctx, tx, reg); err != nil {
		return err
	}
	return tx.Commit()
}

// applyBookingRules checks a new registration against the event and fills
// in queue flag and prices.
func applyBookingRules(ev *model.Event, reg *model.Registration, now time.Time) error {
	if !ev.IsRegistrationPossibleAt(now) {
		return ErrRegistrationClosed
	}
	if !ev.Record.AllowsMultipleRegistrations && reg.UserID > 0 {
		for _, existing := range ev.Registrations() {
			if existing.UserID == reg.UserID {
				return ErrAlreadyRegistered
			}
		}
	}
	if reg.Seats < 1 {
		reg.Seats = 1
	}
	reg.OnQueue = false
	if !ev.HasUnlimitedVacancies() && ev.Vacancies() < reg.Seats {
		if !ev.Record.HasRegistrationQueue {
			return ErrEventFull
		}
		reg.OnQueue = true
	}

	code := reg.PriceCode
	if code == "" {
		code = model.PriceRegular
	}
	price, ok := ev.PriceForCodeAt(code, now)
	if !ok && !strings.HasSuffix(code, "_early") {
		// the early-bird price replaces the normal one while it applies
		if price, ok = ev.PriceForCodeAt(code+"_early", now); ok {
			code += "_early"
		}
	}
	if !ok {
		return &model.ValidationError{Code: model.CodeInvalidPriceCode, Field: "registrations.price_code", Reason: "price not offered"}
	}
	if err := reg.SetPrice(code, price); err != nil {
		return err
	}
	return reg.SetTotalPrice(price * int64(reg.Seats))
}
