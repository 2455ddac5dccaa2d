package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/seminars/internal/model"
)

// Kind names one auxiliary record table.  It doubles as the :kind path
// parameter of the records endpoints.
type Kind string

const (
	KindPlaces         Kind = "places"
	KindSpeakers       Kind = "speakers"
	KindOrganizers     Kind = "organizers"
	KindCategories     Kind = "categories"
	KindEventTypes     Kind = "event_types"
	KindTargetGroups   Kind = "target_groups"
	KindPaymentMethods Kind = "payment_methods"
	KindCheckboxes     Kind = "checkboxes"
	KindSkills         Kind = "skills"
	KindLodgings       Kind = "lodgings"
	KindFoods          Kind = "foods"
)

// kindSpec describes how one record type maps onto its table.  fields
// returns pointers to the struct fields in column order with the id
// first, so the same list serves Scan and INSERT.
type kindSpec struct {
	columns  []string
	newRec   func() any
	fields   func(rec any) []any
	validate func(rec any) error
}

func titledFields(r *model.TitledRecord) []any {
	return []any{&r.ID, &r.Title, &r.Description, &r.OwnerID}
}

func validateTitled(r *model.TitledRecord) error { return r.SetTitle(r.Title) }

var titledColumns = []string{"id", "title", "description", "owner_feuser"}

var kinds = map[Kind]kindSpec{
	KindPlaces: {
		columns: []string{"id", "title", "address", "zip", "city", "country", "homepage", "directions", "notes", "owner_feuser", "pid"},
		newRec:  func() any { return &model.Place{} },
		fields: func(rec any) []any {
			p := rec.(*model.Place)
			return []any{&p.ID, &p.Title, &p.Address, &p.ZIP, &p.City, &p.Country, &p.Homepage, &p.Directions, &p.Notes, &p.OwnerID, &p.PID}
		},
		validate: func(rec any) error { p := rec.(*model.Place); return p.SetTitle(p.Title) },
	},
	KindSpeakers: {
		columns: []string{"id", "title", "organization", "homepage", "description", "notes", "address", "phone_work", "phone_home", "phone_mobile", "email", "gender", "cancelation_period", "owner_feuser"},
		newRec:  func() any { return &model.Speaker{} },
		fields: func(rec any) []any {
			s := rec.(*model.Speaker)
			return []any{&s.ID, &s.Title, &s.Organization, &s.Homepage, &s.Description, &s.Notes, &s.Address, &s.PhoneWork, &s.PhoneHome, &s.PhoneMobile, &s.Email, &s.Gender, &s.CancelationPeriod, &s.OwnerID}
		},
		validate: func(rec any) error {
			s := rec.(*model.Speaker)
			return errors.Join(s.SetTitle(s.Title), s.SetGender(s.Gender), s.SetCancelationPeriod(s.CancelationPeriod))
		},
	},
	KindOrganizers: {
		columns: []string{"id", "title", "homepage", "email", "email_footer", "description"},
		newRec:  func() any { return &model.Organizer{} },
		fields: func(rec any) []any {
			o := rec.(*model.Organizer)
			return []any{&o.ID, &o.Title, &o.Homepage, &o.Email, &o.EmailFooter, &o.Description}
		},
		validate: func(rec any) error { o := rec.(*model.Organizer); return o.SetTitle(o.Title) },
	},
	KindCategories: {
		columns: []string{"id", "title", "icon", "single_view_page"},
		newRec:  func() any { return &model.Category{} },
		fields: func(rec any) []any {
			c := rec.(*model.Category)
			return []any{&c.ID, &c.Title, &c.Icon, &c.SingleViewPage}
		},
		validate: func(rec any) error { c := rec.(*model.Category); return c.SetTitle(c.Title) },
	},
	KindEventTypes: {
		columns: []string{"id", "title", "single_view_page"},
		newRec:  func() any { return &model.EventType{} },
		fields: func(rec any) []any {
			t := rec.(*model.EventType)
			return []any{&t.ID, &t.Title, &t.SingleViewPage}
		},
		validate: func(rec any) error { t := rec.(*model.EventType); return t.SetTitle(t.Title) },
	},
	KindTargetGroups: {
		columns: []string{"id", "title", "minimum_age", "maximum_age"},
		newRec:  func() any { return &model.TargetGroup{} },
		fields: func(rec any) []any {
			g := rec.(*model.TargetGroup)
			return []any{&g.ID, &g.Title, &g.MinimumAge, &g.MaximumAge}
		},
		validate: func(rec any) error {
			g := rec.(*model.TargetGroup)
			return errors.Join(g.SetTitle(g.Title), g.SetAgeRange(g.MinimumAge, g.MaximumAge))
		},
	},
	KindPaymentMethods: {
		columns:  titledColumns,
		newRec:   func() any { return &model.PaymentMethod{} },
		fields:   func(rec any) []any { return titledFields(&rec.(*model.PaymentMethod).TitledRecord) },
		validate: func(rec any) error { return validateTitled(&rec.(*model.PaymentMethod).TitledRecord) },
	},
	KindCheckboxes: {
		columns:  titledColumns,
		newRec:   func() any { return &model.Checkbox{} },
		fields:   func(rec any) []any { return titledFields(&rec.(*model.Checkbox).TitledRecord) },
		validate: func(rec any) error { return validateTitled(&rec.(*model.Checkbox).TitledRecord) },
	},
	KindSkills: {
		columns:  titledColumns,
		newRec:   func() any { return &model.Skill{} },
		fields:   func(rec any) []any { return titledFields(&rec.(*model.Skill).TitledRecord) },
		validate: func(rec any) error { return validateTitled(&rec.(*model.Skill).TitledRecord) },
	},
	KindLodgings: {
		columns:  titledColumns,
		newRec:   func() any { return &model.Lodging{} },
		fields:   func(rec any) []any { return titledFields(&rec.(*model.Lodging).TitledRecord) },
		validate: func(rec any) error { return validateTitled(&rec.(*model.Lodging).TitledRecord) },
	},
	KindFoods: {
		columns:  titledColumns,
		newRec:   func() any { return &model.Food{} },
		fields:   func(rec any) []any { return titledFields(&rec.(*model.Food).TitledRecord) },
		validate: func(rec any) error { return validateTitled(&rec.(*model.Food).TitledRecord) },
	},
}

// Kinds returns all known record kinds in alphabetical order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind validates a kind coming from a request path.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kinds[k]; !ok {
		return "", ErrUnknownKind
	}
	return k, nil
}

// NewRecord returns an empty record of the kind, ready for JSON binding.
func NewRecord(k Kind) (any, error) {
	spec, ok := kinds[k]
	if !ok {
		return nil, ErrUnknownKind
	}
	return spec.newRec(), nil
}

// StampRecord sets the creating front-end user (0 for the back end) and
// the storage folder of a new record.  Kinds without those columns are
// left alone; a value sent by the client never survives.
func StampRecord(rec any, ownerID, pid uint64) {
	switch r := rec.(type) {
	case *model.Place:
		r.OwnerID, r.PID = ownerID, pid
	case *model.Speaker:
		r.OwnerID = ownerID
	case *model.PaymentMethod:
		r.OwnerID = ownerID
	case *model.Checkbox:
		r.OwnerID = ownerID
	case *model.Skill:
		r.OwnerID = ownerID
	case *model.Lodging:
		r.OwnerID = ownerID
	case *model.Food:
		r.OwnerID = ownerID
	}
}

// ValidateRecord runs the model setters over a bound record.
func ValidateRecord(k Kind, rec any) error {
	spec, ok := kinds[k]
	if !ok {
		return ErrUnknownKind
	}
	return spec.validate(rec)
}

// RecordRepo stores the auxiliary records.  Every kind lives in its own
// table named after the kind.
type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo { return &RecordRepo{db: db} }

func selectList(table string, cols []string) string {
	prefixed := make([]string, len(cols))
	for i, c := range cols {
		prefixed[i] = table + "." + c
	}
	return strings.Join(prefixed, ", ")
}

// List returns all records of a kind ordered by title.
func (r *RecordRepo) List(ctx context.Context, k Kind) ([]any, error) {
	spec, ok := kinds[k]
	if !ok {
		return nil, ErrUnknownKind
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY title, id", strings.Join(spec.columns, ", "), k)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows, spec)
}

// GetByID returns one record or ErrRecordNotFound.
func (r *RecordRepo) GetByID(ctx context.Context, k Kind, id uint64) (any, error) {
	spec, ok := kinds[k]
	if !ok {
		return nil, ErrUnknownKind
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(spec.columns, ", "), k)
	rec := spec.newRec()
	if err := r.db.QueryRowContext(ctx, q, id).Scan(spec.fields(rec)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Create validates and inserts a record and sets its generated id.
func (r *RecordRepo) Create(ctx context.Context, k Kind, rec any) (uint64, error) {
	spec, ok := kinds[k]
	if !ok {
		return 0, ErrUnknownKind
	}
	if err := spec.validate(rec); err != nil {
		return 0, err
	}
	fields := spec.fields(rec)
	args := make([]any, 0, len(fields)-1)
	for _, f := range fields[1:] {
		args = append(args, deref(f))
	}
	cols := spec.columns[1:]
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", k, strings.Join(cols, ", "), placeholders(len(cols)))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	*(fields[0].(*uint64)) = uint64(id)
	return uint64(id), nil
}

type reference struct{ table, column string }

// recordReferences lists per kind the columns pointing at a record of that
// kind: the event mm table first, then slots, registrations and group
// defaults.
var recordReferences = func() map[Kind][]reference {
	m := map[Kind][]reference{
		KindEventTypes:     {{"events", "event_type_id"}},
		KindPlaces:         {{"time_slots", "place_id"}},
		KindPaymentMethods: {{"registrations", "payment_method_id"}},
		KindLodgings:       {{"registrations_lodgings_mm", "record_id"}},
		KindFoods:          {{"registrations_foods_mm", "record_id"}},
		KindCheckboxes:     {{"registrations_checkboxes_mm", "record_id"}},
		KindCategories:     {{"fe_groups_categories_mm", "record_id"}},
		KindOrganizers:     {{"fe_groups_organizers_mm", "record_id"}},
	}
	for _, rel := range eventRelations {
		m[rel.kind] = append([]reference{{rel.table, "record_id"}}, m[rel.kind]...)
	}
	return m
}()

// Delete removes a record.  Records still referenced by an event, a time
// slot, a registration or a group default are not deleted and yield
// ErrConflict.
func (r *RecordRepo) Delete(ctx context.Context, k Kind, id uint64) error {
	if _, ok := kinds[k]; !ok {
		return ErrUnknownKind
	}
	for _, ref := range recordReferences[k] {
		var n int
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", ref.table, ref.column)
		if err := r.db.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", k), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// listRelated loads the records of a kind linked to one owner row through
// an mm table, in the stored order.
func listRelated(ctx context.Context, q querier, k Kind, mmTable, ownerCol string, ownerID uint64) ([]any, error) {
	spec := kinds[k]
	stmt := fmt.Sprintf("SELECT %s FROM %s JOIN %s mm ON mm.record_id = %s.id WHERE mm.%s = ? ORDER BY mm.sorting, %s.id",
		selectList(string(k), spec.columns), k, mmTable, k, ownerCol, k)
	rows, err := q.QueryContext(ctx, stmt, ownerID)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows, spec)
}

func scanRecords(rows *sql.Rows, spec kindSpec) ([]any, error) {
	defer rows.Close()
	var out []any
	for rows.Next() {
		rec := spec.newRec()
		if err := rows.Scan(spec.fields(rec)...); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func deref(p any) any {
	switch v := p.(type) {
	case *string:
		return *v
	case *uint64:
		return *v
	case *int:
		return *v
	case *int64:
		return *v
	case *bool:
		return *v
	}
	panic(fmt.Sprintf("repository: unsupported field type %T", p))
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// replaceRelation rewrites the mm rows of one owner.
func replaceRelation(ctx context.Context, q querier, mmTable, ownerCol string, ownerID uint64, ids []uint64) error {
	if _, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", mmTable, ownerCol), ownerID); err != nil {
		return err
	}
	return insertRelation(ctx, q, mmTable, ownerCol, ownerID, ids)
}

// insertRelation appends mm rows for one owner, numbering them in order.
func insertRelation(ctx context.Context, q querier, mmTable, ownerCol string, ownerID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s, record_id, sorting) VALUES ", mmTable, ownerCol)
	args := make([]any, 0, len(ids)*3)
	for i, id := range ids {
		if i > 0 {
			stmt += ","
		}
		stmt += "(?, ?, ?)"
		args = append(args, ownerID, id, i)
	}
	_, err := q.ExecContext(ctx, stmt, args...)
	return err
}
