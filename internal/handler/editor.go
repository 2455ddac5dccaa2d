package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/seminars/internal/model"
	"github.com/iliyamo/seminars/internal/repository"
)

// EditorHandler lets front-end users maintain their own events.  New and
// edited events pick up the defaults of the user's groups.
type EditorHandler struct {
	Events     EventStore
	Users      UserStore
	TimeSlots  TimeSlotStore
	Records    RecordStore
	Log        zerolog.Logger
	Invalidate func(ctx context.Context)
	Now        func() time.Time
}

type editorEventReq struct {
	ObjectType             int        `json:"object_type" validate:"oneof=0 1 2"`
	TopicID                uint64     `json:"topic_id"`
	Title                  string     `json:"title" validate:"required,max=255"`
	Subtitle               string     `json:"subtitle" validate:"max=255"`
	Teaser                 string     `json:"teaser" validate:"max=2000"`
	Description            string     `json:"description"`
	AdditionalInformation  string     `json:"additional_information"`
	Notes                  string     `json:"notes"`
	Image                  string     `json:"image" validate:"max=255"`
	CreditPoints           int        `json:"credit_points"`
	RegularPrice           int64      `json:"price_regular"`
	RegularEarlyPrice      int64      `json:"price_regular_early"`
	RegularBoardPrice      int64      `json:"price_regular_board"`
	SpecialPrice           int64      `json:"price_special"`
	SpecialEarlyPrice      int64      `json:"price_special_early"`
	SpecialBoardPrice      int64      `json:"price_special_board"`
	Begin                  *time.Time `json:"begin"`
	End                    *time.Time `json:"end"`
	RegistrationBegin      *time.Time `json:"registration_begin"`
	RegistrationDeadline   *time.Time `json:"registration_deadline"`
	EarlyBirdDeadline      *time.Time `json:"early_bird_deadline"`
	UnregistrationDeadline *time.Time `json:"unregistration_deadline"`
	AttendeesMin           int        `json:"attendees_min"`
	AttendeesMax           int        `json:"attendees_max"`
	NeedsRegistration      bool       `json:"needs_registration"`
	AllowsMultiple         bool       `json:"allows_multiple_registrations"`
	HasRegistrationQueue   bool       `json:"has_registration_queue"`
	AutomaticConfirmation  bool       `json:"automatic_confirmation"`
	EventTypeID            uint64     `json:"event_type_id"`
	CategoryIDs            []uint64   `json:"category_ids"`
	PlaceIDs               []uint64   `json:"place_ids"`
	SpeakerIDs             []uint64   `json:"speaker_ids"`
	OrganizerIDs           []uint64   `json:"organizer_ids"`
	TargetGroupIDs         []uint64   `json:"target_group_ids"`
	PaymentMethodIDs       []uint64   `json:"payment_method_ids"`
	LodgingIDs             []uint64   `json:"lodging_ids"`
	FoodIDs                []uint64   `json:"food_ids"`
	CheckboxIDs            []uint64   `json:"checkbox_ids"`
}

// requestFromEvent fills a request with the stored values of ev so that a
// PATCH body only overrides what it names.
func requestFromEvent(ev *model.Event) editorEventReq {
	r, rel := ev.Record, ev.Relations
	return editorEventReq{
		ObjectType:             r.ObjectType,
		TopicID:                r.TopicID,
		Title:                  r.Title,
		Subtitle:               r.Subtitle,
		Teaser:                 r.Teaser,
		Description:            r.Description,
		AdditionalInformation:  r.AdditionalInformation,
		Notes:                  r.Notes,
		Image:                  r.Image,
		CreditPoints:           r.CreditPoints,
		RegularPrice:           r.RegularPriceCents,
		RegularEarlyPrice:      r.RegularEarlyPriceCents,
		RegularBoardPrice:      r.RegularBoardPriceCents,
		SpecialPrice:           r.SpecialPriceCents,
		SpecialEarlyPrice:      r.SpecialEarlyPriceCents,
		SpecialBoardPrice:      r.SpecialBoardPriceCents,
		Begin:                  r.BeginDate,
		End:                    r.EndDate,
		RegistrationBegin:      r.RegistrationBegin,
		RegistrationDeadline:   r.RegistrationDeadline,
		EarlyBirdDeadline:      r.EarlyBirdDeadline,
		UnregistrationDeadline: r.UnregistrationDeadline,
		AttendeesMin:           r.AttendeesMin,
		AttendeesMax:           r.AttendeesMax,
		NeedsRegistration:      r.NeedsRegistration,
		AllowsMultiple:         r.AllowsMultipleRegistrations,
		HasRegistrationQueue:   r.HasRegistrationQueue,
		AutomaticConfirmation:  r.AutomaticConfirmation,
		EventTypeID:            r.EventTypeID,
		CategoryIDs:            idsOf(rel.Categories, func(c *model.Category) uint64 { return c.ID }),
		PlaceIDs:               idsOf(rel.Places, func(p *model.Place) uint64 { return p.ID }),
		SpeakerIDs:             idsOf(rel.Speakers, func(s *model.Speaker) uint64 { return s.ID }),
		OrganizerIDs:           idsOf(rel.Organizers, func(o *model.Organizer) uint64 { return o.ID }),
		TargetGroupIDs:         idsOf(rel.TargetGroups, func(g *model.TargetGroup) uint64 { return g.ID }),
		PaymentMethodIDs:       idsOf(rel.PaymentMethods, func(p *model.PaymentMethod) uint64 { return p.ID }),
		LodgingIDs:             idsOf(rel.Lodgings, func(l *model.Lodging) uint64 { return l.ID }),
		FoodIDs:                idsOf(rel.Foods, func(f *model.Food) uint64 { return f.ID }),
		CheckboxIDs:            idsOf(rel.Checkboxes, func(c *model.Checkbox) uint64 { return c.ID }),
	}
}

func refs[T any](ids []uint64, mk func(uint64) *T) []*T {
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		out = append(out, mk(id))
	}
	return out
}

func titledRef(id uint64) model.TitledRecord { return model.TitledRecord{ID: id} }

// apply writes the request into ev through the model setters.  ev must
// not have a topic attached so every setter writes the event's own
// columns.
func (req *editorEventReq) apply(ev *model.Event) error {
	r := &ev.Record
	if err := errors.Join(
		ev.SetObjectType(req.ObjectType),
		ev.SetTitle(req.Title),
		ev.SetCreditPoints(req.CreditPoints),
		ev.SetRegularPrice(req.RegularPrice),
		ev.SetRegularEarlyPrice(req.RegularEarlyPrice),
		ev.SetRegularBoardPrice(req.RegularBoardPrice),
		ev.SetSpecialPrice(req.SpecialPrice),
		ev.SetSpecialEarlyPrice(req.SpecialEarlyPrice),
		ev.SetSpecialBoardPrice(req.SpecialBoardPrice),
		ev.SetAttendeesMin(req.AttendeesMin),
		ev.SetAttendeesMax(req.AttendeesMax),
	); err != nil {
		return err
	}
	if req.AttendeesMax > 0 && req.AttendeesMin > req.AttendeesMax {
		return &model.ValidationError{Code: model.CodeAttendeesMinAboveMax, Field: "events.attendees_min", Reason: "must not exceed attendees_max"}
	}
	if req.Begin != nil && req.End != nil && req.End.Before(*req.Begin) {
		return &model.ValidationError{Code: model.CodeEndBeforeBegin, Field: "events.end_date", Reason: "must not be before begin"}
	}
	if req.ObjectType == model.TypeDate && req.TopicID == 0 {
		return &model.ValidationError{Code: model.CodeMissingTopic, Field: "events.topic_id", Reason: "a date needs a topic"}
	}

	ev.SetSubtitle(req.Subtitle)
	ev.SetTeaser(req.Teaser)
	ev.SetDescription(req.Description)
	ev.SetAdditionalInformation(req.AdditionalInformation)
	ev.SetNotes(req.Notes)
	ev.SetImage(req.Image)
	ev.SetEarlyBirdDeadline(req.EarlyBirdDeadline)
	r.TopicID = 0
	if req.ObjectType == model.TypeDate {
		r.TopicID = req.TopicID
	}
	r.BeginDate, r.EndDate = req.Begin, req.End
	r.RegistrationBegin = req.RegistrationBegin
	r.RegistrationDeadline = req.RegistrationDeadline
	r.UnregistrationDeadline = req.UnregistrationDeadline
	r.NeedsRegistration = req.NeedsRegistration
	r.AllowsMultipleRegistrations = req.AllowsMultiple
	r.HasRegistrationQueue = req.HasRegistrationQueue
	r.AutomaticConfirmation = req.AutomaticConfirmation

	ev.SetEventType(nil)
	if req.EventTypeID > 0 {
		ev.SetEventType(&model.EventType{ID: req.EventTypeID})
	}
	rel := &ev.Relations
	rel.Categories = refs(req.CategoryIDs, func(id uint64) *model.Category { return &model.Category{ID: id} })
	rel.Places = refs(req.PlaceIDs, func(id uint64) *model.Place { return &model.Place{ID: id} })
	rel.Speakers = refs(req.SpeakerIDs, func(id uint64) *model.Speaker { return &model.Speaker{ID: id} })
	rel.Organizers = refs(req.OrganizerIDs, func(id uint64) *model.Organizer { return &model.Organizer{ID: id} })
	rel.TargetGroups = refs(req.TargetGroupIDs, func(id uint64) *model.TargetGroup { return &model.TargetGroup{ID: id} })
	rel.PaymentMethods = refs(req.PaymentMethodIDs, func(id uint64) *model.PaymentMethod { return &model.PaymentMethod{TitledRecord: titledRef(id)} })
	rel.Lodgings = refs(req.LodgingIDs, func(id uint64) *model.Lodging { return &model.Lodging{TitledRecord: titledRef(id)} })
	rel.Foods = refs(req.FoodIDs, func(id uint64) *model.Food { return &model.Food{TitledRecord: titledRef(id)} })
	rel.Checkboxes = refs(req.CheckboxIDs, func(id uint64) *model.Checkbox { return &model.Checkbox{TitledRecord: titledRef(id)} })
	return nil
}

// checkTopic makes sure a date points to an existing topic.
func (h *EditorHandler) checkTopic(ctx context.Context, req *editorEventReq) error {
	if req.ObjectType != model.TypeDate {
		return nil
	}
	topic, err := h.Events.GetByID(ctx, req.TopicID)
	if errors.Is(err, repository.ErrEventNotFound) || (err == nil && !topic.IsTopic()) {
		return &model.ValidationError{Code: model.CodeMissingTopic, Field: "events.topic_id", Reason: "not a topic"}
	}
	return err
}

func (h *EditorHandler) invalidate(ctx context.Context) {
	if h.Invalidate != nil {
		h.Invalidate(ctx)
	}
}

func (h *EditorHandler) reviewNotice(fe *model.FrontEndUser, ev *model.Event) {
	if ev.Record.Hidden && fe.ReviewerID() > 0 {
		h.Log.Info().Uint64("event_id", ev.Record.ID).Uint64("reviewer_id", fe.ReviewerID()).Msg("event awaits review")
	}
}

// List handles GET /v1/editor/events: the caller's own events, hidden
// ones included.
func (h *EditorHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	events, err := h.Events.List(ctx, repository.EventFilter{OwnerID: uid, IncludeHidden: true})
	if err != nil {
		return failure(c, err, "list events failed")
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	out := make([]eventView, 0, len(events))
	for _, ev := range events {
		out = append(out, newEventView(ev, now))
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/editor/events.
func (h *EditorHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req editorEventReq
	if err := decode(c, &req); err != nil {
		return failure(c, err, "")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	fe, err := h.Users.GetFrontEndUser(ctx, uid)
	if err != nil {
		return failure(c, err, "load user failed")
	}
	if len(req.CategoryIDs) == 0 {
		req.CategoryIDs = fe.DefaultCategoryIDs()
	}
	if len(req.OrganizerIDs) == 0 {
		req.OrganizerIDs = fe.DefaultOrganizerIDs()
	}
	if err := h.checkTopic(ctx, &req); err != nil {
		return failure(c, err, "load topic failed")
	}
	ev := &model.Event{}
	if err := req.apply(ev); err != nil {
		return failure(c, err, "")
	}
	ev.Record.PID = fe.EventRecordsPID()
	ev.Record.OwnerID = uid
	ev.Record.Hidden = fe.PublishSetting() != model.PublishImmediately

	id, err := h.Events.Create(ctx, ev)
	if err != nil {
		return failure(c, err, "create event failed")
	}
	h.invalidate(ctx)
	h.reviewNotice(fe, ev)
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "hidden": ev.Record.Hidden})
}

// Update handles PUT and PATCH /v1/editor/events/:id.  PUT replaces all
// editable fields, PATCH only those present in the body.
func (h *EditorHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	current, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return failure(c, err, "load event failed")
	}
	if current.Record.OwnerID != uid {
		return failure(c, repository.ErrForbidden, "")
	}

	var req editorEventReq
	if c.Request().Method == http.MethodPatch {
		req = requestFromEvent(current)
	}
	if err := decode(c, &req); err != nil {
		return failure(c, err, "")
	}
	fe, err := h.Users.GetFrontEndUser(ctx, uid)
	if err != nil {
		return failure(c, err, "load user failed")
	}
	if err := h.checkTopic(ctx, &req); err != nil {
		return failure(c, err, "load topic failed")
	}

	ev := &model.Event{Record: current.Record}
	ev.Relations.Requirements = current.Relations.Requirements
	if err := req.apply(ev); err != nil {
		return failure(c, err, "")
	}
	ev.Record.Hidden = current.Record.Hidden || fe.PublishSetting() == model.PublishHideEdited

	if err := h.Events.Update(ctx, ev); err != nil {
		return failure(c, err, "update event failed")
	}
	h.invalidate(ctx)
	h.reviewNotice(fe, ev)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "hidden": ev.Record.Hidden})
}

// editorKinds are the auxiliary records front-end users may create while
// editing their events.
var editorKinds = map[repository.Kind]bool{
	repository.KindPlaces:       true,
	repository.KindSpeakers:     true,
	repository.KindCheckboxes:   true,
	repository.KindTargetGroups: true,
}

// CreateRecord handles POST /v1/editor/records/:kind.  The record belongs
// to the caller and goes to the auxiliary records folder of their groups.
func (h *EditorHandler) CreateRecord(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return failure(c, err, "")
	}
	k, err := kindParam(c)
	if err != nil {
		return failure(c, err, "")
	}
	if !editorKinds[k] {
		return failure(c, repository.ErrForbidden, "")
	}
	rec, err := repository.NewRecord(k)
	if err != nil {
		return failure(c, err, "")
	}
	if err := c.Bind(rec); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	fe, err := h.Users.GetFrontEndUser(ctx, uid)
	if err != nil {
		return failure(c, err, "load user failed")
	}
	repository.StampRecord(rec, uid, fe.AuxiliaryRecordsPID())
	if _, err := h.Records.Create(ctx, k, rec); err != nil {
		return failure(c, err, "create record failed")
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusCreated, rec)
}
