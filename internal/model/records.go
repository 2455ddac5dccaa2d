package model

// Auxiliary records.  They are flat rows with a title and a handful of
// optional descriptive columns, attached to events through list relations.
// Fields are exported so that repositories can scan into them; the setters
// are the only write path used by handlers and enforce the column rules.

// Place is a venue where an event takes place.
type Place struct {
	ID         uint64 `json:"id"`         // places.id
	Title      string `json:"title"`      // places.title
	Address    string `json:"address"`    // places.address
	ZIP        string `json:"zip"`        // places.zip
	City       string `json:"city"`       // places.city
	Country    string `json:"country"`    // places.country (ISO alpha-2)
	Homepage   string `json:"homepage"`   // places.homepage
	Directions string `json:"directions"` // places.directions
	Notes      string `json:"notes"`      // places.notes
	OwnerID    uint64 `json:"owner_id"`   // places.owner_feuser (0 if created in the back end)
	PID        uint64 `json:"pid"`        // places.pid
}

func (p *Place) SetTitle(title string) error {
	if err := requireTitle("places.title", title); err != nil {
		return err
	}
	p.Title = title
	return nil
}

// HasCity reports whether a city has been entered.
func (p *Place) HasCity() bool { return p.City != "" }

// FullAddress joins address, ZIP and city the way they are printed on
// registration confirmations, skipping empty parts.
func (p *Place) FullAddress() string {
	out := p.Address
	zipCity := p.ZIP
	if p.City != "" {
		if zipCity != "" {
			zipCity += " "
		}
		zipCity += p.City
	}
	if zipCity != "" {
		if out != "" {
			out += ", "
		}
		out += zipCity
	}
	return out
}

// Gender values for speakers.
const (
	GenderUnknown = 0
	GenderMale    = 1
	GenderFemale  = 2
)

// Speaker is a person presenting at events.
type Speaker struct {
	ID                uint64   `json:"id"`                 // speakers.id
	Title             string   `json:"title"`              // speakers.title (the speaker's name)
	Organization      string   `json:"organization"`       // speakers.organization
	Homepage          string   `json:"homepage"`           // speakers.homepage
	Description       string   `json:"description"`        // speakers.description
	Notes             string   `json:"notes"`              // speakers.notes
	Address           string   `json:"address"`            // speakers.address
	PhoneWork         string   `json:"phone_work"`         // speakers.phone_work
	PhoneHome         string   `json:"phone_home"`         // speakers.phone_home
	PhoneMobile       string   `json:"phone_mobile"`       // speakers.phone_mobile
	Email             string   `json:"email"`              // speakers.email
	Gender            int      `json:"gender"`             // speakers.gender
	CancelationPeriod int      `json:"cancelation_period"` // speakers.cancelation_period in days
	OwnerID           uint64   `json:"owner_id"`           // speakers.owner_feuser
	Skills            []*Skill `json:"skills,omitempty"`   // speakers_skills_mm
}

func (s *Speaker) SetTitle(title string) error {
	if err := requireTitle("speakers.title", title); err != nil {
		return err
	}
	s.Title = title
	return nil
}

func (s *Speaker) SetGender(g int) error {
	switch g {
	case GenderUnknown, GenderMale, GenderFemale:
		s.Gender = g
		return nil
	}
	return invalid(CodeInvalidGender, "speakers.gender", "unknown gender")
}

func (s *Speaker) SetCancelationPeriod(days int) error {
	if err := requireNonNegative(CodeNegativeCancelationPeriod, "speakers.cancelation_period", int64(days)); err != nil {
		return err
	}
	s.CancelationPeriod = days
	return nil
}

// HasCancelationPeriod reports whether the speaker needs advance notice.
func (s *Speaker) HasCancelationPeriod() bool { return s.CancelationPeriod > 0 }

// Organizer is the institution responsible for events.
type Organizer struct {
	ID          uint64 `json:"id"`           // organizers.id
	Title       string `json:"title"`        // organizers.title
	Homepage    string `json:"homepage"`     // organizers.homepage
	Email       string `json:"email"`        // organizers.email
	EmailFooter string `json:"email_footer"` // organizers.email_footer
	Description string `json:"description"`  // organizers.description
}

func (o *Organizer) SetTitle(title string) error {
	if err := requireTitle("organizers.title", title); err != nil {
		return err
	}
	o.Title = title
	return nil
}

// Category groups events; it may point to its own single view page.
type Category struct {
	ID             uint64 `json:"id"`               // categories.id
	Title          string `json:"title"`            // categories.title
	Icon           string `json:"icon"`             // categories.icon
	SingleViewPage uint64 `json:"single_view_page"` // categories.single_view_page
}

func (c *Category) SetTitle(title string) error {
	if err := requireTitle("categories.title", title); err != nil {
		return err
	}
	c.Title = title
	return nil
}

func (c *Category) HasSingleViewPage() bool { return c.SingleViewPage > 0 }

// EventType classifies events (workshop, lecture, ...).
type EventType struct {
	ID             uint64 `json:"id"`               // event_types.id
	Title          string `json:"title"`            // event_types.title
	SingleViewPage uint64 `json:"single_view_page"` // event_types.single_view_page
}

func (t *EventType) SetTitle(title string) error {
	if err := requireTitle("event_types.title", title); err != nil {
		return err
	}
	t.Title = title
	return nil
}

func (t *EventType) HasSingleViewPage() bool { return t.SingleViewPage > 0 }

// TitledRecord is the shape shared by the simplest auxiliary tables.
type TitledRecord struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OwnerID     uint64 `json:"owner_id"`
}

func (r *TitledRecord) SetTitle(title string) error {
	if err := requireTitle("title", title); err != nil {
		return err
	}
	r.Title = title
	return nil
}

type (
	PaymentMethod struct{ TitledRecord } // payment_methods
	Checkbox      struct{ TitledRecord } // checkboxes
	Skill         struct{ TitledRecord } // skills
	Lodging       struct{ TitledRecord } // lodgings
	Food          struct{ TitledRecord } // foods
)

// TargetGroup describes an audience, optionally bounded by age.
type TargetGroup struct {
	ID         uint64 `json:"id"`          // target_groups.id
	Title      string `json:"title"`       // target_groups.title
	MinimumAge int    `json:"minimum_age"` // target_groups.minimum_age, 0 = no lower bound
	MaximumAge int    `json:"maximum_age"` // target_groups.maximum_age, 0 = no upper bound
}

func (g *TargetGroup) SetTitle(title string) error {
	if err := requireTitle("target_groups.title", title); err != nil {
		return err
	}
	g.Title = title
	return nil
}

// SetAgeRange sets both bounds at once so that the min <= max rule can be
// checked against the final values.
func (g *TargetGroup) SetAgeRange(minAge, maxAge int) error {
	if minAge < 0 || maxAge < 0 {
		return invalid(CodeNegativeAge, "target_groups.minimum_age", "must be >= 0")
	}
	if minAge > 0 && maxAge > 0 && minAge > maxAge {
		return invalid(CodeAgeRange, "target_groups.maximum_age", "must not be below minimum age")
	}
	g.MinimumAge, g.MaximumAge = minAge, maxAge
	return nil
}
