package model

import "time"

// Price codes used as keys of AvailablePrices and stored on registrations.
const (
	PriceRegular      = "regular"
	PriceRegularEarly = "regular_early"
	PriceRegularBoard = "regular_board"
	PriceSpecial      = "special"
	PriceSpecialEarly = "special_early"
	PriceSpecialBoard = "special_board"
)

// IsPriceCode reports whether code names one of the six price columns.
func IsPriceCode(code string) bool {
	switch code {
	case PriceRegular, PriceRegularEarly, PriceRegularBoard,
		PriceSpecial, PriceSpecialEarly, PriceSpecialBoard:
		return true
	}
	return false
}

// Prices are delegated to the topic for event dates.  All amounts are in
// cents.

func (e *Event) RegularPrice() int64      { return e.src().Record.RegularPriceCents }
func (e *Event) RegularEarlyPrice() int64 { return e.src().Record.RegularEarlyPriceCents }
func (e *Event) RegularBoardPrice() int64 { return e.src().Record.RegularBoardPriceCents }
func (e *Event) SpecialPrice() int64      { return e.src().Record.SpecialPriceCents }
func (e *Event) SpecialEarlyPrice() int64 { return e.src().Record.SpecialEarlyPriceCents }
func (e *Event) SpecialBoardPrice() int64 { return e.src().Record.SpecialBoardPriceCents }

func (e *Event) SetRegularPrice(cents int64) error {
	return setPrice(&e.src().Record.RegularPriceCents, "events.price_regular", cents)
}

func (e *Event) SetRegularEarlyPrice(cents int64) error {
	return setPrice(&e.src().Record.RegularEarlyPriceCents, "events.price_regular_early", cents)
}

func (e *Event) SetRegularBoardPrice(cents int64) error {
	return setPrice(&e.src().Record.RegularBoardPriceCents, "events.price_regular_board", cents)
}

func (e *Event) SetSpecialPrice(cents int64) error {
	return setPrice(&e.src().Record.SpecialPriceCents, "events.price_special", cents)
}

func (e *Event) SetSpecialEarlyPrice(cents int64) error {
	return setPrice(&e.src().Record.SpecialEarlyPriceCents, "events.price_special_early", cents)
}

func (e *Event) SetSpecialBoardPrice(cents int64) error {
	return setPrice(&e.src().Record.SpecialBoardPriceCents, "events.price_special_board", cents)
}

func setPrice(dst *int64, field string, cents int64) error {
	if err := requireNonNegative(CodeNegativePrice, field, cents); err != nil {
		return err
	}
	*dst = cents
	return nil
}

func (e *Event) HasRegularPrice() bool      { return e.RegularPrice() > 0 }
func (e *Event) HasRegularEarlyPrice() bool { return e.RegularEarlyPrice() > 0 }
func (e *Event) HasRegularBoardPrice() bool { return e.RegularBoardPrice() > 0 }
func (e *Event) HasSpecialPrice() bool      { return e.SpecialPrice() > 0 }
func (e *Event) HasSpecialEarlyPrice() bool { return e.SpecialEarlyPrice() > 0 }
func (e *Event) HasSpecialBoardPrice() bool { return e.SpecialBoardPrice() > 0 }

// IsFree reports whether neither a regular nor a special price is set.
func (e *Event) IsFree() bool { return !e.HasRegularPrice() && !e.HasSpecialPrice() }

// EarlyBirdDeadline is an own field of the record, not of the topic.
func (e *Event) EarlyBirdDeadline() *time.Time { return e.Record.EarlyBirdDeadline }

func (e *Event) SetEarlyBirdDeadline(t *time.Time) { e.Record.EarlyBirdDeadline = t }

func (e *Event) HasEarlyBirdDeadline() bool { return e.Record.EarlyBirdDeadline != nil }

// HasEarlyBirdPrice reports whether early-bird pricing is fully configured:
// a deadline, a regular price and its early-bird counterpart, and either no
// special price or a special price together with its early-bird
// counterpart.
func (e *Event) HasEarlyBirdPrice() bool {
	if !e.HasEarlyBirdDeadline() || !e.HasRegularPrice() || !e.HasRegularEarlyPrice() {
		return false
	}
	return !e.HasSpecialPrice() || e.HasSpecialEarlyPrice()
}

// IsEarlyBirdDeadlineOverAt reports now >= deadline.  Without a deadline
// there is nothing to be over.
func (e *Event) IsEarlyBirdDeadlineOverAt(now time.Time) bool {
	d := e.Record.EarlyBirdDeadline
	return d != nil && !now.Before(*d)
}

func (e *Event) IsEarlyBirdDeadlineOver() bool { return e.IsEarlyBirdDeadlineOverAt(time.Now()) }

func (e *Event) EarlyBirdAppliesAt(now time.Time) bool {
	return e.HasEarlyBirdPrice() && !e.IsEarlyBirdDeadlineOverAt(now)
}

func (e *Event) EarlyBirdApplies() bool { return e.EarlyBirdAppliesAt(time.Now()) }

// AvailablePricesAt returns the prices a registration can choose from at
// the given moment, keyed by price code.  Per tier the normal price and its
// early-bird counterpart are mutually exclusive; the regular tier is always
// present (possibly 0 for free events), the special tier only when a
// special price is set.  Board prices are added whenever they are set.
func (e *Event) AvailablePricesAt(now time.Time) map[string]int64 {
	early := e.EarlyBirdAppliesAt(now)
	prices := make(map[string]int64, 4)

	if early && e.HasRegularEarlyPrice() {
		prices[PriceRegularEarly] = e.RegularEarlyPrice()
	} else {
		prices[PriceRegular] = e.RegularPrice()
	}
	if e.HasSpecialPrice() {
		if early && e.HasSpecialEarlyPrice() {
			prices[PriceSpecialEarly] = e.SpecialEarlyPrice()
		} else {
			prices[PriceSpecial] = e.SpecialPrice()
		}
	}
	if e.HasRegularBoardPrice() {
		prices[PriceRegularBoard] = e.RegularBoardPrice()
	}
	if e.HasSpecialBoardPrice() {
		prices[PriceSpecialBoard] = e.SpecialBoardPrice()
	}
	return prices
}

func (e *Event) AvailablePrices() map[string]int64 { return e.AvailablePricesAt(time.Now()) }

// PriceForCodeAt looks a price code up in the prices available at now.
func (e *Event) PriceForCodeAt(code string, now time.Time) (int64, bool) {
	p, ok := e.AvailablePricesAt(now)[code]
	return p, ok
}
