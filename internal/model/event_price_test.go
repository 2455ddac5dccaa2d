package model

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestAvailablePricesEarlyBird(t *testing.T) {
	cases := []struct {
		name     string
		deadline *time.Time
		rec      EventRecord
		want     map[string]int64
	}{
		{
			name:     "deadline in future selects early price",
			deadline: at(24 * time.Hour),
			rec:      EventRecord{RegularPriceCents: 1000, RegularEarlyPriceCents: 800},
			want:     map[string]int64{PriceRegularEarly: 800},
		},
		{
			name:     "deadline in past selects regular price",
			deadline: at(-24 * time.Hour),
			rec:      EventRecord{RegularPriceCents: 1000, RegularEarlyPriceCents: 800},
			want:     map[string]int64{PriceRegular: 1000},
		},
		{
			name:     "deadline exactly now is over",
			deadline: at(0),
			rec:      EventRecord{RegularPriceCents: 1000, RegularEarlyPriceCents: 800},
			want:     map[string]int64{PriceRegular: 1000},
		},
		{
			name: "no deadline never applies early bird",
			rec:  EventRecord{RegularPriceCents: 1000, RegularEarlyPriceCents: 800},
			want: map[string]int64{PriceRegular: 1000},
		},
		{
			name: "free event still offers regular",
			rec:  EventRecord{},
			want: map[string]int64{PriceRegular: 0},
		},
		{
			name:     "special tiers follow the same rule",
			deadline: at(time.Hour),
			rec: EventRecord{
				RegularPriceCents: 1000, RegularEarlyPriceCents: 800,
				SpecialPriceCents: 600, SpecialEarlyPriceCents: 500,
			},
			want: map[string]int64{PriceRegularEarly: 800, PriceSpecialEarly: 500},
		},
		{
			name:     "special without early counterpart disables early bird",
			deadline: at(time.Hour),
			rec: EventRecord{
				RegularPriceCents: 1000, RegularEarlyPriceCents: 800,
				SpecialPriceCents: 600,
			},
			want: map[string]int64{PriceRegular: 1000, PriceSpecial: 600},
		},
		{
			name: "board prices are additive",
			rec: EventRecord{
				RegularPriceCents: 1000, SpecialPriceCents: 600,
				RegularBoardPriceCents: 300, SpecialBoardPriceCents: 200,
			},
			want: map[string]int64{
				PriceRegular: 1000, PriceSpecial: 600,
				PriceRegularBoard: 300, PriceSpecialBoard: 200,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := &Event{Record: tc.rec}
			e.SetEarlyBirdDeadline(tc.deadline)
			if got := e.AvailablePricesAt(now); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("AvailablePricesAt = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasEarlyBirdPrice(t *testing.T) {
	base := EventRecord{
		RegularPriceCents:      1000,
		RegularEarlyPriceCents: 800,
		EarlyBirdDeadline:      at(time.Hour),
	}

	e := &Event{Record: base}
	if !e.HasEarlyBirdPrice() {
		t.Fatal("fully configured regular early bird should count")
	}

	withSpecial := base
	withSpecial.SpecialPriceCents = 700
	e = &Event{Record: withSpecial}
	if e.HasEarlyBirdPrice() {
		t.Fatal("special price without special early price must disable early bird")
	}

	withSpecial.SpecialEarlyPriceCents = 650
	e = &Event{Record: withSpecial}
	if !e.HasEarlyBirdPrice() {
		t.Fatal("special and special early set should allow early bird")
	}

	noDeadline := base
	noDeadline.EarlyBirdDeadline = nil
	if (&Event{Record: noDeadline}).HasEarlyBirdPrice() {
		t.Fatal("early bird needs a deadline")
	}

	noRegular := base
	noRegular.RegularPriceCents = 0
	if (&Event{Record: noRegular}).HasEarlyBirdPrice() {
		t.Fatal("early bird needs a regular price")
	}
}

func TestEarlyBirdApplies(t *testing.T) {
	e := &Event{Record: EventRecord{RegularPriceCents: 1000, RegularEarlyPriceCents: 800}}
	e.SetEarlyBirdDeadline(at(time.Minute))
	if !e.EarlyBirdAppliesAt(now) {
		t.Fatal("expected early bird to apply before the deadline")
	}
	if e.EarlyBirdAppliesAt(now.Add(time.Minute)) {
		t.Fatal("expected early bird to be over at the deadline")
	}
	if e.IsEarlyBirdDeadlineOverAt(now) {
		t.Fatal("deadline should not be over yet")
	}
}

func TestPriceSettersRejectNegative(t *testing.T) {
	e := &Event{}
	setters := map[string]func(int64) error{
		"regular":       e.SetRegularPrice,
		"regular_early": e.SetRegularEarlyPrice,
		"regular_board": e.SetRegularBoardPrice,
		"special":       e.SetSpecialPrice,
		"special_early": e.SetSpecialEarlyPrice,
		"special_board": e.SetSpecialBoardPrice,
	}
	for name, set := range setters {
		err := set(-1)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Code != CodeNegativePrice {
			t.Fatalf("%s: expected CodeNegativePrice, got %v", name, err)
		}
		if err := set(0); err != nil {
			t.Fatalf("%s: zero must be accepted: %v", name, err)
		}
	}
}

func TestPriceForCodeAt(t *testing.T) {
	e := &Event{Record: EventRecord{RegularPriceCents: 1000, SpecialPriceCents: 500}}
	if p, ok := e.PriceForCodeAt(PriceSpecial, now); !ok || p != 500 {
		t.Fatalf("special = %d, %v", p, ok)
	}
	if _, ok := e.PriceForCodeAt(PriceRegularEarly, now); ok {
		t.Fatal("regular_early is not available without early bird")
	}
}
