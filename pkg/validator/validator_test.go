package validator

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type signup struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
	Seats    int    `validate:"gte=1,lte=10"`
	Price    string `validate:"pricecode"`
}

func TestValidate(t *testing.T) {
	ok := signup{Email: "a@b.de", Password: "longenough", Seats: 1, Price: "special_early"}
	if err := Validate(context.Background(), ok); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		mutate func(*signup)
		want   string
	}{
		{func(s *signup) { s.Email = "" }, ErrFieldRequired},
		{func(s *signup) { s.Email = "nope" }, ErrInvalidEmail},
		{func(s *signup) { s.Password = "short" }, ErrFieldBelowMinLen},
		{func(s *signup) { s.Seats = 0 }, ErrFieldBelowMinVal},
		{func(s *signup) { s.Seats = 11 }, ErrFieldExceedsMaxVal},
		{func(s *signup) { s.Price = "vip" }, ErrInvalidPriceCode},
	}
	for _, tc := range cases {
		s := ok
		tc.mutate(&s)
		err := Validate(context.Background(), s)
		if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("got %v, want %q", err, tc.want)
		}
	}
}

func TestEchoAdapter(t *testing.T) {
	if err := (Echo{}).Validate(signup{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("got %v", err)
	}
}
