package validate

import (
	"errors"
	"testing"
)

func TestDate_RejectsImpossibleDays(t *testing.T) {
	if _, err := Date("booking_date", "2025-02-30"); err == nil {
		t.Fatalf("expected error for Feb 30")
	}
	d, err := Date("booking_date", " 2025-03-14 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Format(DateLayout) != "2025-03-14" {
		t.Fatalf("unexpected date: %v", d)
	}
}

func TestFirst_ReturnsValidationError(t *testing.T) {
	err := First(nil, Required("from_location", "   "), Required("to_location", ""))
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ve.Code != CodeFailed || ve.Message != "from_location is required" {
		t.Fatalf("unexpected error: %#v", ve)
	}
	if First(nil, nil) != nil {
		t.Fatalf("expected nil")
	}
}

func TestOneOfAndUUID(t *testing.T) {
	if OneOf("method", "mpesa", "mpesa", "card") != nil {
		t.Fatalf("mpesa should be allowed")
	}
	if OneOf("method", "bitcoin", "mpesa", "card") == nil {
		t.Fatalf("bitcoin should be rejected")
	}
	if UUID("team_id", "3f1c2a9e-5b7d-4e21-9a8f-0c6b1d2e3f4a") != nil {
		t.Fatalf("expected valid uuid")
	}
	for _, bad := range []string{"team-1", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz", "{3f1c2a9e-5b7d-4e21-9a8f-0c6b1d2e3f4a}"} {
		if UUID("team_id", bad) == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
