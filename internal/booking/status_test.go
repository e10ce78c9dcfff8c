package booking

import "testing"

func TestCanTransition_Table(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:    true,
		{StatusPending, StatusCancelled}:    true,
		{StatusConfirmed, StatusInProgress}: true,
		{StatusConfirmed, StatusCancelled}:  true,
		{StatusInProgress, StatusCompleted}: true,
		{StatusInProgress, StatusCancelled}: true,
	}
	for _, from := range Statuses {
		for _, to := range Statuses {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
	if CanTransition("archived", StatusPending) {
		t.Fatalf("unknown source status must not transition")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range Statuses {
		want := s == StatusCompleted || s == StatusCancelled
		if IsTerminal(s) != want {
			t.Fatalf("%s: expected terminal=%v", s, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("in_progress"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "Pending", "done", "in-progress"} {
		if _, err := ParseStatus(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestOwnerMayRequest_OnlyCancel(t *testing.T) {
	for _, s := range Statuses {
		if got := OwnerMayRequest(s); got != (s == StatusCancelled) {
			t.Fatalf("%s: got %v", s, got)
		}
	}
}
