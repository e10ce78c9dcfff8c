package catalog

import "testing"

func TestDraft_DerivesTotalOnEveryRead(t *testing.T) {
	o, _ := Default().ByID("apartment-move")
	d := NewDraft(o)

	if d.EstimatedTotal() != 8500 {
		t.Fatalf("expected base price, got %d", d.EstimatedTotal())
	}
	if err := d.SetFloorLevel(3); err != nil {
		t.Fatalf("set floor: %v", err)
	}
	if err := d.ToggleAddOn("Full unpacking service"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if d.EstimatedTotal() != 13000 {
		t.Fatalf("expected 13000, got %d", d.EstimatedTotal())
	}

	if err := d.ToggleAddOn("Full unpacking service"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if d.EstimatedTotal() != 10000 || len(d.Selected()) != 0 {
		t.Fatalf("toggle off failed: total=%d selected=%v", d.EstimatedTotal(), d.Selected())
	}
}

func TestDraft_RejectsInvalidInput(t *testing.T) {
	o, _ := Default().ByID("bedsitter-move")
	d := NewDraft(o)
	if err := d.SetFloorLevel(-2); err == nil {
		t.Fatalf("expected floor error")
	}
	if err := d.SetFloorLevel(MaxFloorLevel + 1); err == nil {
		t.Fatalf("expected floor error above %d", MaxFloorLevel)
	}
	if d.FloorLevel() != 0 {
		t.Fatalf("rejected floor must not be stored")
	}
	if err := d.SelectAddOn("Piano", true); err == nil {
		t.Fatalf("expected unknown add-on error")
	}
}

func TestDraft_SubmissionSnapshot(t *testing.T) {
	o, _ := Default().ByID("apartment-move")
	d, err := DraftFor(o, 1, []string{"Furniture assembly", "Full packing service"})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	s := d.Submission()
	if s.ServiceType != o.Title || s.ServiceID != o.ID || s.FloorLevel != 1 {
		t.Fatalf("unexpected submission: %#v", s)
	}
	if len(s.AddOns) != 2 || s.AddOns[0] != "Full packing service" {
		t.Fatalf("add-ons must be in catalog order: %v", s.AddOns)
	}
	if s.EstimatedCost != 8500+500+2500+1500 {
		t.Fatalf("unexpected estimate %d", s.EstimatedCost)
	}
}
