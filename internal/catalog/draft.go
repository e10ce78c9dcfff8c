package catalog

import (
	"fmt"

	"movebooking/internal/validate"
)

// Draft is an in-progress selection against one offering. The total is
// derived on every read.
type Draft struct {
	offering   Offering
	floorLevel int
	selected   map[string]bool
}

func NewDraft(o Offering) *Draft {
	return &Draft{offering: o, selected: map[string]bool{}}
}

func (d *Draft) Offering() Offering { return d.offering }

func (d *Draft) FloorLevel() int { return d.floorLevel }

func (d *Draft) SetFloorLevel(n int) error {
	if err := CheckFloorLevel(n); err != nil {
		return err
	}
	d.floorLevel = n
	return nil
}

// SelectAddOn turns an add-on on or off. Idempotent.
func (d *Draft) SelectAddOn(name string, on bool) error {
	if _, ok := d.offering.addOn(name); !ok {
		return validate.New(CodeUnknownAddOn, fmt.Sprintf("offering %s has no add-on %q", d.offering.ID, name))
	}
	if on {
		d.selected[name] = true
	} else {
		delete(d.selected, name)
	}
	return nil
}

func (d *Draft) ToggleAddOn(name string) error {
	return d.SelectAddOn(name, !d.selected[name])
}

// Selected returns the selected add-on names in catalog order.
func (d *Draft) Selected() []string {
	out := []string{}
	for _, a := range d.offering.AddOns {
		if d.selected[a.Name] {
			out = append(out, a.Name)
		}
	}
	return out
}

func (d *Draft) Quote() Breakdown {
	// Selections are validated on entry, so Quote cannot fail here.
	b, _ := Quote(d.offering, d.floorLevel, d.Selected())
	return b
}

func (d *Draft) EstimatedTotal() int64 {
	return d.Quote().Total
}

// Submission is the snapshot sent when a draft becomes a booking.
type Submission struct {
	ServiceID     string   `json:"service_id"`
	ServiceType   string   `json:"service_type"`
	FloorLevel    int      `json:"floor_level"`
	AddOns        []string `json:"add_ons"`
	EstimatedCost int64    `json:"estimated_cost"`
}

func (d *Draft) Submission() Submission {
	return Submission{
		ServiceID:     d.offering.ID,
		ServiceType:   d.offering.Title,
		FloorLevel:    d.floorLevel,
		AddOns:        d.Selected(),
		EstimatedCost: d.EstimatedTotal(),
	}
}

// DraftFor builds a draft from raw input, validating every selection.
func DraftFor(o Offering, floorLevel int, addOnNames []string) (*Draft, error) {
	d := NewDraft(o)
	if err := d.SetFloorLevel(floorLevel); err != nil {
		return nil, err
	}
	for _, name := range addOnNames {
		if err := d.SelectAddOn(name, true); err != nil {
			return nil, err
		}
	}
	return d, nil
}
