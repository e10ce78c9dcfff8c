package catalog

import (
	"fmt"

	"movebooking/internal/validate"
)

const (
	CodeUnknownAddOn      = "UNKNOWN_ADD_ON"
	CodeFloorLevelInvalid = "FLOOR_LEVEL_INVALID"
)

// MaxFloorLevel bounds floor_level so the surcharge stays within int64.
const MaxFloorLevel = 200

// CheckFloorLevel reports whether n is an accepted floor level.
func CheckFloorLevel(n int) error {
	if n < 0 || n > MaxFloorLevel {
		return validate.New(CodeFloorLevelInvalid, fmt.Sprintf("floor_level must be between 0 and %d", MaxFloorLevel))
	}
	return nil
}

// Breakdown is a priced quote. AddOns are in catalog order.
type Breakdown struct {
	ServiceID      string  `json:"service_id"`
	ServiceTitle   string  `json:"service_title"`
	FloorLevel     int     `json:"floor_level"`
	Base           int64   `json:"base"`
	FloorSurcharge int64   `json:"floor_surcharge"`
	AddOns         []AddOn `json:"add_ons"`
	Total          int64   `json:"total"`
	Currency       string  `json:"currency"`
}

// Quote prices an offering for a floor level and a set of add-on names.
// Duplicate names count once and order does not matter. Unknown names are rejected.
func Quote(o Offering, floorLevel int, addOnNames []string) (Breakdown, error) {
	if err := CheckFloorLevel(floorLevel); err != nil {
		return Breakdown{}, err
	}

	selected := make(map[string]bool, len(addOnNames))
	for _, name := range addOnNames {
		if _, ok := o.addOn(name); !ok {
			return Breakdown{}, validate.New(CodeUnknownAddOn, fmt.Sprintf("offering %s has no add-on %q", o.ID, name))
		}
		selected[name] = true
	}

	b := Breakdown{
		ServiceID:    o.ID,
		ServiceTitle: o.Title,
		FloorLevel:   floorLevel,
		Base:         o.StartingPrice,
		AddOns:       []AddOn{},
		Currency:     Currency,
	}
	if floorLevel > 0 {
		b.FloorSurcharge = int64(floorLevel) * o.PerFloorSurcharge
	}
	b.Total = b.Base + b.FloorSurcharge
	for _, a := range o.AddOns {
		if selected[a.Name] {
			b.AddOns = append(b.AddOns, a)
			b.Total += a.Price
		}
	}
	return b, nil
}

// Estimate is Quote reduced to its total.
func Estimate(o Offering, floorLevel int, addOnNames []string) (int64, error) {
	b, err := Quote(o, floorLevel, addOnNames)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}
