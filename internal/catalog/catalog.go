package catalog

import (
	"errors"
	"fmt"

	"movebooking/internal/validate"
)

type Category string

const (
	CategoryResidential Category = "Residential"
	CategoryCommercial  Category = "Commercial"
	CategorySpecialized Category = "Specialized"
)

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryResidential, CategoryCommercial, CategorySpecialized:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown category: %s", s)
	}
}

const Currency = "KES"

// DefaultPerFloorSurcharge applies per floor above ground level.
const DefaultPerFloorSurcharge int64 = 500

var ErrNotFound = errors.New("offering not found")

type AddOn struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Offering is a read-only catalog entry. Prices are whole KES.
type Offering struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Category          Category `json:"category"`
	Description       string   `json:"description"`
	StartingPrice     int64    `json:"startingPrice"`
	PerFloorSurcharge int64    `json:"perFloorSurcharge"`
	AddOns            []AddOn  `json:"addOns"`
}

// MaxPrice caps any single catalog price.
const MaxPrice int64 = 1_000_000_000

func priceOK(p int64) bool { return p >= 0 && p <= MaxPrice }

func (o Offering) Validate() error {
	if o.ID == "" {
		return validate.New("CATALOG_INVALID", "offering id is required")
	}
	if o.Title == "" {
		return validate.New("CATALOG_INVALID", fmt.Sprintf("offering %s: title is required", o.ID))
	}
	if _, err := ParseCategory(string(o.Category)); err != nil {
		return validate.New("CATALOG_INVALID", fmt.Sprintf("offering %s: %v", o.ID, err))
	}
	if !priceOK(o.StartingPrice) || !priceOK(o.PerFloorSurcharge) {
		return validate.New("CATALOG_INVALID", fmt.Sprintf("offering %s: prices must be between 0 and %d", o.ID, MaxPrice))
	}
	seen := make(map[string]bool, len(o.AddOns))
	for _, a := range o.AddOns {
		if !priceOK(a.Price) {
			return validate.New("CATALOG_INVALID", fmt.Sprintf("offering %s: add-on %q price must be between 0 and %d", o.ID, a.Name, MaxPrice))
		}
		if seen[a.Name] {
			return validate.New("CATALOG_INVALID", fmt.Sprintf("offering %s: duplicate add-on %q", o.ID, a.Name))
		}
		seen[a.Name] = true
	}
	return nil
}

func (o Offering) addOn(name string) (AddOn, bool) {
	for _, a := range o.AddOns {
		if a.Name == name {
			return a, true
		}
	}
	return AddOn{}, false
}

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	offerings []Offering
	byID      map[string]int
}

func NewCatalog(offerings []Offering) (*Catalog, error) {
	c := &Catalog{
		offerings: make([]Offering, 0, len(offerings)),
		byID:      make(map[string]int, len(offerings)),
	}
	for _, o := range offerings {
		if err := o.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[o.ID]; dup {
			return nil, validate.New("CATALOG_INVALID", fmt.Sprintf("duplicate offering id %s", o.ID))
		}
		o.AddOns = append([]AddOn(nil), o.AddOns...)
		c.byID[o.ID] = len(c.offerings)
		c.offerings = append(c.offerings, o)
	}
	return c, nil
}

// All returns a copy in catalog order.
func (c *Catalog) All() []Offering {
	return append([]Offering(nil), c.offerings...)
}

func (c *Catalog) ByID(id string) (Offering, error) {
	i, ok := c.byID[id]
	if !ok {
		return Offering{}, ErrNotFound
	}
	return c.offerings[i], nil
}

func (c *Catalog) ByCategory(cat Category) []Offering {
	out := []Offering{}
	for _, o := range c.offerings {
		if o.Category == cat {
			out = append(out, o)
		}
	}
	return out
}

// Default is the shipped catalog.
func Default() *Catalog {
	c, err := NewCatalog(defaultOfferings)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultOfferings = []Offering{
	{
		ID:                "bedsitter-move",
		Title:             "Bedsitter & Studio Move",
		Category:          CategoryResidential,
		Description:       "One small truck and two movers for a bedsitter or studio within the city.",
		StartingPrice:     3500,
		PerFloorSurcharge: DefaultPerFloorSurcharge,
		AddOns: []AddOn{
			{Name: "Packing materials", Price: 800},
			{Name: "Full packing service", Price: 1500},
		},
	},
	{
		ID:                "apartment-move",
		Title:             "Apartment Move",
		Category:          CategoryResidential,
		Description:       "One to three bedroom apartments with a crew of four and a 3-tonne truck.",
		StartingPrice:     8500,
		PerFloorSurcharge: DefaultPerFloorSurcharge,
		AddOns: []AddOn{
			{Name: "Full packing service", Price: 2500},
			{Name: "Full unpacking service", Price: 3000},
			{Name: "Furniture assembly", Price: 1500},
			{Name: "Cleaning after move", Price: 2000},
		},
	},
	{
		ID:                "family-home-move",
		Title:             "Family Home Move",
		Category:          CategoryResidential,
		Description:       "Maisonettes and bungalows, including garden items and appliances.",
		StartingPrice:     18000,
		PerFloorSurcharge: DefaultPerFloorSurcharge,
		AddOns: []AddOn{
			{Name: "Full packing service", Price: 4500},
			{Name: "Full unpacking service", Price: 3000},
			{Name: "Furniture assembly", Price: 2500},
			{Name: "Storage (1 month)", Price: 6000},
		},
	},
	{
		ID:                "office-relocation",
		Title:             "Office Relocation",
		Category:          CategoryCommercial,
		Description:       "Desks, records and workstations moved with minimal downtime.",
		StartingPrice:     25000,
		PerFloorSurcharge: DefaultPerFloorSurcharge,
		AddOns: []AddOn{
			{Name: "IT equipment handling", Price: 5000},
			{Name: "Weekend or after-hours move", Price: 4000},
			{Name: "Crate rental", Price: 3000},
		},
	},
	{
		ID:                "shop-relocation",
		Title:             "Retail Shop Relocation",
		Category:          CategoryCommercial,
		Description:       "Stock, shelving and fittings for small retail premises.",
		StartingPrice:     15000,
		PerFloorSurcharge: DefaultPerFloorSurcharge,
		AddOns: []AddOn{
			{Name: "Shelving dismantle and refit", Price: 3500},
			{Name: "Inventory packing", Price: 4000},
		},
	},
	{
		ID:                "piano-move",
		Title:             "Piano Move",
		Category:          CategorySpecialized,
		Description:       "Upright and grand pianos with padded transport.",
		StartingPrice:     12000,
		PerFloorSurcharge: 1500,
		AddOns: []AddOn{
			{Name: "Climate-controlled transport", Price: 4000},
		},
	},
	{
		ID:                "artwork-antiques",
		Title:             "Artwork & Antiques",
		Category:          CategorySpecialized,
		Description:       "Fragile and high-value items, individually wrapped.",
		StartingPrice:     9500,
		PerFloorSurcharge: DefaultPerFloorSurcharge,
		AddOns: []AddOn{
			{Name: "Custom crating", Price: 5000},
			{Name: "Transit insurance", Price: 2000},
		},
	},
}
