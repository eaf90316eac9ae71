package domain

// Order type constants. An order carries a non-empty set of these.
const (
	OrderTypeDelivery = "Delivery"
	OrderTypePickup   = "Pickup"
	OrderTypeDineIn   = "Dine-in"
)

// Category constants.
const (
	CategoryDish      = "Dish"
	CategoryCatering  = "Catering"
	CategorySnack     = "Snack"
	CategoryBakery    = "Bakery"
	CategorySweetDish = "Sweet Dish"
)

// Diet type constants.
const (
	DietVeg    = "Veg"
	DietNonVeg = "Non-Veg"
	DietVegan  = "Vegan"
)

// Payment preference constants.
const (
	PaymentOnline = "Online"
	PaymentCOD    = "COD"
)

// OrderTypes returns all valid order types.
func OrderTypes() []string {
	return []string{OrderTypeDelivery, OrderTypePickup, OrderTypeDineIn}
}

// Categories returns all valid categories.
func Categories() []string {
	return []string{CategoryDish, CategoryCatering, CategorySnack, CategoryBakery, CategorySweetDish}
}

// DietTypes returns all valid diet types.
func DietTypes() []string {
	return []string{DietVeg, DietNonVeg, DietVegan}
}

// Units returns all valid quantity units.
func Units() []string {
	return []string{"kg", "plate", "pcs", "ltr", "gm", "ml", "dozen"}
}

// Cuisines returns all offered cuisines, in menu order. The position in this
// list (1-based) is the cuisine ID the marketplace API expects.
func Cuisines() []string {
	return []string{
		"Breakfast",
		"Indian",
		"Chinese",
		"Punjabi",
		"Gujarati Special",
		"South Indian",
		"Fast Food",
		"North Indian",
		"Italian",
	}
}

// EventStyles returns all valid catering event styles.
func EventStyles() []string {
	return []string{"Buffet", "Sit-down", "Cocktail", "High Tea"}
}

// CategoryCode maps a category to the numeric code the marketplace API expects.
// Returns 0 for an unknown category.
func CategoryCode(category string) int {
	switch category {
	case CategoryDish:
		return 1
	case CategoryCatering:
		return 2
	case CategorySnack:
		return 3
	case CategoryBakery:
		return 4
	case CategorySweetDish:
		return 5
	default:
		return 0
	}
}

// DietCode maps a diet type to the numeric code the marketplace API expects.
// Returns 0 for an unknown diet type.
func DietCode(dietType string) int {
	switch dietType {
	case DietVeg:
		return 1
	case DietNonVeg:
		return 2
	case DietVegan:
		return 3
	default:
		return 0
	}
}

// CuisineCode maps a cuisine name to its 1-based menu position.
// Returns 0 for an unknown cuisine.
func CuisineCode(cuisine string) int {
	for i, c := range Cuisines() {
		if c == cuisine {
			return i + 1
		}
	}
	return 0
}

// OrderTypeSet is the set of fulfillment types selected on a draft.
// The set is never empty on a valid draft; Toggle preserves that invariant.
type OrderTypeSet []string

// Contains reports whether the set includes the given order type.
func (s OrderTypeSet) Contains(orderType string) bool {
	for _, t := range s {
		if t == orderType {
			return true
		}
	}
	return false
}

// Toggle adds the order type if absent, removes it if present, and returns
// the resulting set. Removing the last remaining selection is a no-op: the
// set is returned unchanged so the selection can never become empty. This is
// the transition clients apply on each tap; the server does not toggle
// selections itself, it only validates the resulting set.
func (s OrderTypeSet) Toggle(orderType string) OrderTypeSet {
	if !s.Contains(orderType) {
		return append(append(OrderTypeSet{}, s...), orderType)
	}
	if len(s) == 1 {
		return s
	}
	out := make(OrderTypeSet, 0, len(s)-1)
	for _, t := range s {
		if t != orderType {
			out = append(out, t)
		}
	}
	return out
}

// Draft is the in-progress order form state for one form session.
// It is owned by the client and submitted whole; the service never persists it.
type Draft struct {
	OrderTypes OrderTypeSet `json:"order_types"`
	Category   string       `json:"category"`
	Date       string       `json:"date"` // YYYY-MM-DD
	Time       string       `json:"time"`

	ItemName    string `json:"item_name"`
	DietType    string `json:"diet_type"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
	GuestCount  int    `json:"guest_count"`
	Cuisine     string `json:"cuisine"`

	PaymentPreference string `json:"payment_preference"`

	// Required only when OrderTypes contains Delivery.
	Location string `json:"location,omitempty"`

	// Required only when Category is Catering.
	Budget float64 `json:"budget,omitempty"`

	// Catering-only, optional.
	EventStyle  string `json:"event_style,omitempty"`
	StaffNeeded string `json:"staff_needed,omitempty"` // Yes|No

	// Bakery / Sweet Dish only, optional.
	Size string `json:"size,omitempty"`

	CookingInstructions string `json:"cooking_instructions,omitempty"`

	// Timezone is the client's resolved IANA zone, attached at submit time.
	Timezone string `json:"timezone,omitempty"`
}

// NewDraft returns a draft with the form's default selections.
func NewDraft() Draft {
	return Draft{
		OrderTypes: OrderTypeSet{OrderTypeDelivery},
		Category:   CategoryDish,
		DietType:   DietVeg,
		Quantity:   1,
		Unit:       "plate",
		GuestCount: 1,
	}
}
