package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar format used on the wire and in validation.
const DateLayout = "2006-01-02"

const minDescriptionLen = 10

// Validate checks the whole draft and returns field-keyed error messages.
// An empty map means the draft is valid.
//
// Conditional rules (Delivery -> location, Catering -> budget) derive from
// the draft's current order types and category, so callers must re-validate
// whenever either changes; nothing here is cached.
func (d *Draft) Validate(now time.Time) map[string]string {
	errs := make(map[string]string)

	if len(d.OrderTypes) == 0 {
		errs["order_types"] = "select at least one order type"
	} else {
		for _, t := range d.OrderTypes {
			if !contains(OrderTypes(), t) {
				errs["order_types"] = fmt.Sprintf("unknown order type %q", t)
				break
			}
		}
	}

	if !contains(Categories(), d.Category) {
		errs["category"] = "select a valid category"
	}

	if d.Date == "" {
		errs["date"] = "please select a date"
	} else if date, err := time.ParseInLocation(DateLayout, d.Date, now.Location()); err != nil {
		errs["date"] = "date must be in YYYY-MM-DD format"
	} else {
		// Today at local midnight is the boundary: today passes, yesterday fails.
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if date.Before(midnight) {
			errs["date"] = "date must not be in the past"
		}
	}

	if strings.TrimSpace(d.Time) == "" {
		errs["time"] = "please select a time"
	}

	if len(strings.TrimSpace(d.ItemName)) < 2 {
		errs["item_name"] = "item name is required"
	}

	if !contains(DietTypes(), d.DietType) {
		errs["diet_type"] = "select a valid diet type"
	}

	if d.Quantity < 1 {
		errs["quantity"] = "quantity must be at least 1"
	}

	if !contains(Units(), d.Unit) {
		errs["unit"] = "select a valid unit"
	}

	if len(strings.TrimSpace(d.Description)) < minDescriptionLen {
		errs["description"] = fmt.Sprintf("please provide a brief description (min %d chars)", minDescriptionLen)
	}

	if d.GuestCount < 1 {
		errs["guest_count"] = "at least 1 guest required"
	}

	if d.Cuisine == "" {
		errs["cuisine"] = "please select a cuisine"
	} else if CuisineCode(d.Cuisine) == 0 {
		errs["cuisine"] = "select a valid cuisine"
	}

	if d.PaymentPreference != PaymentOnline && d.PaymentPreference != PaymentCOD {
		errs["payment_preference"] = "select a payment preference"
	}

	// Delivery requires a usable address line. Enforced here, not as a type
	// constraint, because required-ness depends on the selected order types.
	if d.OrderTypes.Contains(OrderTypeDelivery) {
		if len(strings.TrimSpace(d.Location)) < 5 {
			errs["location"] = "delivery address is required"
		}
	}

	if d.Category == CategoryCatering {
		if d.Budget <= 0 {
			errs["budget"] = "budget is required for catering"
		}
		if d.EventStyle != "" && !contains(EventStyles(), d.EventStyle) {
			errs["event_style"] = "select a valid event style"
		}
		if d.StaffNeeded != "" && d.StaffNeeded != "Yes" && d.StaffNeeded != "No" {
			errs["staff_needed"] = "must be Yes or No"
		}
	}

	return errs
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
