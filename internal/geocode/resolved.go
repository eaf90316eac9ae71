package geocode

// Resolved is the outcome of resolving a place or a coordinate pair: the
// geometry plus whichever named components the geocoder could identify.
type Resolved struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"full_address"`
	Area             string  `json:"area,omitempty"`
	City             string  `json:"city,omitempty"`
	State            string  `json:"state,omitempty"`
	Pincode          string  `json:"pincode,omitempty"`
}

// Locked reports which confirmation-form fields came from the geocoder and
// should be read-only. Derived fresh from this result each time; a field the
// geocoder did not return stays editable.
func (r *Resolved) Locked() map[string]bool {
	return map[string]bool{
		"area":    r.Area != "",
		"city":    r.City != "",
		"state":   r.State != "",
		"pincode": r.Pincode != "",
	}
}

// geocodeEntry is the raw shape shared by place details and reverse geocode.
type geocodeEntry struct {
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	AddressComponents []struct {
		LongName string   `json:"long_name"`
		Types    []string `json:"types"`
	} `json:"address_components"`
}

// mapEntry projects a raw geocoder result into a Resolved. When multiple
// components match the same field the first one wins, matching the order the
// geocoder ranks them in.
func mapEntry(e geocodeEntry) *Resolved {
	r := &Resolved{
		Lat:              e.Geometry.Location.Lat,
		Lng:              e.Geometry.Location.Lng,
		FormattedAddress: e.FormattedAddress,
	}
	for _, comp := range e.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "sublocality", "neighborhood":
				if r.Area == "" {
					r.Area = comp.LongName
				}
			case "locality":
				if r.City == "" {
					r.City = comp.LongName
				}
			case "administrative_area_level_1":
				if r.State == "" {
					r.State = comp.LongName
				}
			case "postal_code":
				if r.Pincode == "" {
					r.Pincode = comp.LongName
				}
			}
		}
	}
	return r
}
