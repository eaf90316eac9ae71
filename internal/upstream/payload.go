package upstream

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/SIACAML/cooqu-order/internal/domain"
)

// createdAtLayout is the timestamp format the marketplace API expects for
// Order[created_at].
const createdAtLayout = "2006-01-02 15:04:05"

// addressCountry is fixed: the intake flow serves one country.
const addressCountry = "India"

// Photo is one order attachment, streamed into a repeated file[] part.
type Photo struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// OrderForm is the fully mapped multipart payload for
// order/form-custom-order-create.
type OrderForm struct {
	fields [][2]string
	photos []Photo
}

// BuildOrderForm maps a validated draft plus session state into the upstream
// request shape. The creation timestamp and timezone are stamped here, at
// submit time, not when the draft was started.
func BuildOrderForm(draft *domain.Draft, sess *domain.Session, requestID string, now time.Time) *OrderForm {
	f := &OrderForm{}

	f.add("CustomOrder[co_request_id]", requestID)
	f.add("CustomOrder[co_date]", draft.Date)
	f.add("CustomOrder[co_time]", draft.Time)

	// The fulfillment set travels as a lower-cased comma-joined string.
	types := make([]string, len(draft.OrderTypes))
	for i, t := range draft.OrderTypes {
		types[i] = strings.ToLower(t)
	}
	f.add("CoDeliveryAssign[order_available]", strings.Join(types, ","))

	f.add("CoDetails[0][cuisine_id]", strconv.Itoa(domain.CuisineCode(draft.Cuisine)))
	f.add("CoDetails[0][item_name]", draft.ItemName)
	f.add("CoDetails[0][item_description]", draft.Description)
	f.add("CoDetails[0][die_type]", strconv.Itoa(domain.DietCode(draft.DietType)))
	f.add("CoDetails[0][dish_qty]", fmt.Sprintf("%d %s", draft.Quantity, draft.Unit))
	f.add("CoDetails[0][cooking_instruction]", draft.CookingInstructions)
	f.add("CoDetails[0][number_of_people]", strconv.Itoa(draft.GuestCount))

	tz := draft.Timezone
	if tz == "" {
		tz = now.Location().String()
	}
	f.add("Order[created_at]", now.Format(createdAtLayout))
	f.add("Order[timezone]", tz)

	// Address fields ride along only when the session has a confirmed one.
	if addr := sess.Address; addr != nil {
		f.add("address[lat]", formatCoord(addr.Lat))
		f.add("address[lng]", formatCoord(addr.Lng))
		f.add("address[city]", addr.City)
		f.add("address[state]", addr.State)
		f.add("address[country]", addressCountry)
		f.add("address[place_name]", addr.Area)
		f.add("address[pincode]", addr.Pincode)
		f.add("address[full_address]", addr.FullAddress)
	}

	return f
}

// AttachPhotos appends photo attachments as repeated file[] parts.
func (f *OrderForm) AttachPhotos(photos []Photo) {
	f.photos = append(f.photos, photos...)
}

// Fields returns the mapped form fields in order. Used in tests.
func (f *OrderForm) Fields() [][2]string {
	return f.fields
}

// Encode writes the multipart body to w and returns its content type.
func (f *OrderForm) Encode(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)

	for _, kv := range f.fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return "", fmt.Errorf("write field %s: %w", kv[0], err)
		}
	}

	for _, photo := range f.photos {
		part, err := createFilePart(mw, photo)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(part, photo.Data); err != nil {
			return "", fmt.Errorf("copy photo %s: %w", photo.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}
	return mw.FormDataContentType(), nil
}

// createFilePart opens a file[] part carrying the photo's own content type
// rather than the application/octet-stream CreateFormFile would set.
func createFilePart(mw *multipart.Writer, photo Photo) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file[]"; filename=%q`, photo.Filename))
	h.Set("Content-Type", photo.ContentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create photo part %s: %w", photo.Filename, err)
	}
	return part, nil
}

func (f *OrderForm) add(name, value string) {
	f.fields = append(f.fields, [2]string{name, value})
}

// formatCoord renders a coordinate without scientific notation or trailing zeros.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
