package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SIACAML/cooqu-order/internal/domain"
	"github.com/SIACAML/cooqu-order/internal/session"
	"github.com/SIACAML/cooqu-order/internal/upstream"
	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
)

// orderUpstream is the slice of the marketplace client order submission uses.
type orderUpstream interface {
	CreateOrder(ctx context.Context, accessToken string, form *upstream.OrderForm) (string, error)
}

// Receipt is what a successful submission returns to the client. The draft
// itself is never persisted server-side; the client resets its form off this.
type Receipt struct {
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
}

// ValidationFailed carries a field-keyed error map out of draft validation.
type ValidationFailed struct {
	Fields map[string]string
}

func (e *ValidationFailed) Error() string {
	return fmt.Sprintf("draft validation failed on %d field(s)", len(e.Fields))
}

func (e *ValidationFailed) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// OrderService validates drafts and submits them to the marketplace.
type OrderService struct {
	store     session.Store
	upstream  orderUpstream
	maxPhotos int
	logger    *slog.Logger

	nowFunc func() time.Time
}

// NewOrderService creates the order service. maxPhotos caps attachments per
// submission.
func NewOrderService(store session.Store, up orderUpstream, maxPhotos int, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:     store,
		upstream:  up,
		maxPhotos: maxPhotos,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Validate runs draft validation without submitting. Returns a nil map when
// the draft is valid.
func (s *OrderService) Validate(draft *domain.Draft) map[string]string {
	fields := draft.Validate(s.nowFunc())
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Submit gates on a verified session, validates the draft, and performs the
// single upstream create call. On failure the draft stays with the client;
// resubmission is a fresh call.
func (s *OrderService) Submit(ctx context.Context, sid string, draft *domain.Draft, photos []upstream.Photo) (*Receipt, error) {
	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	if !sess.Verified() {
		return nil, apperrors.Unauthorized("verify your phone number before placing an order")
	}

	if fields := s.Validate(draft); fields != nil {
		return nil, &ValidationFailed{Fields: fields}
	}
	if err := s.checkPhotos(photos); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	form := upstream.BuildOrderForm(draft, sess, requestID, s.nowFunc())
	form.AttachPhotos(photos)

	message, err := s.upstream.CreateOrder(ctx, sess.AccessToken, form)
	if err != nil {
		s.logger.WarnContext(ctx, "order submission failed",
			slog.String("session_id", sid),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "order submitted",
		slog.String("session_id", sid),
		slog.String("request_id", requestID),
		slog.Int64("user_id", sess.UserID),
	)
	return &Receipt{RequestID: requestID, Message: message}, nil
}

// checkPhotos enforces the attachment count cap and that every part is an
// image. Size limits are enforced earlier by the multipart reader.
func (s *OrderService) checkPhotos(photos []upstream.Photo) error {
	if len(photos) > s.maxPhotos {
		return apperrors.InvalidInput(fmt.Sprintf("at most %d photos allowed", s.maxPhotos))
	}
	for _, p := range photos {
		if !strings.HasPrefix(p.ContentType, "image/") {
			return apperrors.InvalidInput(fmt.Sprintf("file %q is not an image", p.Filename))
		}
	}
	return nil
}
