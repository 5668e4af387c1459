package subscription

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const dateOnly = "2006-01-02"

// fields - нормализованный набор полей, проверяемый по тегам validate.
type fields struct {
	Name          string  `json:"name" validate:"required,min=2,max=100"`
	Price         float64 `json:"price" validate:"gte=0,lte=9999999999.99"`
	Currency      string  `json:"currency" validate:"oneof=USD EUR GBP TRY"`
	Frequency     string  `json:"frequency" validate:"oneof=daily weekly monthly yearly"`
	Category      string  `json:"category" validate:"required,oneof=sports news entertainment finance lifestyle politics weather health science technology other"`
	PaymentMethod string  `json:"paymentMethod" validate:"required"`
	Status        string  `json:"status" validate:"oneof=active expired cancelled"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Build проверяет входные данные и собирает новую подписку владельца ownerID.
//
// Если renewalDate не передан, он вычисляется как startDate + период,
// и если полученная дата уже в прошлом относительно now, статус становится expired.
// Переданный явно renewalDate никогда не приводит к автоматическому expired.
func Build(in models.SubscriptionInput, ownerID uuid.UUID, now time.Time) (models.Subscription, error) {
	f := fields{
		Name:          strings.TrimSpace(in.Name),
		Currency:      withDefault(strings.TrimSpace(in.Currency), DefaultCurrency),
		Frequency:     withDefault(strings.TrimSpace(in.Frequency), DefaultFrequency),
		Category:      strings.TrimSpace(in.Category),
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Status:        withDefault(strings.TrimSpace(in.Status), DefaultStatus),
	}
	if in.Price != nil {
		f.Price = *in.Price
	}

	verr := &apperr.ValidationError{}
	if err := validate.Struct(f); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				verr.Add(fe.Field(), messageFor(fe))
			}
		} else {
			return models.Subscription{}, err
		}
	}
	if in.Price == nil {
		verr.Add("price", "price is required")
	}

	startDate, startOK := parseDate(in.StartDate)
	switch {
	case strings.TrimSpace(in.StartDate) == "":
		verr.Add("startDate", "startDate is required")
	case !startOK:
		verr.Add("startDate", "startDate must be a valid date")
	case startDate.After(now):
		verr.Add("startDate", "startDate must not be in the future")
	}

	var renewalDate time.Time
	renewalGiven := strings.TrimSpace(in.RenewalDate) != ""
	if renewalGiven {
		var ok bool
		renewalDate, ok = parseDate(in.RenewalDate)
		switch {
		case !ok:
			verr.Add("renewalDate", "renewalDate must be a valid date")
		case startOK && !renewalDate.After(startDate):
			verr.Add("renewalDate", "renewalDate must be after startDate")
		}
	}

	if ownerID == uuid.Nil {
		verr.Add("user", "user is required")
	}

	if err := verr.OrNil(); err != nil {
		return models.Subscription{}, err
	}

	status := f.Status
	if !renewalGiven {
		renewalDate = RenewalDate(startDate, f.Frequency)
		if renewalDate.Before(now) {
			status = StatusExpired
		}
	}

	return models.Subscription{
		ID:            uuid.New(),
		Name:          f.Name,
		Price:         f.Price,
		Currency:      f.Currency,
		Frequency:     f.Frequency,
		Category:      f.Category,
		PaymentMethod: f.PaymentMethod,
		Status:        status,
		StartDate:     startDate,
		RenewalDate:   renewalDate,
		UserID:        ownerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Rebuild применяет к существующей подписке новый набор полей по тем же правилам,
// что и Build, сохраняя идентификатор, владельца и дату создания.
func Rebuild(existing models.Subscription, in models.SubscriptionInput, now time.Time) (models.Subscription, error) {
	sub, err := Build(in, existing.UserID, now)
	if err != nil {
		return models.Subscription{}, err
	}
	sub.ID = existing.ID
	sub.CreatedAt = existing.CreatedAt
	return sub, nil
}

// Cancel переводит подписку в статус cancelled.
func Cancel(sub models.Subscription, now time.Time) (models.Subscription, error) {
	if sub.Status == StatusCancelled {
		return models.Subscription{}, apperr.NewValidation("status", "subscription is already cancelled")
	}
	sub.Status = StatusCancelled
	sub.UpdatedAt = now
	return sub, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func messageFor(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is not valid", field)
	}
}
