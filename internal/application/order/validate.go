package order

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JulianR23/Vertex-Store/internal/application"
	domain "github.com/JulianR23/Vertex-Store/internal/domain/order"
)

var (
	cardNumberPattern = regexp.MustCompile(`^[0-9]{13,19}$`)
	cvcPattern        = regexp.MustCompile(`^[0-9]{3,4}$`)
	monthPattern      = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	yearPattern       = regexp.MustCompile(`^[0-9]{4}$`)
)

// CardInput is the raw card as typed by the buyer. Only the brand and last four
// digits survive past validation.
type CardInput struct {
	Number       string
	Holder       string
	ExpMonth     string
	ExpYear      string
	CVC          string
	Installments int
}

type CustomerInput struct {
	FullName       string
	Email          string
	PhoneNumber    string
	DocumentNumber string
}

type DeliveryInput struct {
	AddressLine   string
	City          string
	Department    string
	PostalCode    string
	RecipientName string
}

type CreateOrderInput struct {
	ProductID string
	Card      CardInput
	Customer  CustomerInput
	Delivery  DeliveryInput
}

func lengthBetween(field, value string, min, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min || n > max {
		return application.Invalid(field, "must be between %d and %d characters", min, max)
	}
	return nil
}

// Validate checks the request shape. It never consults stores.
func (in CreateOrderInput) Validate(now time.Time) error {
	if _, err := uuid.Parse(in.ProductID); err != nil {
		return application.Invalid("productId", "must be a UUID")
	}

	number := strings.Join(strings.Fields(in.Card.Number), "")
	if !cardNumberPattern.MatchString(number) {
		return application.Invalid("card.number", "must be 13 to 19 digits")
	}
	if err := lengthBetween("card.holder", in.Card.Holder, 2, 100); err != nil {
		return err
	}
	if !monthPattern.MatchString(in.Card.ExpMonth) {
		return application.Invalid("card.expMonth", "must be 01 to 12")
	}
	if !yearPattern.MatchString(in.Card.ExpYear) {
		return application.Invalid("card.expYear", "must be a 4 digit year")
	}
	year, _ := strconv.Atoi(in.Card.ExpYear)
	month, _ := strconv.Atoi(in.Card.ExpMonth)
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return application.Invalid("card.expYear", "card is expired")
	}
	if !cvcPattern.MatchString(in.Card.CVC) {
		return application.Invalid("card.cvc", "must be 3 or 4 digits")
	}
	if in.Card.Installments < 0 || in.Card.Installments > domain.MaxInstallments {
		return application.Invalid("card.installments", "must be between 1 and %d", domain.MaxInstallments)
	}

	if err := lengthBetween("customer.fullName", in.Customer.FullName, 2, 100); err != nil {
		return err
	}
	if addr, err := mail.ParseAddress(in.Customer.Email); err != nil || addr.Address != strings.TrimSpace(in.Customer.Email) {
		return application.Invalid("customer.email", "must be a valid email address")
	}
	if err := lengthBetween("customer.phoneNumber", in.Customer.PhoneNumber, 7, 20); err != nil {
		return err
	}
	if err := lengthBetween("customer.documentNumber", in.Customer.DocumentNumber, 5, 20); err != nil {
		return err
	}

	if err := lengthBetween("delivery.addressLine", in.Delivery.AddressLine, 5, 200); err != nil {
		return err
	}
	if err := lengthBetween("delivery.city", in.Delivery.City, 2, 100); err != nil {
		return err
	}
	if err := lengthBetween("delivery.department", in.Delivery.Department, 2, 100); err != nil {
		return err
	}
	if err := lengthBetween("delivery.postalCode", in.Delivery.PostalCode, 0, 20); err != nil {
		return err
	}
	if in.Delivery.RecipientName != "" {
		if err := lengthBetween("delivery.recipientName", in.Delivery.RecipientName, 2, 100); err != nil {
			return err
		}
	}
	return nil
}
