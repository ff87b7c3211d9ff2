package order

import "strings"

type CardBrand string

const (
	CardVisa       CardBrand = "VISA"
	CardMastercard CardBrand = "MASTERCARD"
	CardUnknown    CardBrand = "UNKNOWN"
)

// Card is the only card data an order keeps. The full number and the CVV are never stored.
type Card struct {
	Brand    CardBrand
	LastFour string
}

func MaskCard(number string) Card {
	return Card{
		Brand:    DetectCardBrand(number),
		LastFour: LastFour(number),
	}
}

func DetectCardBrand(number string) CardBrand {
	n := sanitizeCardNumber(number)
	if len(n) >= 1 && n[0] == '4' {
		return CardVisa
	}
	if len(n) >= 2 {
		switch {
		case n[0] == '5' && n[1] >= '1' && n[1] <= '5':
			return CardMastercard
		case n[0] == '2' && n[1] >= '2' && n[1] <= '7':
			return CardMastercard
		}
	}
	return CardUnknown
}

func LastFour(number string) string {
	n := sanitizeCardNumber(number)
	if len(n) <= 4 {
		return n
	}
	return n[len(n)-4:]
}

func sanitizeCardNumber(number string) string {
	return strings.Join(strings.Fields(number), "")
}
