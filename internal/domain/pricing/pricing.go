package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeFee     = errors.New("pricing: fees must be zero or greater")
	ErrNegativePrice   = errors.New("pricing: price must be zero or greater")
	ErrInvalidCurrency = errors.New("pricing: currency must be a 3-letter code")
)

// FeeSchedule is the process-wide fee configuration applied to every new order.
// All amounts are integer minor currency units.
type FeeSchedule struct {
	BaseFee     int64
	DeliveryFee int64
	Currency    string
}

// Quote is the frozen price breakdown of a single order.
type Quote struct {
	ProductAmount int64
	BaseFee       int64
	DeliveryFee   int64
	Total         int64
	Currency      string
}

// ComputeTotal adds the product price and the fees.
func ComputeTotal(productPrice, baseFee, deliveryFee int64) int64 {
	return productPrice + baseFee + deliveryFee
}

func (s FeeSchedule) Validate() error {
	if s.BaseFee < 0 || s.DeliveryFee < 0 {
		return ErrNegativeFee
	}
	if len(s.Currency) != 3 {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, s.Currency)
	}
	return nil
}

// Quote prices a product under this schedule. The price must come from the catalog,
// never from the client.
func (s FeeSchedule) Quote(productPrice int64) (Quote, error) {
	if productPrice < 0 {
		return Quote{}, ErrNegativePrice
	}
	return Quote{
		ProductAmount: productPrice,
		BaseFee:       s.BaseFee,
		DeliveryFee:   s.DeliveryFee,
		Total:         ComputeTotal(productPrice, s.BaseFee, s.DeliveryFee),
		Currency:      s.Currency,
	}, nil
}
