package httppresentation

import (
	"time"

	apporder "github.com/JulianR23/Vertex-Store/internal/application/order"
	apppayment "github.com/JulianR23/Vertex-Store/internal/application/payment"
	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	"github.com/JulianR23/Vertex-Store/internal/domain/product"
)

type cardRequest struct {
	Number       string `json:"number"`
	Holder       string `json:"holder"`
	ExpMonth     string `json:"expMonth"`
	ExpYear      string `json:"expYear"`
	CVC          string `json:"cvc"`
	Installments int    `json:"installments"`
}

type customerRequest struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	DocumentNumber string `json:"documentNumber"`
}

type deliveryRequest struct {
	AddressLine   string `json:"addressLine"`
	City          string `json:"city"`
	Department    string `json:"department"`
	PostalCode    string `json:"postalCode"`
	RecipientName string `json:"recipientName"`
}

type createOrderRequest struct {
	ProductID string          `json:"productId"`
	Card      cardRequest     `json:"card"`
	Customer  customerRequest `json:"customer"`
	Delivery  deliveryRequest `json:"delivery"`
}

func (r createOrderRequest) toInput() apporder.CreateOrderInput {
	return apporder.CreateOrderInput{
		ProductID: r.ProductID,
		Card: apporder.CardInput{
			Number:       r.Card.Number,
			Holder:       r.Card.Holder,
			ExpMonth:     r.Card.ExpMonth,
			ExpYear:      r.Card.ExpYear,
			CVC:          r.Card.CVC,
			Installments: r.Card.Installments,
		},
		Customer: apporder.CustomerInput{
			FullName:       r.Customer.FullName,
			Email:          r.Customer.Email,
			PhoneNumber:    r.Customer.PhoneNumber,
			DocumentNumber: r.Customer.DocumentNumber,
		},
		Delivery: apporder.DeliveryInput{
			AddressLine:   r.Delivery.AddressLine,
			City:          r.Delivery.City,
			Department:    r.Delivery.Department,
			PostalCode:    r.Delivery.PostalCode,
			RecipientName: r.Delivery.RecipientName,
		},
	}
}

type updateStatusRequest struct {
	Status               string `json:"status"`
	GatewayTransactionID string `json:"gatewayTransactionId"`
	FailureReason        string `json:"failureReason"`
}

type chargeRequest struct {
	CardToken    string `json:"cardToken"`
	Installments int    `json:"installments"`
}

type chargeResponse struct {
	OrderID              string `json:"orderId"`
	Reference            string `json:"reference"`
	GatewayTransactionID string `json:"gatewayTransactionId"`
	GatewayStatus        string `json:"gatewayStatus"`
}

func toChargeResponse(r *apppayment.ChargeOrderResult) chargeResponse {
	return chargeResponse{
		OrderID:              r.OrderID,
		Reference:            r.Reference,
		GatewayTransactionID: r.GatewayTransactionID,
		GatewayStatus:        string(r.GatewayStatus),
	}
}

type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProductResponse(p *product.Product) *productResponse {
	if p == nil {
		return nil
	}
	return &productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Stock:       p.Stock,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type customerResponse struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type deliveryResponse struct {
	ID            string `json:"id"`
	AddressLine   string `json:"addressLine"`
	City          string `json:"city"`
	Department    string `json:"department"`
	PostalCode    string `json:"postalCode,omitempty"`
	RecipientName string `json:"recipientName,omitempty"`
	Status        string `json:"status"`
}

type orderResponse struct {
	ID                   string            `json:"id"`
	Reference            string            `json:"reference"`
	Status               string            `json:"status"`
	GatewayTransactionID string            `json:"gatewayTransactionId,omitempty"`
	ProductAmount        int64             `json:"productAmount"`
	BaseFee              int64             `json:"baseFee"`
	DeliveryFee          int64             `json:"deliveryFee"`
	Total                int64             `json:"total"`
	Currency             string            `json:"currency"`
	CardBrand            string            `json:"cardBrand"`
	CardLastFour         string            `json:"cardLastFour"`
	Installments         int               `json:"installments"`
	FailureReason        string            `json:"failureReason,omitempty"`
	Product              *productResponse  `json:"product,omitempty"`
	Customer             *customerResponse `json:"customer,omitempty"`
	Delivery             *deliveryResponse `json:"delivery,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

func toOrderResponse(d *apporder.OrderDetails) orderResponse {
	o := d.Order
	resp := orderResponse{
		ID:                   o.ID,
		Reference:            o.Reference,
		Status:               string(o.Status),
		GatewayTransactionID: o.GatewayTransactionID,
		ProductAmount:        o.ProductAmount,
		BaseFee:              o.BaseFee,
		DeliveryFee:          o.DeliveryFee,
		Total:                o.Total,
		Currency:             o.Currency,
		CardBrand:            string(o.CardBrand),
		CardLastFour:         o.CardLastFour,
		Installments:         o.Installments,
		FailureReason:        o.FailureReason,
		Product:              toProductResponse(d.Product),
		Delivery:             toDeliveryResponse(o.Delivery),
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	if c := d.Customer; c != nil {
		resp.Customer = &customerResponse{ID: c.ID, FullName: c.FullName, Email: c.Email}
	}
	return resp
}

func toDeliveryResponse(d *domorder.Delivery) *deliveryResponse {
	if d == nil {
		return nil
	}
	return &deliveryResponse{
		ID:            d.ID,
		AddressLine:   d.AddressLine,
		City:          d.City,
		Department:    d.Department,
		PostalCode:    d.PostalCode,
		RecipientName: d.RecipientName,
		Status:        string(d.Status),
	}
}
