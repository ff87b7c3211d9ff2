package gormstore

import (
	"time"

	domcustomer "github.com/JulianR23/Vertex-Store/internal/domain/customer"
	domorder "github.com/JulianR23/Vertex-Store/internal/domain/order"
	domproduct "github.com/JulianR23/Vertex-Store/internal/domain/product"
)

type productModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:200;not null"`
	Description string `gorm:"type:text"`
	ImageURL    string `gorm:"size:500"`
	Price       int64  `gorm:"not null"`
	Stock       int    `gorm:"not null;default:0;check:chk_products_stock,stock >= 0"`
	Active      bool   `gorm:"not null;default:true;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (productModel) TableName() string { return "products" }

type customerModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	FullName       string `gorm:"size:100;not null"`
	Email          string `gorm:"size:254;not null;uniqueIndex:idx_customers_email"`
	PhoneNumber    string `gorm:"size:20"`
	DocumentNumber string `gorm:"size:20"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (customerModel) TableName() string { return "customers" }

type orderModel struct {
	ID                   string         `gorm:"primaryKey;size:36"`
	GatewayTransactionID *string        `gorm:"size:64;uniqueIndex:idx_orders_gateway_tx"`
	Reference            string         `gorm:"size:64;not null;uniqueIndex:idx_orders_reference"`
	Status               string         `gorm:"size:16;not null;index:idx_orders_status_created,priority:1"`
	ProductAmount        int64          `gorm:"not null"`
	BaseFee              int64          `gorm:"not null"`
	DeliveryFee          int64          `gorm:"not null"`
	Total                int64          `gorm:"not null"`
	Currency             string         `gorm:"size:3;not null"`
	CardBrand            string         `gorm:"size:16"`
	CardLastFour         string         `gorm:"size:4"`
	Installments         int            `gorm:"not null;default:1"`
	FailureReason        string         `gorm:"size:255"`
	ProductID            string         `gorm:"size:36;not null;index"`
	CustomerID           string         `gorm:"size:36;not null;index"`
	Delivery             *deliveryModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time      `gorm:"index:idx_orders_status_created,priority:2"`
	UpdatedAt            time.Time
}

func (orderModel) TableName() string { return "orders" }

type deliveryModel struct {
	ID            string `gorm:"primaryKey;size:36"`
	OrderID       string `gorm:"size:36;not null;uniqueIndex"`
	AddressLine   string `gorm:"size:200;not null"`
	City          string `gorm:"size:100;not null"`
	Department    string `gorm:"size:100;not null"`
	PostalCode    string `gorm:"size:20"`
	RecipientName string `gorm:"size:100"`
	Status        string `gorm:"size:16;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (deliveryModel) TableName() string { return "deliveries" }

func toProductModel(p *domproduct.Product) productModel {
	return productModel{
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

func (m productModel) toDomain() *domproduct.Product {
	return &domproduct.Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		ImageURL:    m.ImageURL,
		Price:       m.Price,
		Stock:       m.Stock,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toCustomerModel(c *domcustomer.Customer) customerModel {
	return customerModel{
		ID:             c.ID,
		FullName:       c.FullName,
		Email:          domcustomer.NormalizeEmail(c.Email),
		PhoneNumber:    c.PhoneNumber,
		DocumentNumber: c.DocumentNumber,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (m customerModel) toDomain() *domcustomer.Customer {
	return &domcustomer.Customer{
		ID:             m.ID,
		FullName:       m.FullName,
		Email:          m.Email,
		PhoneNumber:    m.PhoneNumber,
		DocumentNumber: m.DocumentNumber,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toOrderModel(o *domorder.Order) orderModel {
	m := orderModel{
		ID:                   o.ID,
		GatewayTransactionID: nullable(o.GatewayTransactionID),
		Reference:            o.Reference,
		Status:               string(o.Status),
		ProductAmount:        o.ProductAmount,
		BaseFee:              o.BaseFee,
		DeliveryFee:          o.DeliveryFee,
		Total:                o.Total,
		Currency:             o.Currency,
		CardBrand:            string(o.CardBrand),
		CardLastFour:         o.CardLastFour,
		Installments:         o.Installments,
		FailureReason:        o.FailureReason,
		ProductID:            o.ProductID,
		CustomerID:           o.CustomerID,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	if d := o.Delivery; d != nil {
		m.Delivery = &deliveryModel{
			ID:            d.ID,
			OrderID:       o.ID,
			AddressLine:   d.AddressLine,
			City:          d.City,
			Department:    d.Department,
			PostalCode:    d.PostalCode,
			RecipientName: d.RecipientName,
			Status:        string(d.Status),
			CreatedAt:     d.CreatedAt,
			UpdatedAt:     d.UpdatedAt,
		}
	}
	return m
}

func (m orderModel) toDomain() *domorder.Order {
	o := &domorder.Order{
		ID:            m.ID,
		Reference:     m.Reference,
		Status:        domorder.Status(m.Status),
		ProductAmount: m.ProductAmount,
		BaseFee:       m.BaseFee,
		DeliveryFee:   m.DeliveryFee,
		Total:         m.Total,
		Currency:      m.Currency,
		CardBrand:     domorder.CardBrand(m.CardBrand),
		CardLastFour:  m.CardLastFour,
		Installments:  m.Installments,
		FailureReason: m.FailureReason,
		ProductID:     m.ProductID,
		CustomerID:    m.CustomerID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.GatewayTransactionID != nil {
		o.GatewayTransactionID = *m.GatewayTransactionID
	}
	if d := m.Delivery; d != nil {
		o.Delivery = &domorder.Delivery{
			ID:      d.ID,
			OrderID: d.OrderID,
			Address: domorder.Address{
				AddressLine:   d.AddressLine,
				City:          d.City,
				Department:    d.Department,
				PostalCode:    d.PostalCode,
				RecipientName: d.RecipientName,
			},
			Status:    domorder.DeliveryStatus(d.Status),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		}
	}
	return o
}
