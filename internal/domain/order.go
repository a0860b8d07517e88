package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusDispatched OrderStatus = "dispatched"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Las órdenes son contraentrega: no hay pago online, el estado avanza a mano
// desde el panel de administración.
type Order struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Status        OrderStatus `gorm:"type:varchar(30);index"`
	Items         []OrderItem
	Email         string     `gorm:"size:140"`
	Name          string     `gorm:"size:140"`
	Phone         string     `gorm:"size:50"`
	Cedula        string     `gorm:"size:30"`
	Departamento  string     `gorm:"size:80"`
	Ciudad        string     `gorm:"size:100"`
	Barrio        string     `gorm:"size:100"`
	Address       string     `gorm:"size:255"`
	DeliveryNotes string     `gorm:"type:text"`
	CustomerID    *uuid.UUID `gorm:"type:uuid;index"`
	Total         int64      `gorm:"type:bigint;default:0"`
	ShippingCost  int64      `gorm:"type:bigint;default:0"`
	Notified      bool       `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID         `gorm:"type:uuid;index"`
	ProductID     *uuid.UUID        `gorm:"type:uuid;index"`
	VariationID   *uuid.UUID        `gorm:"type:uuid;index"`
	Title         string            `gorm:"size:180"`
	SKU           string            `gorm:"size:120"`
	Attributes    map[string]string `gorm:"type:jsonb;serializer:json"`
	Qty           int               `gorm:"not null"`
	UnitPrice     int64             `gorm:"type:bigint;default:0"`
	LineTotal     int64             `gorm:"type:bigint;default:0"`
	BundleApplied bool              `gorm:"not null;default:false"`
}

// OrderLineRequest es lo que el checkout entrega al creador de órdenes una
// vez que la selección quedó resuelta a una variación concreta con stock.
type OrderLineRequest struct {
	VariationID uuid.UUID
	Quantity    int
}
