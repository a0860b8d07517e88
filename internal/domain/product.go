package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Slug        string            `gorm:"uniqueIndex;size:140"`
	Name        string            `gorm:"size:180"`
	Price       int64             `gorm:"type:bigint;not null;default:0"`
	PromoPrice  int64             `gorm:"type:bigint;default:0"`
	BundlePrice int64             `gorm:"type:bigint;default:0"`
	Category    string            `gorm:"size:100;index"`
	ShortDesc   string            `gorm:"type:text"`
	Active      bool              `gorm:"default:true;index"`
	Brand       string            `gorm:"size:100"`
	Attributes  map[string]string `gorm:"type:jsonb;serializer:json"`
	Images      []Image
	Variations  []Variation
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// KindCount es la cantidad de ejes de variación que declara el producto
// (claves distintas entre todas sus variaciones).
func (p *Product) KindCount() int {
	seen := map[string]struct{}{}
	for _, v := range p.Variations {
		for k := range v.Attributes {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}

type Variation struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ProductID  uuid.UUID         `gorm:"type:uuid;index"`
	SKU        string            `gorm:"size:100;index"`
	Attributes map[string]string `gorm:"type:jsonb;serializer:json"`
	Stock      int               `gorm:"type:int;default:0"`
	ImageURL   string            `gorm:"size:255"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Matches informa si la variación satisface cada par (eje, valor) de la
// selección. Una selección vacía matchea cualquier variación.
func (v Variation) Matches(sel Selection) bool {
	for k, want := range sel {
		got, ok := v.Attributes[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// SameCombination compara la combinación completa de atributos de dos
// variaciones. Dos variaciones del mismo producto nunca deben compartirla.
func (v Variation) SameCombination(other Variation) bool {
	if len(v.Attributes) != len(other.Attributes) {
		return false
	}
	for k, val := range v.Attributes {
		if other.Attributes[k] != val {
			return false
		}
	}
	return true
}

type Image struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;index"`
	URL       string    `gorm:"size:255"`
	Alt       string    `gorm:"size:140"`
	CreatedAt time.Time
}

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Slug      string    `gorm:"uniqueIndex;size:140"`
	Name      string    `gorm:"size:100"`
	Position  int       `gorm:"type:int;default:0"`
	CreatedAt time.Time
}

type AttributeKind struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:80"`
	CreatedAt time.Time

	Values []AttributeValue `gorm:"foreignKey:KindID"`
}

type AttributeValue struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	KindID    uuid.UUID `gorm:"type:uuid;index"`
	Value     string    `gorm:"size:80"`
	CreatedAt time.Time
}

type ProductFilter struct {
	Query    string
	Category string
	Sort     string
	Page     int
	PageSize int
	Active   *bool
}
