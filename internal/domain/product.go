package domain

import "time"

// Product categories. The set is closed; anything else is rejected at validation.
const (
	CategoryMomo    = "momo"
	CategorySausage = "sausage"
	CategorySekuwa  = "sekuwa"
	CategorySoup    = "soup"
	CategorySnack   = "snack"
	CategorySauce   = "sauce"
	CategoryCombo   = "combo"
)

var Categories = []string{
	CategoryMomo, CategorySausage, CategorySekuwa, CategorySoup,
	CategorySnack, CategorySauce, CategoryCombo,
}

func IsCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Product struct {
	ProductID   string    `json:"id" dynamodbav:"product_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Description string    `json:"description" dynamodbav:"description"`
	Price       float64   `json:"price" dynamodbav:"price"`
	Category    string    `json:"category" dynamodbav:"category"`
	Rating      float64   `json:"rating" dynamodbav:"rating"`
	ReviewCount int       `json:"review_count" dynamodbav:"review_count"`
	Stock       int       `json:"stock" dynamodbav:"stock"`
	InStock     bool      `json:"in_stock" dynamodbav:"in_stock"`
	Featured    bool      `json:"featured" dynamodbav:"featured"`
	Unit        string    `json:"unit,omitempty" dynamodbav:"unit"`
	Weight      string    `json:"weight,omitempty" dynamodbav:"weight"`
	ImageURL    string    `json:"image_url,omitempty" dynamodbav:"image_url"`
	ImageKey    string    `json:"-" dynamodbav:"image_key,omitempty"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

type ProductInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=4000"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Category    string  `json:"category" validate:"required,oneof=momo sausage sekuwa soup snack sauce combo"`
	Rating      float64 `json:"rating" validate:"min=0,max=5"`
	ReviewCount int     `json:"review_count" validate:"min=0"`
	Stock       int     `json:"stock" validate:"min=0"`
	InStock     *bool   `json:"in_stock"`
	Featured    bool    `json:"featured"`
	Unit        string  `json:"unit" validate:"max=60"`
	Weight      string  `json:"weight" validate:"max=60"`
}

// ProductUpdate is a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name        *string  `json:"name" validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=4000"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Category    *string  `json:"category" validate:"omitempty,oneof=momo sausage sekuwa soup snack sauce combo"`
	Rating      *float64 `json:"rating" validate:"omitempty,min=0,max=5"`
	ReviewCount *int     `json:"review_count" validate:"omitempty,min=0"`
	Stock       *int     `json:"stock" validate:"omitempty,min=0"`
	InStock     *bool    `json:"in_stock"`
	Featured    *bool    `json:"featured"`
	Unit        *string  `json:"unit" validate:"omitempty,max=60"`
	Weight      *string  `json:"weight" validate:"omitempty,max=60"`
}

// ProductFilter narrows a catalog listing. Zero values mean "any".
type ProductFilter struct {
	Category string
	Featured *bool
	InStock  *bool
	Query    string
}
