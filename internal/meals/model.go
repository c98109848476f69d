package meals

import (
	"time"

	"gorm.io/datatypes"
)

// Delivery states of a daily assignment.
const (
	DeliveryStatusPending   = "PENDING"
	DeliveryStatusDelivered = "DELIVERED"
)

// Meal is a catalog entry.
type Meal struct {
	ID           uint                        `gorm:"column:id;primaryKey" json:"id"`
	Name         string                      `gorm:"column:name;size:255;not null" json:"name"`
	Description  *string                     `gorm:"column:description;type:text" json:"description"`
	MealType     string                      `gorm:"column:meal_type;size:50;not null" json:"meal_type"`
	Ingredients  datatypes.JSONSlice[string] `gorm:"column:ingredients;not null" json:"ingredients"`
	Calories     int                         `gorm:"column:calories;not null" json:"calories"`
	ProteinG     *float64                    `gorm:"column:protein_g" json:"protein_g"`
	CarbsG       *float64                    `gorm:"column:carbs_g" json:"carbs_g"`
	FatsG        *float64                    `gorm:"column:fats_g" json:"fats_g"`
	DietaryTags  datatypes.JSONSlice[string] `gorm:"column:dietary_tags" json:"dietary_tags"`
	IsVegetarian bool                        `gorm:"column:is_vegetarian;not null" json:"is_vegetarian"`
	SpiceLevel   *string                     `gorm:"column:spice_level;size:50" json:"spice_level"`
	IsActive     bool                        `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName exposes the meal catalog table.
func (Meal) TableName() string {
	return "meals"
}

// Assignment is a meal scheduled for one user on one calendar day.
type Assignment struct {
	ID             uint       `gorm:"column:id;primaryKey"`
	UserID         uint       `gorm:"column:user_id;not null;index"`
	MealID         uint       `gorm:"column:meal_id;not null;index"`
	Meal           Meal       `gorm:"foreignKey:MealID;references:ID"`
	AssignmentDate time.Time  `gorm:"column:assignment_date;not null;index"`
	DeliveryStatus string     `gorm:"column:delivery_status;size:50;not null;default:PENDING"`
	DeliveredAt    *time.Time `gorm:"column:delivered_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the assignment table.
func (Assignment) TableName() string {
	return "daily_meal_assignments"
}

// Day returns the calendar day of the assignment in YYYY-MM-DD form.
func (a Assignment) Day() string {
	return a.AssignmentDate.UTC().Format(dateLayout)
}

// NewMeal is the payload for catalog creation.
type NewMeal struct {
	Name         string   `json:"name" binding:"required"`
	Description  *string  `json:"description"`
	MealType     string   `json:"meal_type" binding:"required"`
	Ingredients  []string `json:"ingredients" binding:"required"`
	Calories     int      `json:"calories" binding:"required,gt=0"`
	ProteinG     *float64 `json:"protein_g" binding:"omitempty,gte=0"`
	CarbsG       *float64 `json:"carbs_g" binding:"omitempty,gte=0"`
	FatsG        *float64 `json:"fats_g" binding:"omitempty,gte=0"`
	DietaryTags  []string `json:"dietary_tags"`
	IsVegetarian *bool    `json:"is_vegetarian"`
	SpiceLevel   *string  `json:"spice_level"`
	IsActive     *bool    `json:"is_active"`
}

func (n NewMeal) row() Meal {
	meal := Meal{
		Name:         n.Name,
		Description:  n.Description,
		MealType:     n.MealType,
		Ingredients:  datatypes.NewJSONSlice(n.Ingredients),
		Calories:     n.Calories,
		ProteinG:     n.ProteinG,
		CarbsG:       n.CarbsG,
		FatsG:        n.FatsG,
		SpiceLevel:   n.SpiceLevel,
		IsVegetarian: true,
		IsActive:     true,
	}
	if n.DietaryTags != nil {
		meal.DietaryTags = datatypes.NewJSONSlice(n.DietaryTags)
	}
	if n.IsVegetarian != nil {
		meal.IsVegetarian = *n.IsVegetarian
	}
	if n.IsActive != nil {
		meal.IsActive = *n.IsActive
	}
	return meal
}

// MealUpdate is a partial catalog change. Nil fields are left untouched.
type MealUpdate struct {
	Name         *string   `json:"name"`
	Description  *string   `json:"description"`
	MealType     *string   `json:"meal_type"`
	Ingredients  *[]string `json:"ingredients"`
	Calories     *int      `json:"calories" binding:"omitempty,gt=0"`
	ProteinG     *float64  `json:"protein_g" binding:"omitempty,gte=0"`
	CarbsG       *float64  `json:"carbs_g" binding:"omitempty,gte=0"`
	FatsG        *float64  `json:"fats_g" binding:"omitempty,gte=0"`
	DietaryTags  *[]string `json:"dietary_tags"`
	IsVegetarian *bool     `json:"is_vegetarian"`
	SpiceLevel   *string   `json:"spice_level"`
	IsActive     *bool     `json:"is_active"`
}

func (u MealUpdate) columns() map[string]interface{} {
	updates := map[string]interface{}{}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.MealType != nil {
		updates["meal_type"] = *u.MealType
	}
	if u.Ingredients != nil {
		updates["ingredients"] = datatypes.NewJSONSlice(*u.Ingredients)
	}
	if u.Calories != nil {
		updates["calories"] = *u.Calories
	}
	if u.ProteinG != nil {
		updates["protein_g"] = *u.ProteinG
	}
	if u.CarbsG != nil {
		updates["carbs_g"] = *u.CarbsG
	}
	if u.FatsG != nil {
		updates["fats_g"] = *u.FatsG
	}
	if u.DietaryTags != nil {
		updates["dietary_tags"] = datatypes.NewJSONSlice(*u.DietaryTags)
	}
	if u.IsVegetarian != nil {
		updates["is_vegetarian"] = *u.IsVegetarian
	}
	if u.SpiceLevel != nil {
		updates["spice_level"] = *u.SpiceLevel
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	return updates
}
