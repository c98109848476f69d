package users

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// User is the persisted identity row. GoogleID is the only key correlated
// with the external authority; Email may change upstream without breaking login.
type User struct {
	ID                uint                        `gorm:"column:id;primaryKey" json:"id"`
	GoogleID          string                      `gorm:"column:google_id;size:255;not null;uniqueIndex" json:"google_id"`
	Email             string                      `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	Name              string                      `gorm:"column:name;size:255;not null" json:"name"`
	Age               *int                        `gorm:"column:age" json:"age"`
	Gender            *string                     `gorm:"column:gender;size:50" json:"gender"`
	HeightCM          *float64                    `gorm:"column:height_cm" json:"height_cm"`
	WeightKG          *float64                    `gorm:"column:weight_kg" json:"weight_kg"`
	DietaryPreference *string                     `gorm:"column:dietary_preference;size:50" json:"dietary_preference"`
	SpiceLevel        *string                     `gorm:"column:spice_level;size:50" json:"spice_level"`
	Allergies         datatypes.JSONSlice[string] `gorm:"column:allergies" json:"allergies"`
	DislikedFoods     datatypes.JSONSlice[string] `gorm:"column:disliked_foods" json:"disliked_foods"`
	HealthConditions  datatypes.JSONSlice[string] `gorm:"column:health_conditions" json:"health_conditions"`
	HealthGoals       *string                     `gorm:"column:health_goals;size:100" json:"health_goals"`
	IsAdmin           bool                        `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName exposes the table backing user identities.
func (User) TableName() string {
	return "users"
}

// ProfileUpdate carries a partial profile change. Nil fields are left untouched.
type ProfileUpdate struct {
	Name              *string   `json:"name"`
	Age               *int      `json:"age" binding:"omitempty,gte=0"`
	Gender            *string   `json:"gender"`
	HeightCM          *float64  `json:"height_cm" binding:"omitempty,gt=0"`
	WeightKG          *float64  `json:"weight_kg" binding:"omitempty,gt=0"`
	DietaryPreference *string   `json:"dietary_preference"`
	SpiceLevel        *string   `json:"spice_level"`
	Allergies         *[]string `json:"allergies"`
	DislikedFoods     *[]string `json:"disliked_foods"`
	HealthConditions  *[]string `json:"health_conditions"`
	HealthGoals       *string   `json:"health_goals"`
}

// columns maps the fields present in the update to their column names.
func (u ProfileUpdate) columns() map[string]interface{} {
	updates := map[string]interface{}{}
	if u.Name != nil {
		updates["name"] = normalize(*u.Name)
	}
	if u.Age != nil {
		updates["age"] = *u.Age
	}
	if u.Gender != nil {
		updates["gender"] = *u.Gender
	}
	if u.HeightCM != nil {
		updates["height_cm"] = *u.HeightCM
	}
	if u.WeightKG != nil {
		updates["weight_kg"] = *u.WeightKG
	}
	if u.DietaryPreference != nil {
		updates["dietary_preference"] = *u.DietaryPreference
	}
	if u.SpiceLevel != nil {
		updates["spice_level"] = *u.SpiceLevel
	}
	if u.Allergies != nil {
		updates["allergies"] = datatypes.NewJSONSlice(*u.Allergies)
	}
	if u.DislikedFoods != nil {
		updates["disliked_foods"] = datatypes.NewJSONSlice(*u.DislikedFoods)
	}
	if u.HealthConditions != nil {
		updates["health_conditions"] = datatypes.NewJSONSlice(*u.HealthConditions)
	}
	if u.HealthGoals != nil {
		updates["health_goals"] = *u.HealthGoals
	}
	return updates
}

// QuizSubmission captures the personalization quiz. TargetWeightKG and
// ActivityLevel are accepted from clients but not stored.
type QuizSubmission struct {
	DietaryPreference string   `json:"dietary_preference" binding:"required"`
	SpiceLevel        string   `json:"spice_level" binding:"required"`
	Allergies         []string `json:"allergies"`
	DislikedFoods     []string `json:"disliked_foods"`
	HealthConditions  []string `json:"health_conditions"`
	HealthGoals       string   `json:"health_goals" binding:"required"`
	TargetWeightKG    *float64 `json:"target_weight_kg"`
	ActivityLevel     *string  `json:"activity_level"`
}

func (q QuizSubmission) profileUpdate() ProfileUpdate {
	allergies := nonNil(q.Allergies)
	disliked := nonNil(q.DislikedFoods)
	conditions := nonNil(q.HealthConditions)
	return ProfileUpdate{
		DietaryPreference: &q.DietaryPreference,
		SpiceLevel:        &q.SpiceLevel,
		Allergies:         &allergies,
		DislikedFoods:     &disliked,
		HealthConditions:  &conditions,
		HealthGoals:       &q.HealthGoals,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}
