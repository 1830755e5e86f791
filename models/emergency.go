package models

import (
	"time"
)

// Emergency types
const (
	EmergencyTypeCapacity   = "capacity"
	EmergencyTypeSecurity   = "security"
	EmergencyTypeWeather    = "weather"
	EmergencyTypeMedical    = "medical"
	EmergencyTypeEvacuation = "evacuation"
	EmergencyTypeSystem     = "system"
)

var emergencyTypes = map[string]bool{
	EmergencyTypeCapacity:   true,
	EmergencyTypeSecurity:   true,
	EmergencyTypeWeather:    true,
	EmergencyTypeMedical:    true,
	EmergencyTypeEvacuation: true,
	EmergencyTypeSystem:     true,
}

// IsValidEmergencyType reports whether t is one of the recognized emergency types.
func IsValidEmergencyType(t string) bool {
	return emergencyTypes[t]
}

// EmergencyState is the per-event emergency document stored inside the event config.
// When IsActive is false every other field is zero.
type EmergencyState struct {
	IsActive      bool         `json:"isActive" bson:"isActive"`
	Type          string       `json:"type,omitempty" bson:"type,omitempty"`
	Reason        string       `json:"reason,omitempty" bson:"reason,omitempty"`
	ActivatedAt   time.Time    `json:"activatedAt,omitempty" bson:"activatedAt,omitempty"`
	ActivatedBy   string       `json:"activatedBy,omitempty" bson:"activatedBy,omitempty"`
	AffectedAreas []string     `json:"affectedAreas,omitempty" bson:"affectedAreas,omitempty"`
	Restrictions  Restrictions `json:"restrictions" bson:"restrictions"`
}

type Restrictions struct {
	CheckinsDisabled  bool     `json:"checkinsDisabled" bson:"checkinsDisabled"`
	ClosedGates       []string `json:"closedGates" bson:"closedGates"`
	BlockedCategories []string `json:"blockedCategories" bson:"blockedCategories"`
	StaffOnlyMode     bool     `json:"staffOnlyMode" bson:"staffOnlyMode"`
}

// InactiveEmergencyState returns the cleared variant written on deactivation.
func InactiveEmergencyState() EmergencyState {
	return EmergencyState{
		Restrictions: Restrictions{
			ClosedGates:       []string{},
			BlockedCategories: []string{},
		},
	}
}

// Clone returns a deep copy so callers never share slices with a store.
func (s EmergencyState) Clone() EmergencyState {
	out := s
	out.AffectedAreas = cloneStrings(s.AffectedAreas)
	out.Restrictions.ClosedGates = cloneStrings(s.Restrictions.ClosedGates)
	out.Restrictions.BlockedCategories = cloneStrings(s.Restrictions.BlockedCategories)
	return out
}

// HasBlockedCategory reports whether category is already blocked.
func (s EmergencyState) HasBlockedCategory(category string) bool {
	for _, c := range s.Restrictions.BlockedCategories {
		if c == category {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Request DTOs
type ActivateEmergencyRequest struct {
	Type          string              `json:"type" validate:"required,emergency_type"`
	Reason        string              `json:"reason" validate:"required,min=1,max=500"`
	AffectedAreas []string            `json:"affectedAreas" validate:"omitempty,dive,required"`
	Restrictions  RestrictionsRequest `json:"restrictions"`
}

// NormalizedAreas returns the affected areas without blanks or duplicates.
func (r ActivateEmergencyRequest) NormalizedAreas() []string {
	return uniqueStrings(r.AffectedAreas)
}

type RestrictionsRequest struct {
	CheckinsDisabled  bool     `json:"checkinsDisabled"`
	ClosedGates       []string `json:"closedGates" validate:"omitempty,dive,required"`
	BlockedCategories []string `json:"blockedCategories" validate:"omitempty,dive,required"`
	StaffOnlyMode     bool     `json:"staffOnlyMode"`
}

// ToRestrictions normalizes the request into a Restrictions value with set semantics.
func (r RestrictionsRequest) ToRestrictions() Restrictions {
	return Restrictions{
		CheckinsDisabled:  r.CheckinsDisabled,
		ClosedGates:       uniqueStrings(r.ClosedGates),
		BlockedCategories: uniqueStrings(r.BlockedCategories),
		StaffOnlyMode:     r.StaffOnlyMode,
	}
}

type BlockCategoryRequest struct {
	Category string `json:"category" validate:"required,min=1,max=100"`
}

type BroadcastAlertRequest struct {
	Message  string `json:"message" validate:"required,min=1,max=1000"`
	Priority string `json:"priority" validate:"omitempty,alert_priority"`
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
