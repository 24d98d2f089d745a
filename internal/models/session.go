// Package models contains data models for the auth service.
package models

import "time"

// Plan tiers. Stored on the user record and snapshotted into sessions.
const (
	PlanFree       = "free"
	PlanPremium    = "premium"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
	PlanAdmin      = "admin"
	PlanStaff      = "staff"
)

// adminPlans are plans allowed through the admin gate.
var adminPlans = map[string]bool{
	PlanAdmin: true,
	PlanStaff: true,
}

// premiumPlans are plans allowed through the premium gate. Admin tiers are
// included so staff accounts can exercise paid features.
var premiumPlans = map[string]bool{
	PlanPremium:    true,
	PlanPro:        true,
	PlanEnterprise: true,
	PlanAdmin:      true,
	PlanStaff:      true,
}

// IsAdminPlan reports whether the plan grants admin access.
func IsAdminPlan(plan string) bool {
	return adminPlans[plan]
}

// IsPremiumPlan reports whether the plan grants premium access.
func IsPremiumPlan(plan string) bool {
	return premiumPlans[plan]
}

// Session is the server-side record of an authenticated identity, stored in
// Redis under an opaque identifier with TTL-based expiry.
type Session struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	Plan       string    `json:"plan"`
	CreatedAt  time.Time `json:"created_at"`
}
