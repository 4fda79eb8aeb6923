package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type Plan string

const (
	PlanFree     Plan = "FREE"
	PlanPro      Plan = "PRO"
	PlanBusiness Plan = "BUSINESS"
)

// Plans lists every plan in upgrade order.
var Plans = []Plan{PlanFree, PlanPro, PlanBusiness}

// ParsePlan accepts any casing and reports whether the plan is known.
func ParsePlan(raw string) (Plan, bool) {
	p := Plan(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Plans {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// NoLimit is the link limit sentinel for plans without a quota ceiling.
const NoLimit = -1

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"passwordHash,omitempty"`
	Role           Role      `json:"role"`
	Plan           Plan      `json:"plan"`
	APIKey         string    `json:"apiKey"`
	Balance        float64   `json:"balance"`
	IsSuspended    bool      `json:"isSuspended"`
	PendingUpgrade *Plan     `json:"pendingUpgrade,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Link struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	OriginalURL string    `json:"originalUrl"`
	ShortCode   string    `json:"shortCode"`
	Clicks      int64     `json:"clicks"`
	Earnings    float64   `json:"earnings"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ClickEvent struct {
	ID          string    `json:"id"`
	TraversalID string    `json:"traversalId"`
	LinkID      string    `json:"linkId"`
	UserID      string    `json:"userId"`
	ShortCode   string    `json:"shortCode"`
	Timestamp   time.Time `json:"timestamp"`
	Referrer    string    `json:"referrer,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
	Earned      float64   `json:"earned"`
}

// ClientMeta is what the visitor's request tells us about itself.
type ClientMeta struct {
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

type PlanConfig struct {
	LinkLimit int     `json:"linkLimit" koanf:"link_limit"`
	Price     float64 `json:"price" koanf:"price"`
}

// Unlimited reports whether the plan has no link ceiling.
func (p PlanConfig) Unlimited() bool {
	return p.LinkLimit < 0
}

type AdSlots struct {
	Top    string `json:"top" koanf:"top"`
	Bottom string `json:"bottom" koanf:"bottom"`
}

type Settings struct {
	TotalSteps    int                 `json:"totalSteps" koanf:"total_steps"`
	WaitSeconds   int                 `json:"waitSeconds" koanf:"wait_seconds"`
	CPMRate       float64             `json:"cpmRate" koanf:"cpm_rate"`
	MinWithdrawal float64             `json:"minWithdrawal" koanf:"min_withdrawal"`
	Plans         map[Plan]PlanConfig `json:"plans" koanf:"plans"`
	Ads           AdSlots             `json:"ads" koanf:"ads"`
}

// DefaultSettings is used until an admin saves settings for the first time.
func DefaultSettings() Settings {
	return Settings{
		TotalSteps:    3,
		WaitSeconds:   10,
		CPMRate:       5,
		MinWithdrawal: 5,
		Plans: map[Plan]PlanConfig{
			PlanFree:     {LinkLimit: 5, Price: 0},
			PlanPro:      {LinkLimit: 100, Price: 9.99},
			PlanBusiness: {LinkLimit: NoLimit, Price: 29.99},
		},
	}
}

// PlanConfig returns the quota entry for plan. Unknown plans fall back to FREE,
// and a missing FREE entry means zero links.
func (s Settings) PlanConfig(plan Plan) PlanConfig {
	if cfg, ok := s.Plans[plan]; ok {
		return cfg
	}
	if cfg, ok := s.Plans[PlanFree]; ok {
		return cfg
	}
	return PlanConfig{LinkLimit: 0}
}

// PerClick is the marginal value credited for one completed traversal.
func (s Settings) PerClick() float64 {
	return s.CPMRate / 1000
}

// EarningsFor derives link earnings from its click counter.
func EarningsFor(clicks int64, cpmRate float64) float64 {
	return float64(clicks) * cpmRate / 1000
}
