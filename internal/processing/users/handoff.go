package users

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
)

// Handoff builds deep links into the external messaging channel where
// upgrades and withdrawals are settled by a human.
type Handoff struct {
	baseURL string
}

func NewHandoff(baseURL string) Handoff {
	return Handoff{baseURL: strings.TrimSpace(baseURL)}
}

func (h Handoff) UpgradeLink(userID string, plan model.Plan) string {
	return h.link(fmt.Sprintf("Upgrade request\nUser: %s\nPlan: %s", userID, plan))
}

func (h Handoff) WithdrawLink(userID string, amount float64) string {
	return h.link(fmt.Sprintf("Withdrawal request\nUser: %s\nAmount: %.2f", userID, amount))
}

func (h Handoff) link(text string) string {
	u, err := url.Parse(h.baseURL)
	if err != nil || h.baseURL == "" {
		return ""
	}
	q := u.Query()
	q.Set("text", text)
	u.RawQuery = q.Encode()
	return u.String()
}
