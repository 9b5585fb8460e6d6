package model

import "time"

// HandlerType distinguishes explicit claims from implicit recent activity
type HandlerType string

const (
	// HandlerClaimed is an explicit, persistent association
	HandlerClaimed HandlerType = "claimed"
	// HandlerRecent is an implicit association refreshed by puppet activity
	HandlerRecent HandlerType = "recent"
)

// HandlerAssociation links a puppet to a user who handles it.
// (PuppetID, UserID) is unique.
type HandlerAssociation struct {
	PuppetID PuppetID    `json:"puppet_id"`
	UserID   UserID      `json:"user_id"`
	Type     HandlerType `json:"handler_type"`
	LastUsed time.Time   `json:"last_used"`
}

// WithinWindow reports whether the association's last activity falls
// inside the window ending at now. The boundary is inclusive.
func (h *HandlerAssociation) WithinWindow(now time.Time, window time.Duration) bool {
	return !h.LastUsed.Before(now.Add(-window))
}

// Qualifies reports whether this handler qualifies to receive the
// puppet's whispers at the given instant. In claimed mode only claimed
// rows qualify, irrespective of timestamps. In open mode the recency
// window applies to claimed and recent rows alike.
//
// Send-time fan-out and read-time visibility both use this rule, so the
// recipient set previewed at send matches any later evaluation at the
// same instant.
func (h *HandlerAssociation) Qualifies(p *Puppet, now time.Time) bool {
	if p.VisibilityMode == VisibilityClaimed {
		return h.Type == HandlerClaimed
	}
	return h.WithinWindow(now, p.Window())
}
