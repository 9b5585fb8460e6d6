package model

// WhisperDescriptor restricts a message's visibility to a computed set of
// users. It stores the unexpanded recipient lists as given at send time;
// group membership and puppet handlers are re-evaluated on every read.
type WhisperDescriptor struct {
	UserIDs   []UserID   `json:"user_ids,omitempty"`
	GroupIDs  []GroupID  `json:"group_ids,omitempty"`
	PuppetIDs []PuppetID `json:"puppet_ids,omitempty"`
}

// IsZero reports whether no recipient list is populated
func (d *WhisperDescriptor) IsZero() bool {
	return d == nil || (len(d.UserIDs) == 0 && len(d.GroupIDs) == 0 && len(d.PuppetIDs) == 0)
}

// HasDirectUser reports whether the user is listed as an explicit recipient
func (d *WhisperDescriptor) HasDirectUser(id UserID) bool {
	for _, uid := range d.UserIDs {
		if uid == id {
			return true
		}
	}
	return false
}
