package models

import "time"

// QuietHoursState is the persisted quiet-hours toggle.
type QuietHoursState struct {
	Enabled       bool       `json:"enabled"`
	LastToggledBy int64      `json:"last_toggled_by,omitempty"`
	LastToggledAt *time.Time `json:"last_toggled_at,omitempty"`
}

// SubscriberSet is the persisted list of users receiving notifications.
type SubscriberSet struct {
	Users []int64 `json:"users"`
}

// Contains reports whether id is subscribed.
func (s *SubscriberSet) Contains(id int64) bool {
	for _, u := range s.Users {
		if u == id {
			return true
		}
	}
	return false
}

// Add appends id unless present. It returns false for an existing subscriber.
func (s *SubscriberSet) Add(id int64) bool {
	if s.Contains(id) {
		return false
	}
	s.Users = append(s.Users, id)
	return true
}
