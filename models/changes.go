package models

import "time"

// ChangeSet is the result of reconciling one snapshot against the known set.
type ChangeSet struct {
	Added   []*ListingItem `json:"added"`
	Updated []*ListingItem `json:"updated"`
	Removed []*TrackedItem `json:"removed"`
}

// HasChanges reports whether anything was added or removed. Refreshed items do not count.
func (c *ChangeSet) HasChanges() bool {
	return c != nil && (len(c.Added) > 0 || len(c.Removed) > 0)
}

// ChangeKind is the type of event a notification describes.
type ChangeKind string

const (
	KindAdded   ChangeKind = "added"
	KindRemoved ChangeKind = "removed"
)

// Notification is the content sent to a subscriber for one item.
type Notification struct {
	Kind         ChangeKind
	Title        string
	PriceDisplay string
	ImageRef     string
	At           time.Time
}

// Notifications flattens the change-set into added events followed by removed events.
func (c *ChangeSet) Notifications(at time.Time) []Notification {
	if c == nil {
		return nil
	}
	out := make([]Notification, 0, len(c.Added)+len(c.Removed))
	for _, item := range c.Added {
		out = append(out, Notification{
			Kind:         KindAdded,
			Title:        item.Title,
			PriceDisplay: item.PriceDisplay,
			ImageRef:     item.ImageRef,
			At:           at,
		})
	}
	for _, item := range c.Removed {
		out = append(out, Notification{
			Kind:         KindRemoved,
			Title:        item.Title,
			PriceDisplay: item.PriceDisplay,
			ImageRef:     item.ImageRef,
			At:           at,
		})
	}
	return out
}

// Summary counts what one subscriber was sent.
type Summary struct {
	Added   int
	Removed int
}

// DeliveryResult is the outcome of one send attempt.
type DeliveryResult struct {
	SubscriberID int64
	Kind         ChangeKind
	Title        string
	Err          error
}

// DeliveryReport aggregates every attempt of one dispatch.
type DeliveryReport struct {
	Results []DeliveryResult
}

// Sent returns the number of successful attempts.
func (r *DeliveryReport) Sent() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the failed attempts.
func (r *DeliveryReport) Failed() []DeliveryResult {
	if r == nil {
		return nil
	}
	var out []DeliveryResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// ForSubscriber returns the attempts addressed to id.
func (r *DeliveryReport) ForSubscriber(id int64) []DeliveryResult {
	if r == nil {
		return nil
	}
	var out []DeliveryResult
	for _, res := range r.Results {
		if res.SubscriberID == id {
			out = append(out, res)
		}
	}
	return out
}

// Trigger names what started a cycle.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// CycleReport describes one fetch -> reconcile -> notify pass.
type CycleReport struct {
	ID         string          `json:"id"`
	Trigger    Trigger         `json:"trigger"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Fetched    int             `json:"fetched"`
	Added      int             `json:"added"`
	Updated    int             `json:"updated"`
	Removed    int             `json:"removed"`
	Suppressed bool            `json:"suppressed"`
	Sent       int             `json:"sent"`
	Failed     int             `json:"failed"`
	Error      string          `json:"error,omitempty"`
	Changes    *ChangeSet      `json:"-"`
	Delivery   *DeliveryReport `json:"-"`
}
