package models

import "fmt"

// FetchError means the listing could not be fetched completely. The cycle is aborted
// before reconciliation.
type FetchError struct {
	URL  string
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means a single price could not be normalized.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parse price %q", e.Input)
	}
	return fmt.Sprintf("parse price %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError wraps a failure reading or writing durable state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError wraps a failed send to one subscriber.
type DeliveryError struct {
	SubscriberID int64
	Title        string
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %q to %d: %v", e.Title, e.SubscriberID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
