package model

import "time"

// --- Order Structures (as written by the ordering UI) ---

// OrderStatus is the kitchen workflow state. The print pipeline never writes it.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

type Order struct {
	ID             string      `json:"id"`
	CustomerNumber int         `json:"customerNumber"`
	Station        string      `json:"station"`
	Items          []Item      `json:"items"`
	Total          Money       `json:"total"`
	Status         OrderStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	PrintStatus    PrintStatus `json:"printStatus"`
}

type Item struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	Quantity        int    `json:"quantity"`
	Price           Money  `json:"price"`
	PreparationLine string `json:"preparationLine,omitempty"`
}

// LineTotal is price × quantity.
func (i Item) LineTotal() Money {
	return i.Price.Mul(i.Quantity)
}

// PrintStatus is the only part of an Order the print pipeline writes.
type PrintStatus struct {
	Printed     bool       `json:"printed"`
	PrintedAt   *time.Time `json:"printedAt"`
	PrintedBy   *string    `json:"printedBy"`
	Attempts    int        `json:"attempts"`
	LastAttempt *time.Time `json:"lastAttempt"`
	Error       *string    `json:"error"`
}

// PrintAttempt is the outcome of one dispatch, as handed to a store.
type PrintAttempt struct {
	Success   bool
	StationID string
	Error     string
	At        time.Time
	Duration  time.Duration
}

// Apply folds an attempt into s. Attempts always grows by one and a printed
// status stays printed.
func (s PrintStatus) Apply(a PrintAttempt) PrintStatus {
	at := a.At
	s.Attempts++
	s.LastAttempt = &at
	if a.Success {
		by := a.StationID
		s.Printed = true
		s.PrintedAt = &at
		s.PrintedBy = &by
		s.Error = nil
		return s
	}
	if !s.Printed {
		s.PrintedAt = nil
		s.PrintedBy = nil
	}
	msg := a.Error
	s.Error = &msg
	return s
}

// ChangeType classifies a change notification.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// OrderChange is one notification from an order subscription.
type OrderChange struct {
	Type  ChangeType `json:"type"`
	Order Order      `json:"order"`
}
