package model

import "time"

// RecordType identifies which event stream produced a counter reading.
type RecordType string

const (
	RecordFuel    RecordType = "fuel"
	RecordService RecordType = "service"
)

// LastRecord describes the event that produced a vehicle's highest
// recorded counter value, for user-facing explanation.
type LastRecord struct {
	// Counter is the odometer/runtime-hours value of the record.
	Counter int `json:"counter"`

	// DateTime is when the record was entered.
	DateTime time.Time `json:"dateTime"`

	// Type is "fuel" or "service".
	Type RecordType `json:"type"`

	// Description is a short label of the record (e.g. station name
	// or service summary).
	Description string `json:"description"`
}

// CounterInfo is the per-vehicle monotonicity threshold fetched from the
// server: the smallest counter value that is legal for the next reading,
// taken over the vehicle's combined fuel and service history.
//
// It is fetched fresh whenever the selected vehicle changes and is never
// merged across vehicles.
type CounterInfo struct {
	MinAllowedCounter int `json:"minAllowedCounter"`

	// LastRecord is the event that set MinAllowedCounter, when known.
	LastRecord *LastRecord `json:"lastRecord,omitempty"`
}
