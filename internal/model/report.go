package model

import "time"

// FleetJobRow is one line of the operator fleet export, pre-joined with the
// driver's name and payout.
type FleetJobRow struct {
	ConfirmationCode string
	Status           string
	Address          string
	DriverName       *string
	ScheduledAt      *time.Time
	CompletedAt      *time.Time
	TotalPrice       float64
	DriverPayout     float64
}

// FleetExport is the payload rendered into the operator's spreadsheet.
type FleetExport struct {
	OperatorName string
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Rows         []FleetJobRow
}

// Receipt is the payload rendered into the customer's PDF receipt.
type Receipt struct {
	Job          Job
	Payment      *Payment
	CustomerName string
}
