package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CollectorSummary is the per-collector overview shown on the dashboard
type CollectorSummary struct {
	CollectorID      uuid.UUID       `json:"collectorId"`
	CollectorName    string          `json:"collectorName,omitempty"`
	ActiveLoans      int             `json:"activeLoans"`
	OnTime           int             `json:"onTime"`
	Delinquent       int             `json:"delinquent"`
	RenewedThisMonth int             `json:"renewedThisMonth"`
	DueToday         int             `json:"dueToday"`
	Outstanding      decimal.Decimal `json:"outstanding"`
	CollectedToday   decimal.Decimal `json:"collectedToday"`
}

// AdminOverview aggregates every collector
type AdminOverview struct {
	Collectors []*CollectorSummary `json:"collectors"`
	Totals     CollectorSummary    `json:"totals"`
}
