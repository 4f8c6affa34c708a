package model

import "github.com/shopspring/decimal"

type SummaryRow struct {
	Name    string
	Balance decimal.Decimal
	Used    decimal.Decimal
}

type RunSummary struct {
	RunID          string
	Rows           []SummaryRow
	Success        int
	Fail           int
	Total          int
	Digest         string
	PreviousDigest string
}

func (s RunSummary) Succeeded() bool {
	return s.Success > 0
}

func (s RunSummary) AllSucceeded() bool {
	return s.Total > 0 && s.Fail == 0
}

func (s RunSummary) DigestChanged() bool {
	return s.Digest != s.PreviousDigest
}
