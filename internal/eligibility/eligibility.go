// Package eligibility maps an incident to a fixed compensation tier expressed
// in SDR and converts it to local currency.
package eligibility

import (
	"fmt"
	"math"
	"strings"
)

type Status string

const (
	StatusEligible         Status = "eligible"
	StatusNotEligible      Status = "not_eligible"
	StatusPossiblyEligible Status = "possibly_eligible"
	StatusUnknown          Status = "unknown"
)

const (
	IssueDelay            = "delay"
	IssueCancel           = "cancel"
	IssueDeniedBoarding   = "denied_boarding"
	IssueMissedConnection = "missed_connection"
	IssueLostBaggage      = "lost_baggage"
	IssueDamagedBaggage   = "damaged_baggage"
)

const (
	TierShortDelaySDR int64 = 50
	TierLongDelaySDR  int64 = 150
	TierFullSDR       int64 = 150

	shortDelayHours = 3.0
	longDelayHours  = 6.0
)

// Result is the outcome of one eligibility computation.
type Result struct {
	Status         Status  `json:"status"`
	SDRAmount      int64   `json:"sdr_amount"`
	LocalAmount    int64   `json:"local_amount"`
	ConversionRate float64 `json:"conversion_rate"`
	Message        string  `json:"message"`
}

// Compute is pure: identical inputs always yield an identical Result.
// delayHours is only consulted for delay claims.
func Compute(issueType string, delayHours *float64, rate float64) Result {
	res := tier(NormalizeIssueType(issueType), delayHours)
	res.ConversionRate = rate
	res.LocalAmount = int64(math.Round(float64(res.SDRAmount) * rate))
	return res
}

func tier(issueType string, delayHours *float64) Result {
	switch issueType {
	case IssueDelay:
		if delayHours == nil {
			return Result{Status: StatusUnknown, Message: "delay duration not provided"}
		}
		h := *delayHours
		switch {
		case h >= longDelayHours:
			return Result{Status: StatusEligible, SDRAmount: TierLongDelaySDR, Message: fmt.Sprintf("delay of %s hours is at least 6 hours", formatHours(h))}
		case h >= shortDelayHours:
			return Result{Status: StatusEligible, SDRAmount: TierShortDelaySDR, Message: fmt.Sprintf("delay of %s hours is between 3 and 6 hours", formatHours(h))}
		default:
			return Result{Status: StatusNotEligible, Message: fmt.Sprintf("delay of %s hours is below the 3 hour threshold", formatHours(h))}
		}
	case IssueCancel:
		return Result{Status: StatusEligible, SDRAmount: TierFullSDR, Message: "cancelled flights are eligible for full compensation"}
	case IssueDeniedBoarding:
		return Result{Status: StatusEligible, SDRAmount: TierFullSDR, Message: "denied boarding is eligible for full compensation"}
	case IssueMissedConnection:
		return Result{Status: StatusPossiblyEligible, SDRAmount: TierFullSDR, Message: "missed connection may be eligible depending on the cause"}
	default:
		return Result{Status: StatusUnknown, Message: "issue type is not covered by a compensation tier"}
	}
}

// NormalizeIssueType lowercases and folds spelling variants seen at intake.
func NormalizeIssueType(issueType string) string {
	v := strings.ToLower(strings.TrimSpace(issueType))
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	switch v {
	case "cancellation", "cancelled", "canceled":
		return IssueCancel
	case "delayed":
		return IssueDelay
	}
	return v
}

func formatHours(h float64) string {
	if h == math.Trunc(h) {
		return fmt.Sprintf("%.0f", h)
	}
	return fmt.Sprintf("%.1f", h)
}
