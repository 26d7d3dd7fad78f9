// Package expiry classifies batches by time left until their expiration date.
// The bucket is always derived on read and never stored.
package expiry

import (
	"time"

	"sigfarma/internal/core/apperror"
)

// Bucket is the expiration classification of a batch.
type Bucket string

const (
	Critical Bucket = "critical"
	Warning  Bucket = "warning"
	Normal   Bucket = "normal"
)

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	switch b {
	case Critical, Warning, Normal:
		return true
	}
	return false
}

// Default thresholds in months.
const (
	DefaultCriticalMonths = 6
	DefaultWarningMonths  = 12
)

// Classifier maps an expiration date to a Bucket.
// A batch expiring on or before today+CriticalMonths is critical, on or before
// today+WarningMonths is warning, anything later is normal. Expired batches are critical.
type Classifier struct {
	CriticalMonths int
	WarningMonths  int
}

// DefaultClassifier returns the 6/12 month classifier.
func DefaultClassifier() Classifier {
	return Classifier{CriticalMonths: DefaultCriticalMonths, WarningMonths: DefaultWarningMonths}
}

// NewClassifier validates thresholds.
func NewClassifier(criticalMonths, warningMonths int) (Classifier, error) {
	if criticalMonths <= 0 || warningMonths <= criticalMonths {
		return Classifier{}, apperror.NewValidation("expiry thresholds must satisfy 0 < critical < warning").
			WithDetail("critical_months", criticalMonths).
			WithDetail("warning_months", warningMonths)
	}
	return Classifier{CriticalMonths: criticalMonths, WarningMonths: warningMonths}, nil
}

// Classify returns the bucket of expiration relative to now. Comparison is by calendar day in UTC.
func (c Classifier) Classify(expiration, now time.Time) Bucket {
	exp := day(expiration)
	today := day(now)

	if !exp.After(today.AddDate(0, c.CriticalMonths, 0)) {
		return Critical
	}
	if !exp.After(today.AddDate(0, c.WarningMonths, 0)) {
		return Warning
	}
	return Normal
}

// CriticalUntil is the last expiration date classified as critical on now's day.
func (c Classifier) CriticalUntil(now time.Time) time.Time {
	return day(now).AddDate(0, c.CriticalMonths, 0)
}

// WarningUntil is the last expiration date classified as warning on now's day.
func (c Classifier) WarningUntil(now time.Time) time.Time {
	return day(now).AddDate(0, c.WarningMonths, 0)
}

// DaysRemaining counts whole calendar days from now until expiration; negative once expired.
func DaysRemaining(expiration, now time.Time) int {
	return int(day(expiration).Sub(day(now)).Hours() / 24)
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
