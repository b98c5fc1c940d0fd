package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// AcademicYear formats the academic year a date falls in, July through June,
// e.g. "2025-26".
func AcademicYear(t time.Time) string {
	t = t.UTC()
	start := t.Year()
	if t.Month() < time.July {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// ReceiptNumber derives the receipt number for a payment. It is a pure
// function of the persisted payment id, so retries and concurrent backfills
// always produce the same value.
func ReceiptNumber(prefix string, paidAt time.Time, paymentID snowflake.ID) string {
	return fmt.Sprintf("%s/%s/%020d", prefix, AcademicYear(paidAt), paymentID)
}
