package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

const claimCodePrefix = "SAN"

var claimCodePattern = regexp.MustCompile(`^SAN-(\d{4})-(\d{5,})$`)

// FormatClaimCode renders SAN-{year}-{seq}, zero padded to five digits.
func FormatClaimCode(year, seq int) string {
	return fmt.Sprintf("%s-%d-%05d", claimCodePrefix, year, seq)
}

// ParseClaimCode splits a claim code into year and sequence.
func ParseClaimCode(code string) (year, seq int, ok bool) {
	m := claimCodePattern.FindStringSubmatch(code)
	if m == nil {
		return 0, 0, false
	}
	year, _ = strconv.Atoi(m[1])
	seq, _ = strconv.Atoi(m[2])
	return year, seq, true
}
