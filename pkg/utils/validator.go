package utils

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var (
	trackingNumberRegex = regexp.MustCompile(`^BRGY-[0-9A-Z]{10}$`)
	contactNumberRegex  = regexp.MustCompile(`^09\d{9}$`)
	controlCharRegex    = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// Validation sentinels, matched with errors.Is by the HTTP error mapping
var (
	ErrInvalidTrackingNumber = errors.New("invalid tracking number format")
	ErrInvalidContactNumber  = errors.New("invalid contact number format")
	ErrInvalidAmount         = errors.New("invalid amount")
)

// ValidateTrackingNumber validates a request tracking number
func ValidateTrackingNumber(trackingNumber string) error {
	if !trackingNumberRegex.MatchString(trackingNumber) {
		return fmt.Errorf("%w: %s", ErrInvalidTrackingNumber, trackingNumber)
	}
	return nil
}

// ValidateContactNumber validates a Philippine mobile number (09XXXXXXXXX)
func ValidateContactNumber(contact string) error {
	if !contactNumberRegex.MatchString(contact) {
		return fmt.Errorf("%w: %s", ErrInvalidContactNumber, contact)
	}
	return nil
}

// ValidateAmount validates a document fee amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: must not be negative: %s", ErrInvalidAmount, amount)
	}

	if amount.GreaterThan(decimal.NewFromInt(10000)) {
		return fmt.Errorf("%w: exceeds maximum fee: %s", ErrInvalidAmount, amount)
	}

	return nil
}

// SanitizeString removes control characters from user input
func SanitizeString(s string) string {
	return controlCharRegex.ReplaceAllString(s, "")
}
