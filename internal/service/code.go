package service

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// couponCodeAlphabet avoids ambiguous characters (0/O, 1/I/L) so
	// codes survive being read aloud or retyped from a screenshot.
	couponCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	couponCodeLength   = 10
)

// mintCouponCode generates a redemption code for offers created without one.
func mintCouponCode() (string, error) {
	return gonanoid.Generate(couponCodeAlphabet, couponCodeLength)
}
