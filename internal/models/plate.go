package models

import (
	"errors"
	"strings"
)

var ErrInvalidPlate = errors.New("invalid license plate")

// NormalizePlate uppercases the plate and strips dashes, dots and spaces
// so that 59-A1 234.56 and 59A123456 compare equal.
func NormalizePlate(raw string) (string, error) {
	plate := strings.ToUpper(strings.TrimSpace(raw))
	plate = strings.NewReplacer("-", "", ".", "", " ", "").Replace(plate)
	if len(plate) < MinPlateLength {
		return "", ErrInvalidPlate
	}
	return plate, nil
}
