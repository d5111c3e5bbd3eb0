package shared

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Consolidated-period statuses reused outside the consol module.
const (
	PeriodStatusOpen         = "ABIERTO"
	PeriodStatusInReview     = "EN_REVISION"
	PeriodStatusConsolidated = "CONSOLIDADO"
	PeriodStatusClosed       = "CERRADO"
)

// ErrInvalidPeriod indicates a malformed period code or month/year pair.
var ErrInvalidPeriod = errors.New("invalid period")

// ErrInvalidPeriodTransition indicates a status change not allowed.
var ErrInvalidPeriodTransition = errors.New("period transition invalid")

var periodCodeRe = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)

// PeriodCode formats (mes, anio) as the canonical "YYYY-MM" key.
func PeriodCode(mes, anio int) (string, error) {
	if mes < 1 || mes > 12 || anio < 2000 || anio > 9999 {
		return "", fmt.Errorf("%w: mes=%d anio=%d", ErrInvalidPeriod, mes, anio)
	}
	return fmt.Sprintf("%04d-%02d", anio, mes), nil
}

// ParsePeriodCode splits a "YYYY-MM" key back into (mes, anio).
func ParsePeriodCode(code string) (mes, anio int, err error) {
	m := periodCodeRe.FindStringSubmatch(code)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, code)
	}
	anio, _ = strconv.Atoi(m[1])
	mes, _ = strconv.Atoi(m[2])
	return mes, anio, nil
}

// NextPeriodCode returns the code of the calendar month after (mes, anio).
func NextPeriodCode(mes, anio int) (string, error) {
	if _, err := PeriodCode(mes, anio); err != nil {
		return "", err
	}
	t := time.Date(anio, time.Month(mes), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return PeriodCode(int(t.Month()), t.Year())
}

// CurrentPeriodCode derives the code for the month containing now.
func CurrentPeriodCode(now time.Time) string {
	return fmt.Sprintf("%04d-%02d", now.Year(), int(now.Month()))
}

// ValidatePeriodTransition checks consolidated-period status changes.
// ABIERTO -> EN_REVISION -> CONSOLIDADO -> CERRADO, review optional,
// CERRADO terminal through the normal API.
func ValidatePeriodTransition(current, target string) error {
	if current == target {
		return nil
	}
	switch current {
	case PeriodStatusOpen:
		if target == PeriodStatusInReview || target == PeriodStatusConsolidated {
			return nil
		}
	case PeriodStatusInReview:
		if target == PeriodStatusConsolidated || target == PeriodStatusOpen {
			return nil
		}
	case PeriodStatusConsolidated:
		if target == PeriodStatusClosed {
			return nil
		}
	}
	return ErrInvalidPeriodTransition
}
