package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidQuotaNumber = errors.New("invalid quota number")

type QuotaStatus string

const (
	QuotaAvailable QuotaStatus = "available"
	QuotaReserved  QuotaStatus = "reserved"
	QuotaSold      QuotaStatus = "sold"
)

type Quota struct {
	ID            uint        `json:"-"`
	RaffleID      uint        `json:"raffle_id"`
	Number        string      `json:"number"`
	Status        QuotaStatus `json:"status"`
	OwnerID       *uint       `json:"owner_id,omitempty"`
	ReservationID *string     `json:"-"`
	ReservedAt    *time.Time  `json:"reserved_at,omitempty"`
	SoldAt        *time.Time  `json:"sold_at,omitempty"`
}

// QuotaWidth is the digit length of total, which every number of the raffle is padded to.
func QuotaWidth(total int) int {
	return len(strconv.Itoa(total))
}

func FormatQuotaNumber(n, total int) string {
	return fmt.Sprintf("%0*d", QuotaWidth(total), n)
}

// NormalizeQuotaNumber accepts "7", "07" or "007" and returns the canonical padded form.
func NormalizeQuotaNumber(raw string, total int) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidQuotaNumber
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > total {
		return "", fmt.Errorf("%w: %q", ErrInvalidQuotaNumber, raw)
	}

	return FormatQuotaNumber(n, total), nil
}

func NormalizeQuotaNumbers(raw []string, total int) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	numbers := make([]string, 0, len(raw))
	for _, r := range raw {
		n, err := NormalizeQuotaNumber(r, total)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: %q repeated", ErrInvalidQuotaNumber, r)
		}
		seen[n] = struct{}{}
		numbers = append(numbers, n)
	}

	return numbers, nil
}

// GenerateQuotaNumbers returns "1".."total" padded to the width of total.
func GenerateQuotaNumbers(total int) []string {
	numbers := make([]string, total)
	for i := range numbers {
		numbers[i] = FormatQuotaNumber(i+1, total)
	}

	return numbers
}

// RaffleNumbers groups the numbers one user holds in one raffle.
type RaffleNumbers struct {
	RaffleID    uint     `json:"raffle_id"`
	RaffleCode  string   `json:"raffle_code"`
	RaffleTitle string   `json:"raffle_title"`
	Numbers     []string `json:"numbers"`
}
