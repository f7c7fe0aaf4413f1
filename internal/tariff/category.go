package tariff

import (
	"fmt"
	"strings"
)

// Category is the regulatory consumer classification that selects a schedule.
type Category string

const (
	Lifeline   Category = "Lifeline"
	Protected  Category = "Protected"
	General    Category = "General"
	Commercial Category = "Commercial"
)

// Categories lists the known categories in display order.
func Categories() []Category {
	return []Category{Lifeline, Protected, General, Commercial}
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	switch c {
	case Lifeline, Protected, General, Commercial:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	name := strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(name, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}
