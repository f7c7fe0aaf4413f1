package tariff

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"
)

var (
	// "1-100 Units 16.48", "101 - 200 units Rs. 22.95"
	boundedSlabRe = regexp.MustCompile(`(?i)(\d+)\s*-\s*(\d+)\s*units?\D*?(\d+(?:\.\d+)?)`)
	// "Above 700 Units 35.53"
	openSlabRe = regexp.MustCompile(`(?i)(?:above|over|more than)\s*(\d+)\s*units?\D*?(\d+(?:\.\d+)?)`)
)

// ParseSchedulePDF opens a regulator tariff notification, extracts its text
// and delegates to ParseScheduleText.
func ParseSchedulePDF(c Category, path string) (Schedule, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	rc, err := r.GetPlainText()
	if err != nil {
		return Schedule{}, fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return Schedule{}, fmt.Errorf("read pdf text: %w", err)
	}

	return ParseScheduleText(c, buf.String())
}

// ParseScheduleText extracts slab lines from plain text and builds a
// validated schedule for c. Lines that do not describe a slab are ignored.
func ParseScheduleText(c Category, text string) (Schedule, error) {
	if !c.Valid() {
		return Schedule{}, fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
	}

	type slab struct {
		lower, upper float64
		rate         decimal.Decimal
	}
	var (
		slabs    []slab
		open     *slab
		openLine string
	)

	for _, line := range strings.Split(text, "\n") {
		if m := boundedSlabRe.FindStringSubmatch(line); m != nil {
			lower, _ := strconv.ParseFloat(m[1], 64)
			upper, _ := strconv.ParseFloat(m[2], 64)
			rate, err := decimal.NewFromString(m[3])
			if err != nil {
				return Schedule{}, fmt.Errorf("%w: bad rate in %q", ErrInvalidSchedule, strings.TrimSpace(line))
			}
			slabs = append(slabs, slab{lower: lower, upper: upper, rate: rate})
			continue
		}
		if m := openSlabRe.FindStringSubmatch(line); m != nil && open == nil {
			lower, _ := strconv.ParseFloat(m[1], 64)
			rate, err := decimal.NewFromString(m[2])
			if err != nil {
				return Schedule{}, fmt.Errorf("%w: bad rate in %q", ErrInvalidSchedule, strings.TrimSpace(line))
			}
			open = &slab{lower: lower, rate: rate}
			openLine = strings.TrimSpace(line)
		}
	}

	if open == nil {
		return Schedule{}, fmt.Errorf("%w: no open-ended slab found for %s", ErrInvalidSchedule, c)
	}

	sort.Slice(slabs, func(i, j int) bool { return slabs[i].lower < slabs[j].lower })

	s := Schedule{Category: c}
	prev := 0.0
	for _, sl := range slabs {
		// Notifications number slabs from 1 ("1-100", "101-200").
		if sl.lower != prev && sl.lower != prev+1 {
			return Schedule{}, fmt.Errorf("%w: gap before %v-%v units", ErrInvalidSchedule, sl.lower, sl.upper)
		}
		s.Bands = append(s.Bands, Band{UpTo: sl.upper, Rate: sl.rate})
		prev = sl.upper
	}
	if open.lower != prev {
		return Schedule{}, fmt.Errorf("%w: %q does not follow %v units", ErrInvalidSchedule, openLine, prev)
	}
	s.Bands = append(s.Bands, Band{Rate: open.rate})

	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}
