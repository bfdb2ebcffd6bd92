package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	xutil "FerryCast/pkg/util"
)

// HolidayCalendar reports the holiday flags of a date. Missing keys read as 0.
type HolidayCalendar interface {
	Flags(date time.Time) map[string]float64
}

// ZeroCalendar reports no holidays at all.
type ZeroCalendar struct{}

func (ZeroCalendar) Flags(time.Time) map[string]float64 { return nil }

// eidWindow is the number of days before and after an Eid flagged as _prev/_post.
const eidWindow = 7

type holidayRecord struct {
	Date string `csv:"date"`
	Kind string `csv:"kind"`
}

// FileCalendar is a fixed holiday calendar read from CSV.
type FileCalendar struct {
	days map[string]map[string]float64
}

// LoadHolidayCalendar opens path and parses it with ParseHolidayCalendar.
func LoadHolidayCalendar(path string) (*FileCalendar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open holiday calendar: %w", err)
	}
	defer f.Close()
	return ParseHolidayCalendar(f)
}

// ParseHolidayCalendar reads a "date,kind" CSV where kind is one of
// nacional, local, eid_aladha, eid_alfitr or mawlid_nabi.
func ParseHolidayCalendar(r io.Reader) (*FileCalendar, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder for holidays: %w", err)
	}
	var records []holidayRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode holiday CSV data: %w", err)
	}

	c := &FileCalendar{days: make(map[string]map[string]float64)}
	for i, rec := range records {
		d, err := xutil.ParseDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday row %d: %w", i+1, err)
		}
		switch kind := strings.ToLower(strings.TrimSpace(rec.Kind)); kind {
		case "nacional":
			c.mark(d, FlagFestivoNacional)
		case "local":
			c.mark(d, FlagFestivoLocal)
		case "mawlid_nabi":
			c.mark(d, FlagMawlidNabi)
		case "eid_aladha":
			c.markEid(d, FlagEidAladha, FlagEidAladhaPrev, FlagEidAladhaPost)
		case "eid_alfitr":
			c.markEid(d, FlagEidAlfitr, FlagEidAlfitrPrev, FlagEidAlfitrPost)
		default:
			return nil, fmt.Errorf("holiday row %d: unknown kind %q", i+1, rec.Kind)
		}
	}
	return c, nil
}

// Len is the number of distinct flagged days.
func (c *FileCalendar) Len() int { return len(c.days) }

func (c *FileCalendar) Flags(date time.Time) map[string]float64 {
	return c.days[xutil.FormatDate(date)]
}

func (c *FileCalendar) mark(d time.Time, flag string) {
	key := xutil.FormatDate(d)
	m, ok := c.days[key]
	if !ok {
		m = make(map[string]float64, 2)
		c.days[key] = m
	}
	m[flag] = 1
}

func (c *FileCalendar) markEid(d time.Time, day, prev, post string) {
	c.mark(d, day)
	for i := 1; i <= eidWindow; i++ {
		c.mark(xutil.AddDays(d, -i), prev)
		c.mark(xutil.AddDays(d, i), post)
	}
}
