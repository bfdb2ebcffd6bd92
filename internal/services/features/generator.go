package features

import (
	"math"
	"time"
)

// Vector is the named feature set of one calendar day.
type Vector map[string]float64

// Holiday flag columns the models were trained with.
const (
	FlagFestivoNacional = "is_festivo_nacional"
	FlagFestivoLocal    = "is_festivo_local"
	FlagEidAladha       = "is_eid_aladha"
	FlagEidAladhaPrev   = "is_eid_aladha_prev"
	FlagEidAladhaPost   = "is_eid_aladha_post"
	FlagEidAlfitr       = "is_eid_alfitr"
	FlagEidAlfitrPrev   = "is_eid_alfitr_prev"
	FlagEidAlfitrPost   = "is_eid_alfitr_post"
	FlagMawlidNabi      = "is_mawlid_nabi"
)

// HolidayFlags lists every holiday column in a stable order.
var HolidayFlags = []string{
	FlagFestivoNacional, FlagFestivoLocal,
	FlagEidAladha, FlagEidAladhaPrev, FlagEidAladhaPost,
	FlagEidAlfitr, FlagEidAlfitrPrev, FlagEidAlfitrPost,
	FlagMawlidNabi,
}

var weekdayNames = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Generator derives calendar features for a date.
type Generator struct {
	holidays HolidayCalendar
}

// NewGenerator builds a generator; a nil calendar leaves every holiday flag at 0.
func NewGenerator(holidays HolidayCalendar) *Generator {
	if holidays == nil {
		holidays = ZeroCalendar{}
	}
	return &Generator{holidays: holidays}
}

// Generate is pure: the same date always yields the same vector.
func (g *Generator) Generate(date time.Time) Vector {
	v := make(Vector, 24+len(HolidayFlags))

	cyclic(v, "dia_del_anio", float64(date.YearDay()), 365)
	cyclic(v, "dia_embarque", float64(date.Day()), 31)
	v["hora_embarque_sin"] = 0
	v["hora_embarque_cos"] = 1
	cyclic(v, "mes_embarque", float64(date.Month()), 12)
	_, week := date.ISOWeek()
	cyclic(v, "week_of_year", float64(week), 52)

	season := Season(date.Month())
	for s := 1; s <= 4; s++ {
		v[seasonColumn(s)] = boolf(season == s)
	}

	wd := isoWeekday(date)
	v["is_weekend"] = boolf(wd >= 5)
	for i, name := range weekdayNames {
		v["is_"+name] = boolf(wd == i)
	}
	cyclic(v, "weekday", float64(wd), 7)

	flags := g.holidays.Flags(date)
	for _, name := range HolidayFlags {
		v[name] = flags[name]
	}
	return v
}

// Season maps a month to the training encoding: spring 1, summer 2, autumn 3, winter 4.
func Season(m time.Month) int {
	switch m {
	case time.March, time.April, time.May:
		return 1
	case time.June, time.July, time.August:
		return 2
	case time.September, time.October, time.November:
		return 3
	default:
		return 4
	}
}

func seasonColumn(s int) string {
	return "season_" + string(rune('0'+s))
}

// isoWeekday numbers Monday as 0 and Sunday as 6.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func cyclic(v Vector, name string, x, period float64) {
	angle := 2 * math.Pi * x / period
	v[name+"_sin"] = math.Sin(angle)
	v[name+"_cos"] = math.Cos(angle)
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
