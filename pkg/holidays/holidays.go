// Package holidays answers "is this date a working day for this user". The
// decision combines the user's weekly schedule, their custom holidays
// (recurring ones expanded with rrule), and the organization's public holiday
// calendar fetched from an external API.
package holidays

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/teambition/rrule-go"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/timebase"
)

// Source provides the public holiday dates of a year as a set keyed by
// "2006-01-02".
type Source interface {
	PublicHolidays(year int) (map[string]bool, error)
}

type holidayAPIData struct {
	Date              string `json:"holiday_date"`
	Name              string `json:"holiday_name"`
	IsNationalHoliday bool   `json:"is_national_holiday"`
}

// APISource fetches public holidays from an external HTTP calendar API.
type APISource struct {
	BaseURL string
	Client  *http.Client
}

func NewAPISource(baseURL string) *APISource {
	return &APISource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *APISource) PublicHolidays(year int) (map[string]bool, error) {
	resp, err := s.Client.Get(fmt.Sprintf("%s?year=%d", s.BaseURL, year))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holiday calendar: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read holiday calendar: %w", err)
	}

	var raw []holidayAPIData
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode holiday calendar: %w", err)
	}

	holidayMap := make(map[string]bool)
	for _, h := range raw {
		if h.IsNationalHoliday {
			holidayMap[h.Date] = true
		}
	}
	return holidayMap, nil
}

type cacheEntry struct {
	days      map[string]bool
	fetchedAt time.Time
}

// Oracle caches per-year public holiday sets with a TTL and a bounded entry
// count. Construct one instance in the composition root.
type Oracle struct {
	source     Source
	ttl        time.Duration
	maxEntries int

	mu    sync.Mutex
	cache map[int]cacheEntry
}

func NewOracle(source Source) *Oracle {
	return &Oracle{
		source:     source,
		ttl:        12 * time.Hour,
		maxEntries: 4,
		cache:      make(map[int]cacheEntry),
	}
}

func (o *Oracle) publicHolidays(year int) (map[string]bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if entry, ok := o.cache[year]; ok && time.Since(entry.fetchedAt) < o.ttl {
		return entry.days, nil
	}

	days, err := o.source.PublicHolidays(year)
	if err != nil {
		return nil, err
	}

	if len(o.cache) >= o.maxEntries {
		oldest, oldestAt := 0, time.Now()
		for y, e := range o.cache {
			if e.fetchedAt.Before(oldestAt) {
				oldest, oldestAt = y, e.fetchedAt
			}
		}
		delete(o.cache, oldest)
	}
	o.cache[year] = cacheEntry{days: days, fetchedAt: time.Now()}
	return days, nil
}

// IsPublicHoliday reports whether the civil date of day is in the
// organization's public holiday calendar.
func (o *Oracle) IsPublicHoliday(day time.Time) (bool, error) {
	days, err := o.publicHolidays(day.In(timebase.Location()).Year())
	if err != nil {
		return false, err
	}
	return days[timebase.DateKey(day)], nil
}

// IsCustomHoliday reports whether day matches one of the user's custom
// holidays. Recurring holidays repeat yearly from their start date.
func IsCustomHoliday(day time.Time, user *models.User) bool {
	dayStart, dayEnd := timebase.DayWindow(day)
	for _, h := range user.CustomHolidays {
		base, err := time.ParseInLocation("2006-01-02", h.Date, timebase.Location())
		if err != nil {
			continue
		}
		if !h.Recurring {
			if timebase.SameCivilDay(base, day) {
				return true
			}
			continue
		}

		rr, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.YEARLY,
			Dtstart: base,
		})
		if err != nil {
			continue
		}
		if len(rr.Between(dayStart, dayEnd, true)) > 0 {
			return true
		}
	}
	return false
}

// IsWeeklyOff reports whether the user's weekly schedule marks day's weekday
// as off. The schedule is indexed by time.Weekday (Sunday = 0).
func IsWeeklyOff(day time.Time, user *models.User) bool {
	return !user.WeeklySchedule[day.In(timebase.Location()).Weekday()]
}

// IsWorkingDay is the oracle consumed by absence materialization: true only
// when the day is neither a weekly off, a custom holiday, nor a public
// holiday for this user.
func (o *Oracle) IsWorkingDay(day time.Time, user *models.User) (bool, error) {
	if IsWeeklyOff(day, user) || IsCustomHoliday(day, user) {
		return false, nil
	}
	public, err := o.IsPublicHoliday(day)
	if err != nil {
		return false, err
	}
	return !public, nil
}
