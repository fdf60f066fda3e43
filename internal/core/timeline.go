package core

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// Default layout constants of the timeline view.
const (
	DefaultRangePaddingDays = 7
	DefaultWindowDays       = 30
	DefaultTableWidth       = 400
	DefaultRowHeight        = 40
)

// DefaultColumnWidths holds the pixel width of one column per resolution.
var DefaultColumnWidths = map[models.Resolution]int{
	models.ResolutionDays:      30,
	models.ResolutionWeeks:     50,
	models.ResolutionMonths:    80,
	models.ResolutionQuarters:  120,
	models.ResolutionSemesters: 180,
	models.ResolutionYear:      250,
}

// DefaultTimelineConfig returns the timeline constants used when nothing is
// configured.
func DefaultTimelineConfig() models.TimelineConfig {
	widths := make(map[models.Resolution]int, len(DefaultColumnWidths))
	for r, w := range DefaultColumnWidths {
		widths[r] = w
	}
	return models.TimelineConfig{
		ColumnWidths:      widths,
		RangePaddingDays:  DefaultRangePaddingDays,
		DefaultWindowDays: DefaultWindowDays,
		TableWidth:        DefaultTableWidth,
		RowHeight:         DefaultRowHeight,
	}
}

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of calendar days covered, both ends included.
func (r DateRange) Days() int {
	return models.DaysBetween(r.Start, r.End) + 1
}

// DeriveRange returns the union of all task start and end dates padded on
// both sides. When no task carries a date the range is the default window
// starting today.
func DeriveRange(tasks []models.Task, now time.Time, cfg models.TimelineConfig) DateRange {
	var lo, hi time.Time
	found := false
	widen := func(d *time.Time) {
		if d == nil {
			return
		}
		day := models.DateOnly(*d)
		if !found {
			lo, hi, found = day, day, true
			return
		}
		if day.Before(lo) {
			lo = day
		}
		if day.After(hi) {
			hi = day
		}
	}
	for _, t := range tasks {
		widen(t.StartDate)
		widen(t.EndDate)
	}

	if !found {
		today := models.DateOnly(now)
		return DateRange{Start: today, End: models.AddDays(today, cfg.DefaultWindowDays)}
	}
	return DateRange{
		Start: models.AddDays(lo, -cfg.RangePaddingDays),
		End:   models.AddDays(hi, cfg.RangePaddingDays),
	}
}

// weekEpoch is the Monday on or before 1970-01-01, the origin of week buckets.
var weekEpoch = time.Date(1969, time.December, 29, 0, 0, 0, 0, time.UTC)

var unixEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

// BucketIndex maps a date to the absolute index of the bucket that contains
// it. Indexes are comparable across dates for the same resolution and never
// decrease as the date moves forward.
func BucketIndex(d time.Time, res models.Resolution) int {
	d = models.DateOnly(d)
	y, m := d.Year(), int(d.Month())
	switch res {
	case models.ResolutionWeeks:
		return floorDiv(models.DaysBetween(weekEpoch, d), 7)
	case models.ResolutionMonths:
		return y*12 + m - 1
	case models.ResolutionQuarters:
		return y*4 + (m-1)/3
	case models.ResolutionSemesters:
		return y*2 + (m-1)/6
	case models.ResolutionYear:
		return y
	default:
		return models.DaysBetween(unixEpoch, d)
	}
}

// BucketStart returns the first calendar date of bucket idx.
func BucketStart(idx int, res models.Resolution) time.Time {
	switch res {
	case models.ResolutionWeeks:
		return weekEpoch.AddDate(0, 0, idx*7)
	case models.ResolutionMonths:
		return time.Date(floorDiv(idx, 12), time.Month(floorMod(idx, 12)+1), 1, 0, 0, 0, 0, time.UTC)
	case models.ResolutionQuarters:
		return time.Date(floorDiv(idx, 4), time.Month(floorMod(idx, 4)*3+1), 1, 0, 0, 0, 0, time.UTC)
	case models.ResolutionSemesters:
		return time.Date(floorDiv(idx, 2), time.Month(floorMod(idx, 2)*6+1), 1, 0, 0, 0, 0, time.UTC)
	case models.ResolutionYear:
		return time.Date(idx, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return unixEpoch.AddDate(0, 0, idx)
	}
}

// BucketEnd returns the last calendar date of bucket idx.
func BucketEnd(idx int, res models.Resolution) time.Time {
	return BucketStart(idx+1, res).AddDate(0, 0, -1)
}

// ColumnIndex returns the position of d's bucket relative to the first column
// of rng.
func ColumnIndex(rng DateRange, d time.Time, res models.Resolution) int {
	return BucketIndex(d, res) - BucketIndex(rng.Start, res)
}

// ColumnCount returns how many columns rng spans at res.
func ColumnCount(rng DateRange, res models.Resolution) int {
	return BucketIndex(rng.End, res) - BucketIndex(rng.Start, res) + 1
}

// Column is one time bucket of the timeline header.
type Column struct {
	Bucket int       `json:"bucket"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Label  string    `json:"label"`
	X      int       `json:"x"`
	Width  int       `json:"width"`
}

// GenerateColumns enumerates the buckets covering rng in order.
func GenerateColumns(rng DateRange, res models.Resolution, cfg models.TimelineConfig) []Column {
	first, last := BucketIndex(rng.Start, res), BucketIndex(rng.End, res)
	if last < first {
		return nil
	}
	w := cfg.ColumnWidth(res)
	cols := make([]Column, 0, last-first+1)
	for idx := first; idx <= last; idx++ {
		start, end := BucketStart(idx, res), BucketEnd(idx, res)
		cols = append(cols, Column{
			Bucket: idx,
			Start:  start,
			End:    end,
			Label:  ColumnLabel(start, end, res),
			X:      (idx - first) * w,
			Width:  w,
		})
	}
	return cols
}

// ColumnLabel formats the header label of a bucket spanning start..end.
func ColumnLabel(start, end time.Time, res models.Resolution) string {
	switch res {
	case models.ResolutionWeeks:
		switch {
		case start.Year() == end.Year() && start.Month() == end.Month():
			return fmt.Sprintf("%02d-%02d/%02d", start.Day(), end.Day(), int(end.Month()))
		case start.Year() == end.Year():
			return start.Format("02/01") + " - " + end.Format("02/01")
		default:
			return start.Format("02/01/06") + " - " + end.Format("02/01/06")
		}
	case models.ResolutionMonths:
		return start.Format("01/2006")
	case models.ResolutionQuarters:
		return fmt.Sprintf("Q%d %d", (int(start.Month())-1)/3+1, start.Year())
	case models.ResolutionSemesters:
		return fmt.Sprintf("S%d %d", (int(start.Month())-1)/6+1, start.Year())
	case models.ResolutionYear:
		return start.Format("2006")
	default:
		return start.Format("02/01/2006")
	}
}

// GeometryKind tells how a task is drawn on the timeline.
type GeometryKind string

const (
	GeometryBar       GeometryKind = "bar"
	GeometryMilestone GeometryKind = "milestone"
	GeometryNone      GeometryKind = "none"
)

// BarGeometry positions a task on the timeline. Column and Span are in
// bucket units relative to the range start; X and Width are pixels. A
// milestone has Span 1, Width 0 and X at the center of its bucket.
type BarGeometry struct {
	Kind   GeometryKind `json:"kind"`
	Column int          `json:"column"`
	Span   int          `json:"span"`
	X      int          `json:"x"`
	Width  int          `json:"width"`
}

// ComputeBarGeometry places task within rng at res. Only the days resolution
// is exact; coarser resolutions snap both ends to bucket boundaries. A task
// without a start date is not drawn.
func ComputeBarGeometry(task models.Task, rng DateRange, res models.Resolution, cfg models.TimelineConfig) BarGeometry {
	if task.StartDate == nil {
		return BarGeometry{Kind: GeometryNone}
	}
	w := cfg.ColumnWidth(res)
	col := ColumnIndex(rng, *task.StartDate, res)

	if task.IsMilestone() || task.EndDate == nil {
		return BarGeometry{
			Kind:   GeometryMilestone,
			Column: col,
			Span:   1,
			X:      col*w + w/2,
		}
	}

	span := ColumnIndex(rng, *task.EndDate, res) - col + 1
	if span < 1 {
		span = 1
	}
	return BarGeometry{
		Kind:   GeometryBar,
		Column: col,
		Span:   span,
		X:      col * w,
		Width:  span * w,
	}
}

// AutoFit picks a resolution for showing rng inside viewportPx. Resolutions
// are tried from finest to coarsest and the first whose columns fit is
// returned, so the most detailed view that needs no scrolling wins. When
// nothing fits the result is days.
func AutoFit(rng DateRange, viewportPx int, cfg models.TimelineConfig) models.Resolution {
	for _, res := range models.Resolutions {
		if ColumnCount(rng, res)*cfg.ColumnWidth(res) <= viewportPx {
			return res
		}
	}
	return models.ResolutionDays
}

// ScheduleRow is a visible row with its timeline placement. Row is the index
// in the visible list and is shared by the table and the timeline.
type ScheduleRow struct {
	FlatRow
	Row      int         `json:"row"`
	TopPx    int         `json:"topPx"`
	Geometry BarGeometry `json:"geometry"`
}

// Schedule is a fully laid out timeline for one snapshot of tasks.
type Schedule struct {
	Range      DateRange         `json:"range"`
	Resolution models.Resolution `json:"resolution"`
	Columns    []Column          `json:"columns"`
	Rows       []ScheduleRow     `json:"rows"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
}

// LayoutSchedule runs the render path over tasks: build the forest, flatten,
// filter by expanded and place every visible row. A nil expanded set means
// no explicit choice was made and the tree is shown fully expanded.
func LayoutSchedule(tasks []models.Task, expanded IDSet, res models.Resolution, now time.Time, cfg models.TimelineConfig) Schedule {
	rows := Flatten(BuildForest(tasks))
	if expanded == nil {
		expanded = DefaultExpanded(rows)
	}
	visible := ComputeVisible(rows, expanded)

	rng := DeriveRange(tasks, now, cfg)
	cols := GenerateColumns(rng, res, cfg)

	out := make([]ScheduleRow, len(visible))
	for i, r := range visible {
		out[i] = ScheduleRow{
			FlatRow:  r,
			Row:      i,
			TopPx:    i * cfg.RowHeight,
			Geometry: ComputeBarGeometry(r.Task, rng, res, cfg),
		}
	}
	return Schedule{
		Range:      rng,
		Resolution: res,
		Columns:    cols,
		Rows:       out,
		Width:      len(cols) * cfg.ColumnWidth(res),
		Height:     len(out) * cfg.RowHeight,
	}
}
