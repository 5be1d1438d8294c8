package service

import "time"

// 日期范围 token（前端筛选条件的 date_range 字段）
// 各行为指标按同一套语义解释
const (
	DateRangeToday      = "today"
	DateRangeThisWeek   = "this_week"
	DateRangeThisMonth  = "this_month"
	DateRangeLastMonth  = "last_month"
	DateRangeLast30Days = "last_30_days"
	DateRangeLast90Days = "last_90_days"
	DateRangeLast180   = "last_180_days"
	DateRangeThisYear   = "this_year"
)

// parseDateRange 把 date_range token 翻译为 [start, end) 时间窗口
// 返回的零值时间表示该侧不限定；未知 token 视为不限定（ok=false）
func parseDateRange(token string, now time.Time) (start, end time.Time, ok bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch token {
	case DateRangeToday:
		return midnight, midnight.AddDate(0, 0, 1), true
	case DateRangeThisWeek:
		// 周一为一周起点
		offset := (int(midnight.Weekday()) + 6) % 7
		weekStart := midnight.AddDate(0, 0, -offset)
		return weekStart, weekStart.AddDate(0, 0, 7), true
	case DateRangeThisMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return monthStart, monthStart.AddDate(0, 1, 0), true
	case DateRangeLastMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return monthStart.AddDate(0, -1, 0), monthStart, true
	case DateRangeLast30Days:
		return midnight.AddDate(0, 0, -30), time.Time{}, true
	case DateRangeLast90Days:
		return midnight.AddDate(0, 0, -90), time.Time{}, true
	case DateRangeLast180:
		return midnight.AddDate(0, 0, -180), time.Time{}, true
	case DateRangeThisYear:
		yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return yearStart, yearStart.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}
