package agenda

import "strings"

// Locale carries the user-facing names the views and the expander need.
// It is passed around as a value; nothing here is process-global.
type Locale struct {
	Name            string
	MonthNames      [12]string
	MonthNamesShort [12]string
	// DayNames and DayNamesShort are indexed by time.Weekday (Sunday first).
	DayNames      [7]string
	DayNamesShort [7]string
	Today         string
	// PointsLabel prefixes the checkpoint count in an event's location line.
	PointsLabel string
}

var Vietnamese = Locale{
	Name: "vi",
	MonthNames: [12]string{
		"Tháng 1", "Tháng 2", "Tháng 3", "Tháng 4", "Tháng 5", "Tháng 6",
		"Tháng 7", "Tháng 8", "Tháng 9", "Tháng 10", "Tháng 11", "Tháng 12",
	},
	MonthNamesShort: [12]string{
		"Thg 1", "Thg 2", "Thg 3", "Thg 4", "Thg 5", "Thg 6",
		"Thg 7", "Thg 8", "Thg 9", "Thg 10", "Thg 11", "Thg 12",
	},
	DayNames:      [7]string{"Chủ Nhật", "Thứ Hai", "Thứ Ba", "Thứ Tư", "Thứ Năm", "Thứ Sáu", "Thứ Bảy"},
	DayNamesShort: [7]string{"CN", "T2", "T3", "T4", "T5", "T6", "T7"},
	Today:         "Hôm nay",
	PointsLabel:   "Số điểm",
}

var English = Locale{
	Name: "en",
	MonthNames: [12]string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
	MonthNamesShort: [12]string{
		"Jan", "Feb", "Mar", "Apr", "May", "Jun",
		"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
	},
	DayNames:      [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	DayNamesShort: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	Today:         "Today",
	PointsLabel:   "Points",
}

// LocaleByName returns the named locale, falling back to Vietnamese.
func LocaleByName(name string) Locale {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "en", "en-us", "english":
		return English
	default:
		return Vietnamese
	}
}
