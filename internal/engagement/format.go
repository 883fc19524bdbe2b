package engagement

import "fmt"

// FormatDaysSince renders a day count as a human-readable recency label
func FormatDaysSince(days int) string {
	switch {
	case days == 0:
		return "Active today"
	case days == 1:
		return "1 day ago"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		weeks := days / 7
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case days < 60:
		months := days / 30
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		return "Over 2 months ago"
	}
}
