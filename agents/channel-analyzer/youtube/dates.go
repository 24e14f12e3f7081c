package youtube

import (
	"regexp"
	"strings"
	"time"

	"video-analyzer/internal/models"
)

// Publish dates arrive in whatever shape the winning source produced.
var publishDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"20060102", // yt-dlp upload_date
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// embeddedDateRE finds a date inside rendered text such as "Premiered Apr 9, 2023".
var embeddedDateRE = regexp.MustCompile(`[A-Z][a-z]{2,8} \d{1,2}, \d{4}|\d{1,2} [A-Z][a-z]{2,8} \d{4}`)

// ParsePublishDate returns false when no known layout matches.
func ParsePublishDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseLayouts(s); ok {
		return t, true
	}
	if m := embeddedDateRE.FindString(s); m != "" {
		return parseLayouts(m)
	}
	return time.Time{}, false
}

func parseLayouts(s string) (time.Time, bool) {
	for _, layout := range publishDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PublishedOnOrAfter is a fail-open filter: records whose date cannot be
// parsed are kept, as is everything when after is zero.
func PublishedOnOrAfter(video *models.Video, after time.Time) bool {
	if after.IsZero() {
		return true
	}
	published, ok := ParsePublishDate(video.PublishDate)
	if !ok {
		return true
	}
	return !published.Before(after)
}
