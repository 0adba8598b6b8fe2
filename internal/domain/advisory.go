package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Bucket is a severity tier an advisory entry is classified into.
type Bucket string

const (
	BucketSpecial  Bucket = "special"
	BucketWarning  Bucket = "warning"
	BucketAdvisory Bucket = "advisory"
	BucketOther    Bucket = "other"
)

const (
	// StatusLifted is the JMA status string for a rescinded warning.
	StatusLifted = "解除"

	unknownLabel = "不明"

	// updatedAtLayout matches the millisecond UTC form browsers produce for Date.toISOString.
	updatedAtLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Feed is the JMA warning document. Every field is optional upstream.
type Feed struct {
	ReportDatetime string     `json:"reportDatetime,omitempty"`
	AreaTypes      []AreaType `json:"areaTypes,omitempty"`
}

// AreaType is one positional grouping of areas (e.g. sub-prefecture regions, municipalities).
type AreaType struct {
	Areas []Area `json:"areas,omitempty"`
}

// Area is a geographic area with the warnings currently issued for it.
type Area struct {
	Code     string    `json:"code,omitempty"`
	Name     string    `json:"name,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Warning is a single warning entry on an area.
type Warning struct {
	Code   string `json:"code,omitempty"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}

// Buckets holds the emitted entry labels per severity tier in first-seen order.
type Buckets struct {
	Special  []string `json:"special"`
	Warning  []string `json:"warning"`
	Advisory []string `json:"advisory"`
}

// Summary is the compact advisory snapshot served to the display layer.
type Summary struct {
	UpdatedAt string  `json:"updatedAt"`
	Buckets   Buckets `json:"buckets"`
	HasAny    bool    `json:"hasAny"`
}

// Counts returns the number of entries per emitted bucket.
func (s Summary) Counts() map[Bucket]int {
	return map[Bucket]int{
		BucketSpecial:  len(s.Buckets.Special),
		BucketWarning:  len(s.Buckets.Warning),
		BucketAdvisory: len(s.Buckets.Advisory),
	}
}

// SameEntries reports whether two summaries carry identical buckets, ignoring UpdatedAt.
func (s Summary) SameEntries(other Summary) bool {
	return slices.Equal(s.Buckets.Special, other.Buckets.Special) &&
		slices.Equal(s.Buckets.Warning, other.Buckets.Warning) &&
		slices.Equal(s.Buckets.Advisory, other.Buckets.Advisory)
}

// UpstreamFetchError reports a transport failure or non-success status from the feed.
type UpstreamFetchError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream fetch failed: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream fetch failed: %v", e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// Classify maps a warning code to its bucket by its first character.
func Classify(code string) Bucket {
	switch {
	case strings.HasPrefix(code, "3"):
		return BucketSpecial
	case strings.HasPrefix(code, "0"):
		return BucketWarning
	case strings.HasPrefix(code, "1"), strings.HasPrefix(code, "2"):
		return BucketAdvisory
	default:
		return BucketOther
	}
}

// Label builds the display label for a warning on an area.
func Label(w Warning, areaName string) string {
	name := w.Name
	if name == "" {
		name = w.Code
	}
	if name == "" {
		name = unknownLabel
	}
	if areaName == "" {
		return name
	}
	return name + "（" + areaName + "）"
}

// ScannedAreas flattens the first two area groups of the feed in order.
func ScannedAreas(feed Feed) []Area {
	var areas []Area
	for i := 0; i < 2 && i < len(feed.AreaTypes); i++ {
		areas = append(areas, feed.AreaTypes[i].Areas...)
	}
	return areas
}

// NormalizeFeed classifies, labels and de-duplicates the active warnings of a feed.
// Lifted warnings are dropped and the other bucket is never emitted.
func NormalizeFeed(feed Feed) Summary {
	buckets := Buckets{
		Special:  []string{},
		Warning:  []string{},
		Advisory: []string{},
	}
	seen := make(map[string]struct{})

	for _, area := range ScannedAreas(feed) {
		for _, w := range area.Warnings {
			if w.Status == StatusLifted {
				continue
			}
			kind := BucketOther
			if w.Code != "" {
				kind = Classify(w.Code)
			}
			entry := Label(w, area.Name)
			key := string(kind) + ":" + entry
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			switch kind {
			case BucketSpecial:
				buckets.Special = append(buckets.Special, entry)
			case BucketWarning:
				buckets.Warning = append(buckets.Warning, entry)
			case BucketAdvisory:
				buckets.Advisory = append(buckets.Advisory, entry)
			}
		}
	}

	updatedAt := feed.ReportDatetime
	if updatedAt == "" {
		updatedAt = FormatTimestamp(clock.Now())
	}

	return Summary{
		UpdatedAt: updatedAt,
		Buckets:   buckets,
		HasAny:    len(buckets.Special)+len(buckets.Warning)+len(buckets.Advisory) > 0,
	}
}

// FormatTimestamp renders t in the summary timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(updatedAtLayout)
}
