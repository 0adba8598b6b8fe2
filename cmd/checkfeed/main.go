// Command checkfeed normalizes a JMA warning document and runs integrity
// checks on the resulting summary. The document is read from a file, or
// fetched live for a region, and can be compared against an expected summary.
//
// Usage:
//
//	go run ./cmd/checkfeed -feed testdata/warning_170000.json -expect testdata/summary_170000.json
//	go run ./cmd/checkfeed -region 170000
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/zerodelay-service/internal/adapter/jma"
	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

const defaultBaseURL = "https://www.jma.go.jp/bosai/warning/data"

// fixedNow keeps the fallback updatedAt reproducible for documents without reportDatetime.
var fixedNow = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	feedPath := flag.String("feed", "", "path to a saved JMA warning JSON document")
	region := flag.String("region", "", "fetch the live document for this region instead of -feed")
	expectPath := flag.String("expect", "", "optional path to the expected summary JSON")
	baseURL := flag.String("base-url", defaultBaseURL, "JMA warning data base URL")
	flag.Parse()

	if (*feedPath == "") == (*region == "") {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, *feedPath, domain.Region(*region), *expectPath, *baseURL))
}

func run(out io.Writer, feedPath string, region domain.Region, expectPath, baseURL string) int {
	domain.SetClock(clockwork.NewFakeClockAt(fixedNow))
	defer domain.SetClock(nil)

	fmt.Fprintln(out, "=== Advisory Feed Validation ===")
	fmt.Fprintln(out)

	feed, err := loadFeed(feedPath, region, baseURL)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load feed: %v\n", err)
		return 1
	}
	summary := domain.NormalizeFeed(feed)

	phases := []*phase{
		validateShape(feed),
		validateSummary(feed, summary),
	}
	if expectPath != "" {
		expected, err := loadSummary(expectPath)
		if err != nil {
			fmt.Fprintf(out, "FATAL: load expected summary: %v\n", err)
			return 1
		}
		phases = append(phases, validateExpected(expected, summary))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-36s %s\n", p.name, status)
	}

	counts := summary.Counts()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Entries: %d special, %d warning, %d advisory (updatedAt %s)\n",
		counts[domain.BucketSpecial], counts[domain.BucketWarning], counts[domain.BucketAdvisory], summary.UpdatedAt)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadFeed(path string, region domain.Region, baseURL string) (domain.Feed, error) {
	if path == "" {
		if !region.Valid() {
			return domain.Feed{}, fmt.Errorf("unsupported region %q", region)
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		client := jma.NewClient(strings.TrimRight(baseURL, "/"), 10*time.Second, observability.NewMetricsForTesting(), logger)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return client.FetchFeed(ctx, region)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Feed{}, err
	}
	var feed domain.Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return domain.Feed{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return feed, nil
}

func loadSummary(path string) (domain.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Summary{}, err
	}
	var s domain.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Summary{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}

// ── Validation phases ──

// validateShape checks the positional contract the normalizer relies on.
func validateShape(feed domain.Feed) *phase {
	p := &phase{name: "Feed shape"}
	if n := len(feed.AreaTypes); n != 2 {
		p.errorf("expected 2 area groups, got %d (groups past the second are ignored)", n)
	}
	for gi, g := range feed.AreaTypes {
		for ai, a := range g.Areas {
			if a.Name == "" {
				p.errorf("areaTypes[%d].areas[%d] (code %q) has no name", gi, ai, a.Code)
			}
			for wi, w := range a.Warnings {
				if w.Code == "" {
					p.errorf("areaTypes[%d].areas[%d].warnings[%d] has no code; it lands in the unemitted other bucket", gi, ai, wi)
				}
			}
		}
	}
	return p
}

// validateSummary re-derives the summary invariants from the feed.
func validateSummary(feed domain.Feed, s domain.Summary) *phase {
	p := &phase{name: "Summary invariants"}

	if s.Buckets.Special == nil || s.Buckets.Warning == nil || s.Buckets.Advisory == nil {
		p.errorf("bucket slices must be non-nil so they encode as []")
	}

	active := make(map[domain.Bucket]map[string]bool)
	for _, a := range domain.ScannedAreas(feed) {
		for _, w := range a.Warnings {
			if w.Status == domain.StatusLifted || w.Code == "" {
				continue
			}
			b := domain.Classify(w.Code)
			if active[b] == nil {
				active[b] = make(map[string]bool)
			}
			active[b][domain.Label(w, a.Name)] = true
		}
	}

	check := func(b domain.Bucket, entries []string) {
		seen := make(map[string]bool, len(entries))
		for _, e := range entries {
			if seen[e] {
				p.errorf("%s: duplicate entry %q", b, e)
			}
			seen[e] = true
			if !active[b][e] {
				p.errorf("%s: entry %q has no active source warning", b, e)
			}
		}
		for e := range active[b] {
			if !seen[e] {
				p.errorf("%s: active warning %q missing from summary", b, e)
			}
		}
	}
	check(domain.BucketSpecial, s.Buckets.Special)
	check(domain.BucketWarning, s.Buckets.Warning)
	check(domain.BucketAdvisory, s.Buckets.Advisory)

	total := len(s.Buckets.Special) + len(s.Buckets.Warning) + len(s.Buckets.Advisory)
	if s.HasAny != (total > 0) {
		p.errorf("hasAny=%v but %d entries emitted", s.HasAny, total)
	}
	if feed.ReportDatetime != "" && s.UpdatedAt != feed.ReportDatetime {
		p.errorf("updatedAt %q does not match reportDatetime %q", s.UpdatedAt, feed.ReportDatetime)
	}
	return p
}

func validateExpected(expected, got domain.Summary) *phase {
	p := &phase{name: "Expected summary"}
	if diff := cmp.Diff(expected, got); diff != "" {
		p.errorf("summary mismatch (-want +got):\n%s", diff)
	}
	return p
}
