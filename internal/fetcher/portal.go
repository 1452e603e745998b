package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"sricli/pkg/contracts/domain"
)

// datasetLinkRe matches portal hrefs pointing at monthly dataset files,
// tolerating absolute URLs, paths and trailing query strings.
var datasetLinkRe = regexp.MustCompile(`(?i)sri_ventas_(\d{4})_(\d{2})\.(csv|xlsx)(?:[?#]|$)`)

// DatasetLink is one downloadable dataset discovered on the portal.
type DatasetLink struct {
	URL    string
	Year   int
	Month  string
	Format domain.DatasetFormat
}

// Period returns the link's period as "YYYY-MM".
func (l DatasetLink) Period() string {
	return fmt.Sprintf("%04d-%s", l.Year, l.Month)
}

// FileName returns the canonical local file name for the link.
func (l DatasetLink) FileName() string {
	return domain.DatasetFileName(l.Year, l.Month, l.Format)
}

// DiscoverLinks renders the portal page in a headless browser and extracts
// every dataset link. The portal builds its file list with JavaScript, so a
// plain HTTP GET sees an empty page.
func (f *Fetcher) DiscoverLinks(ctx context.Context) ([]DatasetLink, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", f.config.Headless))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	navCtx, cancelNav := context.WithTimeout(browserCtx, f.config.NavTimeout)
	defer cancelNav()

	var hrefs []string
	js := `Array.from(document.querySelectorAll('a[href]')).map(a => a.getAttribute('href'))`

	err := chromedp.Run(navCtx,
		chromedp.Navigate(f.config.PortalURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(js, &hrefs),
	)
	if err != nil {
		return nil, fmt.Errorf("portal navigation failed: %w", err)
	}

	links := parseDatasetLinks(f.config.PortalURL, hrefs)

	f.logger.InfoContext(ctx, "portal links discovered",
		"portal_url", f.config.PortalURL,
		"anchors", len(hrefs),
		"dataset_links", len(links))

	return links, nil
}

// parseDatasetLinks filters raw hrefs down to dataset files, resolving
// relative paths against the portal URL. Duplicate periods keep the first
// occurrence; results are sorted by period.
func parseDatasetLinks(portalURL string, hrefs []string) []DatasetLink {
	base, err := url.Parse(portalURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]bool)
	var links []DatasetLink

	for _, href := range hrefs {
		matches := datasetLinkRe.FindStringSubmatch(href)
		if matches == nil {
			continue
		}

		year, _ := strconv.Atoi(matches[1])
		link := DatasetLink{
			URL:    href,
			Year:   year,
			Month:  matches[2],
			Format: formatFromExtension(matches[3]),
		}

		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				link.URL = base.ResolveReference(ref).String()
			}
		}

		key := link.Period() + "." + string(link.Format)
		if seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, link)
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].Period() < links[j].Period()
	})

	return links
}

func formatFromExtension(ext string) domain.DatasetFormat {
	if strings.EqualFold(ext, "csv") {
		return domain.DatasetFormatCSV
	}
	return domain.DatasetFormatExcel
}

// ParsePeriod parses a "YYYY-MM" flag value into its year and month parts.
func ParsePeriod(s string) (int, string, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, "", fmt.Errorf("invalid period %q, expected YYYY-MM: %w", s, err)
	}
	return t.Year(), t.Format("01"), nil
}

// periodInRange reports whether period lies inside [from, to]. Empty bounds
// are open ended. Periods are "YYYY-MM" so string comparison orders them.
func periodInRange(period, from, to string) bool {
	if from != "" && period < from {
		return false
	}
	if to != "" && period > to {
		return false
	}
	return true
}
