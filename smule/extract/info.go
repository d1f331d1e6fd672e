package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ytget/smuledl/types"
)

var performanceType = NewField("type")

// typeValue keeps the performance marker to plain identifiers.
var typeValue = regexp.MustCompile(`^[A-Za-z_]+$`)

// ExtractInfo reads the recording's Open Graph and Twitter card meta tags
// and the performance type marker. Missing fields are left empty.
func ExtractInfo(markup string) types.RecordingInfo {
	var info types.RecordingInfo

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err == nil {
		info.Title = metaContent(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`)
		info.Description = metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`)
		info.Thumbnail = metaContent(doc, `meta[property="og:image"]`, `meta[name="twitter:image"]`)
		info.StreamURL = metaContent(doc, `meta[name="twitter:player:stream"]`, `meta[property="twitter:player:stream"]`)
	}

	if v, ok := performanceType.Find(markup); ok && typeValue.MatchString(v) {
		info.PerformanceType = v
	}
	return info
}

// metaContent returns the first non-blank content attribute among selectors.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
