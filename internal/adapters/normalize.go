package adapters

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

const maxDescriptionLen = 500

// trackingParams are stripped from every canonical URL so that the same
// article reached via different campaign links still fingerprints the
// same way. Adapted from the dedup service's URL tracking-param list.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"fbclid": {}, "gclid": {}, "msclkid": {},
	"ref": {}, "source": {}, "campaign": {},
	"_ga": {}, "mc_eid": {}, "mc_cid": {}, "campaign_id": {}, "ad_id": {},
}

// CanonicalizeURL lowercases the host, strips tracking query params, the
// fragment, and a trailing slash, so equivalent campaign links collapse
// to the same canonical form before fingerprinting.
func CanonicalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.TrimSpace(raw), "/")
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if _, tracked := trackingParams[lower]; tracked || strings.HasPrefix(lower, "utm_") {
			q.Del(key)
		}
	}
	// Re-encode with sorted keys for a stable canonical form.
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, k := range keys {
		values[k] = q[k]
	}
	u.RawQuery = values.Encode()

	canonical := u.String()
	return strings.TrimSuffix(canonical, "/")
}

// TruncateDescription enforces the 500-char normalization rule; never
// returns a nil/empty-unsafe value.
func TruncateDescription(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxDescriptionLen {
		return s
	}
	return string(runes[:maxDescriptionLen])
}

// publishedAtLayouts are tried in order, the relaxed-parsing idiom a feed
// connector uses when providers disagree on date formatting.
var publishedAtLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon, 02 Jan 2006 15:04:05 -0700",
}

// ParsePublishedAt tries every known layout and falls back to firstSeenAt
// (in UTC) on total failure, per the normalization rule in §4.1.
func ParsePublishedAt(raw string, firstSeenAt time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return firstSeenAt.UTC()
	}
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return firstSeenAt.UTC()
}

// ContentOrDescription applies the "content defaults to description when
// the provider gives no body" rule.
func ContentOrDescription(content, description string) string {
	content = strings.TrimSpace(content)
	if content != "" {
		return content
	}
	return description
}

// SourceNameOrFallback applies the "provider name, else adapter name" rule.
func SourceNameOrFallback(reported, adapterName string) string {
	reported = strings.TrimSpace(reported)
	if reported != "" {
		return reported
	}
	return adapterName
}
