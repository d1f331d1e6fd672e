package types

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Reference identifies a recording as "<owner id>_<recording id>".
type Reference string

// Kind selects which page template a reference is looked up under.
type Kind int

const (
	// KindSolo is a solo performance served under /sing-recording/.
	KindSolo Kind = iota
	// KindEnsemble is a collaboration served under /c/.
	KindEnsemble
)

var referencePattern = regexp.MustCompile(`^[0-9]+_[0-9]+$`)

// ErrInvalidReference is returned for strings that are not "<digits>_<digits>".
var ErrInvalidReference = errors.New("invalid recording reference")

// ParseReference validates s and returns it as a Reference.
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if !referencePattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, s)
	}
	return Reference(s), nil
}

// String implements fmt.Stringer.
func (r Reference) String() string {
	return string(r)
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindEnsemble:
		return "ensemble"
	default:
		return "solo"
	}
}

// PagePath returns the page path for ref under this kind's template.
func (k Kind) PagePath(ref Reference) string {
	if k == KindEnsemble {
		return "/c/" + url.PathEscape(string(ref))
	}
	return "/sing-recording/" + url.PathEscape(string(ref))
}

// ParseKind maps "solo" and "ensemble" (or "c") to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "solo", "sing-recording":
		return KindSolo, nil
	case "ensemble", "collab", "c":
		return KindEnsemble, nil
	}
	return KindSolo, fmt.Errorf("unknown performance kind %q", s)
}

// ParseRecordingURL accepts a pasted recording link or a bare reference and
// returns the reference with the template it was shared under. A missing
// scheme is tolerated and query strings are ignored. Links under /c/ are
// ensembles; everything else is looked up as a solo recording.
func ParseRecordingURL(raw string) (Reference, Kind, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", KindSolo, fmt.Errorf("%w: empty input", ErrInvalidReference)
	}
	if referencePattern.MatchString(raw) {
		return Reference(raw), KindSolo, nil
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", KindSolo, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	kind := KindSolo
	if len(segments) > 0 && segments[0] == "c" {
		kind = KindEnsemble
	}
	for i := len(segments) - 1; i >= 0; i-- {
		if referencePattern.MatchString(segments[i]) {
			return Reference(segments[i]), kind, nil
		}
	}
	return "", KindSolo, fmt.Errorf("%w: no recording key in %q", ErrInvalidReference, u.Path)
}
