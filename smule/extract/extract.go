// Package extract pulls the encrypted media token and a few descriptive
// fields out of recording page markup with targeted scans. The page embeds
// its data in an undocumented script format, so nothing here parses the
// document structure.
package extract

import (
	"regexp"
	"strings"

	"github.com/ytget/smuledl/errs"
	"github.com/ytget/smuledl/internal/logger"
	"github.com/ytget/smuledl/types"
)

const op = "extract media token"

// DefaultFields lists the media fields in priority order.
// visualizer_media_url is deliberately absent.
var DefaultFields = []string{
	"video_media_mp4_url",
	"video_media_url",
	"media_url",
	"audio_media_url",
}

// Field matches one named string field embedded in markup.
type Field struct {
	Name string
	re   *regexp.Regexp
}

// NewField compiles a matcher for "name":"value". The key is matched with
// its opening quote so "media_url" never matches inside "visualizer_media_url".
// Backslash escapes in the value are kept verbatim.
func NewField(name string) Field {
	return Field{
		Name: name,
		re:   regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`),
	}
}

// Find returns the first non-empty value of the field in markup.
func (f Field) Find(markup string) (string, bool) {
	for _, m := range f.re.FindAllStringSubmatch(markup, -1) {
		if m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

// Match is the winning field and its token.
type Match struct {
	Field string
	Token types.Token
}

// Extractor applies field matchers in priority order.
type Extractor struct {
	fields []Field
	log    *logger.ComponentLogger
}

// New returns an Extractor for the given field names, highest priority
// first. With no names it uses DefaultFields.
func New(names ...string) *Extractor {
	if len(names) == 0 {
		names = DefaultFields
	}
	fields := make([]Field, 0, len(names))
	for _, n := range names {
		fields = append(fields, NewField(n))
	}
	return &Extractor{
		fields: fields,
		log:    logger.WithComponent(logger.ComponentExtract),
	}
}

// Fields returns the field names in priority order.
func (e *Extractor) Fields() []string {
	names := make([]string, len(e.fields))
	for i, f := range e.fields {
		names[i] = f.Name
	}
	return names
}

// Match returns the first field with a non-empty value, or errs.ErrNotFound.
func (e *Extractor) Match(markup string) (Match, error) {
	for _, f := range e.fields {
		if v, ok := f.Find(markup); ok {
			e.log.Debug("media field found", map[string]interface{}{"field": f.Name, "length": len(v)})
			return Match{Field: f.Name, Token: types.Token(v)}, nil
		}
	}
	e.log.Debug("no media field", map[string]interface{}{"fields": strings.Join(e.Fields(), ",")})
	return Match{}, errs.NotFound(op)
}

// Extract returns the token of the highest-priority non-empty field.
func (e *Extractor) Extract(markup string) (types.Token, error) {
	m, err := e.Match(markup)
	return m.Token, err
}

var defaultExtractor = New()

// Extract runs the default extractor over markup.
func Extract(markup string) (types.Token, error) {
	return defaultExtractor.Extract(markup)
}
