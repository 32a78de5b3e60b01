package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/newslinker/internal/linker"
)

// DefaultFuzzyRatio is the PartialRatio at which two names are merged.
const DefaultFuzzyRatio = 90

var stopWords = map[string]struct{}{
	"the": {},
	"a":   {},
	"mr":  {},
	"mrs": {},
	"ms":  {},
}

var badEntityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+\S`),
	regexp.MustCompile(`^([0-9]|0[0-9]|1[0-9]|2[0-3]):[0-5][0-9]$`),
}

// Extractor groups recognized entities by category and cleans them up.
type Extractor struct {
	recognizer Recognizer
	problems   []linker.ProblemEntity
	ratio      int
	logger     *zap.Logger
}

// NewExtractor constructs an Extractor. problems lists names the recognizer
// is known to miss; they are added whenever they occur verbatim in the text.
func NewExtractor(recognizer Recognizer, problems []linker.ProblemEntity, ratio int, logger *zap.Logger) (*Extractor, error) {
	if recognizer == nil {
		return nil, errors.New("recognizer is required")
	}
	if ratio <= 0 || ratio > 100 {
		ratio = DefaultFuzzyRatio
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{recognizer: recognizer, problems: problems, ratio: ratio, logger: logger}, nil
}

// Extract returns the candidate names found in text.
func (x *Extractor) Extract(ctx context.Context, text string) (map[linker.Category][]string, error) {
	out := make(map[linker.Category][]string)
	if text == "" {
		return out, nil
	}
	entities, err := x.recognizer.Recognize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("recognize entities: %w", err)
	}

	seen := make(map[string]struct{})
	for _, p := range x.problems {
		c, ok := CategoryForLabel(p.Label)
		if !ok || p.Name == "" || !strings.Contains(text, p.Name) {
			continue
		}
		out[c] = append(out[c], p.Name)
		seen[p.Name] = struct{}{}
	}

	for _, ent := range entities {
		c, ok := CategoryForLabel(ent.Label)
		if !ok {
			continue
		}
		name := RemoveStopWords(ent.Text)
		if name == "" || IsBadEntity(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out[c] = append(out[c], name)
	}

	for c, names := range out {
		out[c] = Dedupe(names, x.ratio)
	}
	x.logger.Debug("entities extracted", zap.Int("recognized", len(entities)))
	return out, nil
}

// RemoveStopWords drops articles and honorifics from a name.
func RemoveStopWords(name string) string {
	words := strings.Fields(name)
	kept := words[:0]
	for _, w := range words {
		if _, stop := stopWords[strings.ToLower(w)]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// IsBadEntity reports names that are numbers or clock times rather than
// entities.
func IsBadEntity(name string) bool {
	for _, re := range badEntityPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
