package composition

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/ceramigo/pkg/errors"
)

// VocabularyVersion is bumped whenever the fingerprint layout changes.
const VocabularyVersion = 1

var symbolPattern = regexp.MustCompile(`^[A-Z][a-z]*$`)

// Vocabulary is the ordered element list that defines target columns. It is
// frozen when a dataset is built and travels with the trained model, so that
// inference never re-derives it. Fields are exported for gob only; treat a
// Vocabulary as immutable.
type Vocabulary struct {
	Symbols []string
	Version int
	Digest  string
}

// NewVocabulary creates a vocabulary in the given order. Symbols must be
// non-empty, unique, and look like element symbols.
func NewVocabulary(symbols []string) (*Vocabulary, error) {
	if len(symbols) == 0 {
		return nil, errors.NewSchemaError("NewVocabulary", "vocabulary is empty", nil, nil)
	}
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if !symbolPattern.MatchString(s) {
			return nil, errors.NewValidationError("symbol", "must match [A-Z][a-z]*", s)
		}
		if _, dup := seen[s]; dup {
			return nil, errors.NewValidationError("symbol", "duplicate in vocabulary", s)
		}
		seen[s] = struct{}{}
	}

	v := &Vocabulary{
		Symbols: slices.Clone(symbols),
		Version: VocabularyVersion,
	}
	v.Digest = v.Fingerprint()
	return v, nil
}

// DiscoverVocabulary returns the lexicographically sorted union of the
// symbols of comps. It fails when no composition contains an element.
func DiscoverVocabulary(comps []Composition) (*Vocabulary, error) {
	set := map[string]struct{}{}
	for _, c := range comps {
		for s := range c {
			set[s] = struct{}{}
		}
	}
	symbols := make([]string, 0, len(set))
	for s := range set {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return NewVocabulary(symbols)
}

// Len returns the number of elements.
func (v *Vocabulary) Len() int { return len(v.Symbols) }

// Index returns the column of symbol.
func (v *Vocabulary) Index(symbol string) (int, bool) {
	i := slices.Index(v.Symbols, symbol)
	return i, i >= 0
}

// Fingerprint hashes the version and the ordered symbols.
func (v *Vocabulary) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte("v" + strconv.Itoa(v.Version) + ":"))
	h.Write([]byte(strings.Join(v.Symbols, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// ShortFingerprint returns the first 12 hex digits of the fingerprint.
func (v *Vocabulary) ShortFingerprint() string {
	return v.Fingerprint()[:12]
}

// Verify checks that a decoded vocabulary is well formed and matches the
// digest recorded when it was created.
func (v *Vocabulary) Verify() error {
	if v == nil || len(v.Symbols) == 0 {
		return errors.NewSchemaError("Vocabulary.Verify", "vocabulary is empty", nil, nil)
	}
	if v.Version != VocabularyVersion {
		return errors.NewSchemaError("Vocabulary.Verify",
			"unsupported vocabulary version "+strconv.Itoa(v.Version), nil, nil)
	}
	if got := v.Fingerprint(); got != v.Digest {
		return errors.NewSchemaError("Vocabulary.Verify", "fingerprint mismatch",
			[]string{v.Digest}, []string{got})
	}
	return nil
}

// Equal reports whether both vocabularies list the same symbols in the same
// order.
func (v *Vocabulary) Equal(other *Vocabulary) bool {
	return other != nil && slices.Equal(v.Symbols, other.Symbols)
}

// Dense projects c onto the vocabulary. Symbols outside the vocabulary are a
// SchemaError since silently dropping them would change the target space.
func (v *Vocabulary) Dense(c Composition) (Vector, error) {
	values := make([]float64, len(v.Symbols))
	var unknown []string
	for _, s := range c.Symbols() {
		i, ok := v.Index(s)
		if !ok {
			unknown = append(unknown, s)
			continue
		}
		values[i] = c[s]
	}
	if len(unknown) > 0 {
		return Vector{}, errors.NewSchemaError("Vocabulary.Dense",
			"elements outside the vocabulary", v.Symbols, unknown)
	}
	return Vector{vocab: v, values: values}, nil
}
