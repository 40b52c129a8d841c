// Package extract loads the DANE population spreadsheets and maps each one
// onto the canonical five-column schema.
package extract

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/resilience"
)

// Descriptor describes how to read one source extract.
type Descriptor struct {
	Name        string
	Period      string
	Path        string
	Sheet       string // empty selects the first sheet
	HeaderRow   int    // 0-based; data starts on the next row
	FirstColumn int    // 0-based index of the region code column
	Normalize   *CompositeRule
}

// Resource names the file, and the sheet when one is selected.
func (d Descriptor) Resource() string {
	if d.Sheet == "" {
		return d.Path
	}
	return d.Path + "#" + d.Sheet
}

// CompositeRule rewrites territory labels that combine the target region
// with an adjacent sub-region (e.g. "Antioquia y Urabá") to the bare region.
type CompositeRule struct {
	Region string
	Suffix string
	re     *regexp.Regexp
}

// NewCompositeRule builds a case-insensitive "<region>.*<suffix>" rule.
func NewCompositeRule(region, suffix string) (*CompositeRule, error) {
	if region == "" || suffix == "" {
		return nil, eris.New("extract: composite rule needs region and suffix")
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(normalizeText(region)) + ".*" + regexp.QuoteMeta(normalizeText(suffix)))
	if err != nil {
		return nil, eris.Wrap(err, "extract: compile composite rule")
	}
	return &CompositeRule{Region: region, Suffix: suffix, re: re}, nil
}

// Apply replaces the composite span with the region name. Names without the
// pattern pass through. Applying twice gives the same result as once.
func (r *CompositeRule) Apply(name string) string {
	if r == nil {
		return name
	}
	return r.re.ReplaceAllLiteralString(name, r.Region)
}

// Registry keeps descriptors in insertion order so concatenation is
// deterministic.
type Registry struct {
	descriptors map[string]Descriptor
	order       []string
	retry       resilience.RetryConfig
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]Descriptor)}
}

// Register adds or replaces a descriptor.
func (r *Registry) Register(d Descriptor) {
	if _, ok := r.descriptors[d.Name]; !ok {
		r.order = append(r.order, d.Name)
	}
	r.descriptors[d.Name] = d
}

// SetRetry sets the policy for re-reading files that fail to parse. The
// default makes a single attempt.
func (r *Registry) SetRetry(cfg resilience.RetryConfig) {
	r.retry = cfg
}

// Get returns a descriptor by name.
func (r *Registry) Get(name string) (Descriptor, error) {
	d, ok := r.descriptors[name]
	if !ok {
		return Descriptor{}, eris.Errorf("extract: unknown extract %q", name)
	}
	return d, nil
}

// All returns descriptors in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.descriptors[name])
	}
	return out
}

// Len returns the number of registered extracts.
func (r *Registry) Len() int { return len(r.order) }

// NewRegistryFromConfig builds the registry for the configured extracts.
// Relative file names resolve against data.dir.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	var rule *CompositeRule
	reg := NewRegistry()

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Data.ReadAttempts
	if cfg.Data.RetryBackoffMs > 0 {
		retry.InitialBackoff = time.Duration(cfg.Data.RetryBackoffMs) * time.Millisecond
	}
	reg.SetRetry(retry)

	for _, e := range cfg.Extracts {
		d := Descriptor{
			Name:        e.Name,
			Period:      e.Period,
			Path:        resolvePath(cfg.Data.Dir, e.File),
			Sheet:       e.Sheet,
			HeaderRow:   e.HeaderRow,
			FirstColumn: e.Column(),
		}
		if e.CompositeRewrite {
			if rule == nil {
				r, err := NewCompositeRule(cfg.Analysis.TargetRegion, cfg.Analysis.CompositeSuffix)
				if err != nil {
					return nil, err
				}
				rule = r
			}
			d.Normalize = rule
		}
		reg.Register(d)
	}
	return reg, nil
}

func resolvePath(dir, file string) string {
	if filepath.IsAbs(file) || dir == "" {
		return file
	}
	return filepath.Join(dir, file)
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

func isXLSX(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".xlsx" || ext == ".xlsm"
}
