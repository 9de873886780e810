package detection

import (
	"math"
	"strings"

	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/shared"
)

// Manifest describes the classes a model emits and how they map onto defects
type Manifest struct {
	Name      string            `yaml:"name"`
	Version   string            `yaml:"version"`
	Classes   []string          `yaml:"classes"`
	GoodClass string            `yaml:"good_class"`
	InputSize int               `yaml:"input_size"`
	Cutoff    float64           `yaml:"cutoff"`
	// DefectTypes maps a class label to a defect type; unmapped classes are visual
	DefectTypes map[string]string `yaml:"defect_types"`
}

// DefaultManifest is the three-class good/minor/major model
func DefaultManifest() Manifest {
	return Manifest{
		Name:      "defect-classifier",
		Version:   "1",
		Classes:   []string{"good", "minor_defect", "major_defect"},
		GoodClass: "good",
		InputSize: 224,
		Cutoff:    DefaultCutoff,
	}
}

// Validate checks the manifest is usable
func (m Manifest) Validate() error {
	if len(m.Classes) == 0 {
		return shared.NewDomainError("INVALID_MANIFEST", "manifest must list at least one class")
	}
	seen := make(map[string]struct{}, len(m.Classes))
	for _, c := range m.Classes {
		if strings.TrimSpace(c) == "" {
			return shared.NewDomainError("INVALID_MANIFEST", "manifest class labels cannot be empty")
		}
		if _, dup := seen[c]; dup {
			return shared.NewDomainError("INVALID_MANIFEST", "duplicate class label "+c)
		}
		seen[c] = struct{}{}
	}
	if m.GoodClass != "" {
		if _, ok := seen[m.GoodClass]; !ok {
			return shared.NewDomainError("INVALID_MANIFEST", "good class "+m.GoodClass+" is not a listed class")
		}
	}
	for class, t := range m.DefectTypes {
		if _, ok := seen[class]; !ok {
			return shared.NewDomainError("INVALID_MANIFEST", "defect type mapped for unknown class "+class)
		}
		if !defect.Type(t).IsValid() {
			return shared.NewDomainError("INVALID_MANIFEST", "class "+class+" maps to unknown defect type "+t)
		}
	}
	if m.Cutoff < 0 || m.Cutoff > 1 {
		return shared.NewDomainError("INVALID_MANIFEST", "cutoff must be between 0 and 1")
	}
	return nil
}

// DefectTypeFor maps a class label to a defect type
func (m Manifest) DefectTypeFor(class string) string {
	if t, ok := m.DefectTypes[class]; ok && t != "" {
		return t
	}
	return "visual"
}

// Interpret turns per-class probabilities into a Result. Scores must be in
// manifest class order; cutoff overrides the manifest's when positive.
func (m Manifest) Interpret(scores []float64, cutoff float64) (Result, error) {
	if len(scores) != len(m.Classes) {
		return Result{}, shared.NewDomainError("INVALID_PREDICTION", "prediction does not match manifest classes")
	}
	if cutoff <= 0 {
		cutoff = m.Cutoff
	}
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}

	best := 0
	r := Result{Scores: make(map[string]int, len(scores))}
	for i, s := range scores {
		r.Scores[m.Classes[i]] = int(math.Round(s * 100))
		if s > scores[best] {
			best = i
		}
	}
	r.Class = m.Classes[best]
	r.Confidence = scores[best]
	r.HasDefect = r.Class != m.GoodClass && r.Confidence > cutoff
	if r.HasDefect {
		r.DefectType = m.DefectTypeFor(r.Class)
	}
	return r, nil
}
