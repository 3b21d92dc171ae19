package coverage

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind names one of the ten coverage indices.
type Kind int

// The index registry. The zero value is not a valid Kind.
const (
	CoverageVulnerability Kind = iota + 1
	Accessibility
	BlackSpot
	ExpansionDemand
	RedundancyRisk
	EmergencyRisk
	ExpansionPriority
	Readiness
	NetworkStress
	AccessibilityByDistance
)

// Subject says what an index scores.
type Subject string

const (
	SubjectCell           Subject = "cell"
	SubjectInfrastructure Subject = "infrastructure"
)

// Form is the shape of an index formula.
type Form int

const (
	// FormLinear scores DemandCoef*demand + InfraCoef*infra.
	FormLinear Form = iota + 1
	// FormRatio scores demand / (infra + Smoothing).
	FormRatio
	// FormInverse scores 1 / (infra + Smoothing).
	FormInverse
	// FormFlag is true when demand > 0 and infra == 0.
	FormFlag
	// FormLoad scores the dependents count of an infrastructure point.
	FormLoad
	// FormDistance scores 1 / (nearest_km + Smoothing).
	FormDistance
)

// Definition is the immutable description of an index.
type Definition struct {
	Kind       Kind
	Slug       string
	Title      string
	Subject    Subject
	Form       Form
	DemandCoef float64
	InfraCoef  float64
	Smoothing  float64
	// HighMeans describes a high score for renderers.
	HighMeans string
	// Descending is the default ranking direction.
	Descending bool
	aliases    []string
}

var definitions = [...]Definition{
	{Kind: CoverageVulnerability, Slug: "coverage_vulnerability", Title: "coverage vulnerability",
		Subject: SubjectCell, Form: FormLinear, DemandCoef: 1.5, InfraCoef: -1.0,
		HighMeans: "underserved", Descending: true, aliases: []string{"tcvi", "vulnerability"}},
	{Kind: Accessibility, Slug: "accessibility", Title: "accessibility",
		Subject: SubjectCell, Form: FormLinear, DemandCoef: -0.5, InfraCoef: 1.2,
		HighMeans: "well served", Descending: true, aliases: []string{"tai"}},
	{Kind: BlackSpot, Slug: "black_spot", Title: "black spot",
		Subject: SubjectCell, Form: FormFlag,
		HighMeans: "settlements without towers", Descending: true, aliases: []string{"blackspot", "black_spots"}},
	{Kind: ExpansionDemand, Slug: "expansion_demand", Title: "expansion demand",
		Subject: SubjectCell, Form: FormRatio, DemandCoef: 1, Smoothing: 1,
		HighMeans: "build here", Descending: true, aliases: []string{"hdtz", "high_demand"}},
	{Kind: RedundancyRisk, Slug: "redundancy_risk", Title: "redundancy risk",
		Subject: SubjectCell, Form: FormInverse, Smoothing: 1,
		HighMeans: "single point of failure", Descending: true, aliases: []string{"trri", "redundancy"}},
	{Kind: EmergencyRisk, Slug: "emergency_risk", Title: "emergency risk",
		Subject: SubjectCell, Form: FormLinear, DemandCoef: 2, InfraCoef: -1,
		HighMeans: "disaster vulnerability", Descending: true, aliases: []string{"ecri", "emergency"}},
	{Kind: ExpansionPriority, Slug: "expansion_priority", Title: "expansion priority",
		Subject: SubjectCell, Form: FormLinear, DemandCoef: 2, InfraCoef: -1.5,
		HighMeans: "priority build site", Descending: true, aliases: []string{"priority"}},
	{Kind: Readiness, Slug: "readiness", Title: "readiness",
		Subject: SubjectCell, Form: FormLinear, DemandCoef: 1, InfraCoef: 2,
		HighMeans: "upgrade candidate", Descending: true, aliases: []string{"sctri", "smart_city"}},
	{Kind: NetworkStress, Slug: "network_stress", Title: "network stress",
		Subject: SubjectInfrastructure, Form: FormLoad,
		HighMeans: "congestion risk", Descending: true, aliases: []string{"tnsi", "ntdi", "dependency", "stress"}},
	{Kind: AccessibilityByDistance, Slug: "accessibility_distance", Title: "accessibility by distance",
		Subject: SubjectCell, Form: FormDistance, Smoothing: 0.1,
		HighMeans: "close to infrastructure", Descending: true, aliases: []string{"accessibility_by_distance", "distance"}},
}

// Kinds returns every registered kind in registry order.
func Kinds() []Kind {
	kinds := make([]Kind, len(definitions))
	for i, d := range definitions {
		kinds[i] = d.Kind
	}
	return kinds
}

// Valid reports whether k is a registered kind.
func (k Kind) Valid() bool {
	return k >= CoverageVulnerability && k <= AccessibilityByDistance
}

// Definition returns the registry entry for k. It panics for invalid kinds.
func (k Kind) Definition() Definition {
	return definitions[k-1]
}

// String returns the slug.
func (k Kind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return definitions[k-1].Slug
}

// MarshalText encodes the slug.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, invalidf("coverage: invalid index kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts anything ParseKind does.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// UsesDemand reports whether scoring k needs demand counts.
func (k Kind) UsesDemand() bool {
	switch k.Definition().Form {
	case FormInverse, FormDistance:
		return false
	default:
		return true
	}
}

// UsesInfraCounts reports whether scoring k needs infrastructure radius counts.
func (k Kind) UsesInfraCounts() bool {
	switch k.Definition().Form {
	case FormLinear, FormRatio, FormInverse, FormFlag:
		return true
	default:
		return false
	}
}

// Aliases returns the short names ParseKind also accepts for the index.
func (d Definition) Aliases() []string {
	return slices.Clone(d.aliases)
}

// Formula describes how the index scores a subject.
func (d Definition) Formula() string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	switch d.Form {
	case FormLinear:
		sign, infra := "+", d.InfraCoef
		if infra < 0 {
			sign, infra = "-", -infra
		}
		return fmt.Sprintf("%s*demand %s %s*infra", num(d.DemandCoef), sign, num(infra))
	case FormRatio:
		return fmt.Sprintf("demand / (infra + %s)", num(d.Smoothing))
	case FormInverse:
		return fmt.Sprintf("1 / (infra + %s)", num(d.Smoothing))
	case FormFlag:
		return "demand > 0 and infra == 0"
	case FormLoad:
		return "dependents (demand points nearest to it)"
	case FormDistance:
		return fmt.Sprintf("1 / (nearest_km + %s)", num(d.Smoothing))
	}
	return ""
}

// ParseKind accepts a slug, a title, or one of the short aliases.
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for _, d := range definitions {
		if key == d.Slug || key == strings.ReplaceAll(d.Title, " ", "_") {
			return d.Kind, nil
		}
		for _, a := range d.aliases {
			if key == a {
				return d.Kind, nil
			}
		}
	}
	return 0, invalidf("coverage: unknown index %q", s)
}

// Inputs carries the values a formula may read. NearestKM is nil when no
// infrastructure point was reachable.
type Inputs struct {
	Demand     int
	Infra      int
	Dependents int
	NearestKM  *float64
}

// Evaluate scores one subject under index k. flag is only meaningful for
// BlackSpot, whose score is 1 when flagged and 0 otherwise. Invalid kinds
// score 0.
func Evaluate(k Kind, in Inputs) (score float64, flag bool) {
	if !k.Valid() {
		return 0, false
	}
	d := k.Definition()
	demand, infra := float64(in.Demand), float64(in.Infra)

	switch d.Form {
	case FormLinear:
		return d.DemandCoef*demand + d.InfraCoef*infra, false
	case FormRatio:
		return d.DemandCoef * demand / (infra + d.Smoothing), false
	case FormInverse:
		return 1 / (infra + d.Smoothing), false
	case FormFlag:
		if in.Demand > 0 && in.Infra == 0 {
			return 1, true
		}
		return 0, false
	case FormLoad:
		return float64(in.Dependents), false
	case FormDistance:
		if in.NearestKM == nil {
			return 0, false
		}
		return 1 / (*in.NearestKM + d.Smoothing), false
	}
	return 0, false
}
