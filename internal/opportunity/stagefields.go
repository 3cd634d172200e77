// AngelaMos | 2026
// stagefields.go

package opportunity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
)

const dateLayout = "2006-01-02"

// FieldSpec describes one supplementary value captured when a deal enters
// a stage. Revenue marks money fields that become the deal's revenue.
type FieldSpec struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Placeholder string    `json:"placeholder,omitempty"`
	Revenue     bool      `json:"-"`
}

var stageFields = map[policy.Stage][]FieldSpec{
	policy.StageNewLead: {
		{Key: "Company Name", Label: "Company Name", Type: FieldText, Placeholder: "Company or organization name"},
		{Key: "Contact Name", Label: "Contact Name", Type: FieldText, Placeholder: "Primary contact person"},
		{Key: "Email or Phone", Label: "Email or Phone", Type: FieldText, Placeholder: "Contact information"},
		{Key: "Territory", Label: "Territory", Type: FieldText, Placeholder: "North, South, East, West"},
		{Key: "Lead Source", Label: "Lead Source", Type: FieldText, Placeholder: "Website, Referral, Trade Show..."},
	},
	policy.StageContactMade: {
		{Key: "Interest Type", Label: "Interest Type", Type: FieldText, Placeholder: "Windows, Doors, Panels..."},
		{Key: "First Contact Notes", Label: "First Contact Notes", Type: FieldTextarea},
	},
	policy.StageDiscoveryCompleted: {
		{Key: "Project Type", Label: "Project Type", Type: FieldText, Placeholder: "Commercial, Residential..."},
		{Key: "Scope", Label: "Scope", Type: FieldText, Placeholder: "Units / Sqft / Counts"},
		{Key: "Timeline", Label: "Timeline", Type: FieldText},
		{Key: "Buying Role", Label: "Buying Role", Type: FieldText, Placeholder: "Decision Maker, Influencer..."},
		{Key: "Competitors", Label: "Competitors", Type: FieldText},
		{Key: "Discovery Notes", Label: "Discovery Notes", Type: FieldTextarea},
	},
	policy.StageQualifiedOpportunity: {
		{Key: "Qualification Score", Label: "Qualification Score (1-10)", Type: FieldNumber, Placeholder: "1-10"},
		{Key: "Estimated Revenue", Label: "Estimated Revenue", Type: FieldNumber, Revenue: true},
		{Key: "Project Address", Label: "Project Address", Type: FieldText},
		{Key: "Required Product Categories", Label: "Product Categories", Type: FieldText, Placeholder: "Windows, Doors..."},
		{Key: "Link to Plans", Label: "Link to Plans", Type: FieldText},
	},
	policy.StageProposalSent: {
		{Key: "Proposal Amount", Label: "Proposal Amount ($)", Type: FieldNumber, Revenue: true},
		{Key: "Proposal Version", Label: "Version", Type: FieldText, Placeholder: "v1.0"},
		{Key: "Proposal Date", Label: "Proposal Date", Type: FieldDate},
		{Key: "Decision Date", Label: "Decision Date", Type: FieldDate},
		{Key: "Next Meeting", Label: "Next Meeting", Type: FieldDate},
	},
	policy.StageNegotiationDecision: {
		{Key: "Updated Quote", Label: "Updated Quote ($)", Type: FieldNumber, Revenue: true},
		{Key: "Objections", Label: "Objections", Type: FieldTextarea},
		{Key: "Negotiation Notes", Label: "Negotiation Notes", Type: FieldTextarea},
		{Key: "Decision Maker", Label: "Decision Maker Name", Type: FieldText},
	},
	policy.StageVerbalWin: {
		{Key: "Expected Close Date", Label: "Expected Close Date", Type: FieldDate},
		{Key: "Final Deal Value", Label: "Final Deal Value ($)", Type: FieldNumber, Revenue: true},
		{Key: "Handoff Notes", Label: "Handoff Requirements", Type: FieldTextarea},
		{Key: "Delivery Timing", Label: "Delivery Timing", Type: FieldText},
	},
	policy.StageClosedWon: {
		{Key: "Final Deal Value", Label: "Final Value", Type: FieldNumber, Revenue: true},
		{Key: "Final Margin", Label: "Final Margin %", Type: FieldText},
		{Key: "Handoff Notes", Label: "Final Handoff Notes", Type: FieldTextarea},
	},
	policy.StageClosedLost: {
		{Key: "Reason Lost", Label: "Reason Lost", Type: FieldText, Placeholder: "Price, Competitor, Timing..."},
		{Key: "Competitors", Label: "Winning Competitor", Type: FieldText},
		{Key: "Next Outreach", Label: "Notes for Next Cycle", Type: FieldTextarea},
	},
}

// defaultProbability is the win likelihood assigned on entering a stage.
var defaultProbability = map[policy.Stage]decimal.Decimal{
	policy.StageNewLead:              decimal.RequireFromString("0.10"),
	policy.StageContactMade:          decimal.RequireFromString("0.20"),
	policy.StageDiscoveryCompleted:   decimal.RequireFromString("0.30"),
	policy.StageQualifiedOpportunity: decimal.RequireFromString("0.40"),
	policy.StageProposalSent:         decimal.RequireFromString("0.60"),
	policy.StageNegotiationDecision:  decimal.RequireFromString("0.75"),
	policy.StageVerbalWin:            decimal.RequireFromString("0.90"),
	policy.StageClosedWon:            decimal.NewFromInt(1),
	policy.StageClosedLost:           decimal.Zero,
}

func FieldsFor(stage policy.Stage) []FieldSpec {
	specs := stageFields[stage]
	out := make([]FieldSpec, len(specs))
	copy(out, specs)
	return out
}

func DefaultProbability(stage policy.Stage) decimal.Decimal {
	return defaultProbability[stage]
}

// FieldError lists every problem found in a submitted field set.
type FieldError struct {
	Stage    policy.Stage
	Problems []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf(
		"%s: %s",
		e.Stage.DisplayName(),
		strings.Join(e.Problems, "; "),
	)
}

// NormalizeFields validates raw against the schema for stage. With
// requireAll every field of the stage must be present and non-empty.
// Numbers come back in canonical decimal form and dates as YYYY-MM-DD.
func NormalizeFields(
	stage policy.Stage,
	raw map[string]any,
	requireAll bool,
) (Fields, error) {
	specs := stageFields[stage]
	known := make(map[string]FieldSpec, len(specs))
	for _, s := range specs {
		known[s.Key] = s
	}

	var problems []string
	out := Fields{}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		spec, ok := known[k]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown field %q", k))
			continue
		}

		v, err := normalizeValue(spec, raw[k])
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s %s", spec.Label, err))
			continue
		}
		if v != "" {
			out[k] = v
		}
	}

	if requireAll {
		for _, s := range specs {
			if _, ok := out[s.Key]; !ok {
				if _, seen := raw[s.Key]; !seen || !hasProblem(problems, s.Label) {
					problems = append(problems, s.Label+" is required")
				}
			}
		}
	}

	if len(problems) > 0 {
		return nil, &FieldError{Stage: stage, Problems: problems}
	}
	return out, nil
}

func hasProblem(problems []string, label string) bool {
	for _, p := range problems {
		if strings.HasPrefix(p, label+" ") {
			return true
		}
	}
	return false
}

func normalizeValue(spec FieldSpec, v any) (string, error) {
	switch spec.Type {
	case FieldNumber:
		var d decimal.Decimal
		var err error
		switch n := v.(type) {
		case nil:
			return "", nil
		case float64:
			d = decimal.NewFromFloat(n)
		case string:
			if strings.TrimSpace(n) == "" {
				return "", nil
			}
			d, err = decimal.NewFromString(strings.TrimSpace(n))
		default:
			err = fmt.Errorf("unsupported type %T", v)
		}
		if err != nil {
			return "", fmt.Errorf("must be a number")
		}
		if d.IsNegative() {
			return "", fmt.Errorf("must not be negative")
		}
		return d.String(), nil

	case FieldDate:
		s, ok := v.(string)
		if !ok && v != nil {
			return "", fmt.Errorf("must be a date (YYYY-MM-DD)")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", nil
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return "", fmt.Errorf("must be a date (YYYY-MM-DD)")
		}
		return s, nil

	default:
		switch s := v.(type) {
		case nil:
			return "", nil
		case string:
			return strings.TrimSpace(s), nil
		case float64:
			return decimal.NewFromFloat(s).String(), nil
		case bool:
			return fmt.Sprint(s), nil
		}
		return "", fmt.Errorf("must be text")
	}
}

// revenueFrom returns the money value carried by fields for stage, if any.
func revenueFrom(stage policy.Stage, fields Fields) (decimal.Decimal, bool) {
	for _, s := range stageFields[stage] {
		if !s.Revenue {
			continue
		}
		if v, ok := fields[s.Key]; ok {
			d, err := decimal.NewFromString(v)
			if err == nil {
				return d, true
			}
		}
	}
	return decimal.Decimal{}, false
}
