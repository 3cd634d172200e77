// AngelaMos | 2026
// entity.go

package opportunity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type Opportunity struct {
	ID             string          `db:"id"`
	Name           string          `db:"name"`
	AccountID      *string         `db:"account_id"`
	Owner          *string         `db:"owner"`
	Stage          policy.Stage    `db:"stage"`
	Revenue        decimal.Decimal `db:"revenue"`
	Probability    decimal.Decimal `db:"probability"`
	Fields         Fields          `db:"fields"`
	StageChangedAt time.Time       `db:"stage_changed_at"`
	ClosedAt       *time.Time      `db:"closed_at"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// OwnerName is "" for an unassigned deal.
func (o *Opportunity) OwnerName() string {
	if o.Owner == nil {
		return ""
	}
	return *o.Owner
}

func (o *Opportunity) Entity() policy.Entity {
	return policy.OpportunityEntity(o.OwnerName(), o.Stage)
}

// Forecast is revenue weighted by probability.
func (o *Opportunity) Forecast() decimal.Decimal {
	return o.Revenue.Mul(o.Probability)
}

type StageChange struct {
	ID            string       `db:"id"`
	OpportunityID string       `db:"opportunity_id"`
	FromStage     policy.Stage `db:"from_stage"`
	ToStage       policy.Stage `db:"to_stage"`
	MovedBy       string       `db:"moved_by"`
	Fields        Fields       `db:"fields"`
	MovedAt       time.Time    `db:"moved_at"`
}

// Fields holds the supplementary per-stage values, stored as JSONB.
type Fields map[string]string

func (f Fields) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f)
}

func (f *Fields) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*f = Fields{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan fields: unsupported type %T", src)
	}

	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan fields: %w", err)
	}
	*f = out
	return nil
}

// Merge overlays other onto a copy of f.
func (f Fields) Merge(other Fields) Fields {
	out := make(Fields, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
