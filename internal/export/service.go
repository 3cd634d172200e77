// AngelaMos | 2026
// service.go

package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/opportunity"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type DealSource interface {
	Visible(ctx context.Context, u policy.User) ([]opportunity.Opportunity, error)
}

var opportunityHeader = []string{
	"Opportunity ID",
	"Opportunity Name",
	"Stage",
	"Owner",
	"Revenue",
	"Probability",
	"Account ID",
}

type Service struct {
	deals DealSource
	guard *access.Guard
}

func NewService(deals DealSource, guard *access.Guard) *Service {
	return &Service{deals: deals, guard: guard}
}

// Opportunities writes the caller's visible deals as CSV. Nothing is written
// when the caller lacks export_data.
func (s *Service) Opportunities(ctx context.Context, u policy.User, w io.Writer) (int, error) {
	if err := s.guard.Check(ctx, u, policy.ActionExportData, nil); err != nil {
		return 0, err
	}

	deals, err := s.deals.Visible(ctx, u)
	if err != nil {
		return 0, fmt.Errorf("load deals: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(opportunityHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	for _, o := range deals {
		accountID := ""
		if o.AccountID != nil {
			accountID = *o.AccountID
		}

		record := []string{
			o.ID,
			o.Name,
			o.Stage.DisplayName(),
			o.OwnerName(),
			o.Revenue.StringFixed(2),
			o.Probability.StringFixed(2),
			accountID,
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}

	return len(deals), nil
}
