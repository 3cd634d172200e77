// AngelaMos | 2026
// guard.go

package access

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/middleware"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

// Guard applies policy decisions inside services. Every check is counted,
// denials are logged and returned as *core.AppError.
type Guard struct {
	logger  *slog.Logger
	metrics *core.Metrics
}

func NewGuard(logger *slog.Logger, metrics *core.Metrics) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{logger: logger, metrics: metrics}
}

// Principal returns the authenticated caller.
func (g *Guard) Principal(ctx context.Context) (policy.User, error) {
	u, err := middleware.GetPrincipal(ctx)
	if err != nil {
		return policy.User{}, core.UnauthorizedError("authentication required")
	}
	return u, nil
}

func (g *Guard) Check(
	ctx context.Context,
	u policy.User,
	action policy.Action,
	e *policy.Entity,
) error {
	d := policy.Decide(u, action, e)

	kind := "none"
	if e != nil {
		kind = string(e.Kind)
	}

	return g.record(ctx, u, string(action), kind, d)
}

// CheckMove authorizes a stage move of e into target.
func (g *Guard) CheckMove(
	ctx context.Context,
	u policy.User,
	e policy.Entity,
	target policy.Stage,
) error {
	d := policy.AuthorizeMove(u, e, target)

	if d.Allowed {
		core.AddSpanEvent(ctx, "stage.move.authorized",
			attribute.String("from", string(e.Stage)),
			attribute.String("to", string(target)),
		)
	}

	return g.record(ctx, u, string(policy.ActionMoveStage), string(e.Kind), d)
}

// Visible filters without logging; list endpoints call it per row.
func (g *Guard) Visible(u policy.User, e policy.Entity) bool {
	return policy.CanView(u, e)
}

func (g *Guard) record(
	ctx context.Context,
	u policy.User,
	action, kind string,
	d policy.Decision,
) error {
	if d.Allowed {
		g.metrics.ObserveDecision(action, kind, "allowed")
		return nil
	}

	g.metrics.ObserveDecision(action, kind, string(d.Denial))

	g.logger.InfoContext(ctx, "access denied",
		"user", u.Name,
		"role", u.Role,
		"action", action,
		"kind", kind,
		"denial", d.Denial,
		"reason", d.Reason,
		"request_id", middleware.GetRequestID(ctx),
	)

	core.AddSpanEvent(ctx, "access.denied",
		attribute.String("action", action),
		attribute.String("denial", string(d.Denial)),
	)

	return core.DecisionError(d)
}
