package usecase

import (
	"context"
	"fmt"

	"github.com/iho/campuswallet/internal/domain"
)

// Operation names a gated action.
type Operation string

const (
	OpTransfer      Operation = "transfer"
	OpGroupTransfer Operation = "group_transfer"
	OpTopUp         Operation = "topup"
	OpAdjust        Operation = "adjustment"
	OpViewHistory   Operation = "view_history"
	OpProvision     Operation = "provision"
	OpLedgerAudit   Operation = "ledger_audit"
)

var requiredCapability = map[Operation]domain.Capability{
	OpTransfer:      domain.CapTransfer,
	OpGroupTransfer: domain.CapGroupTransfer,
	OpAdjust:        domain.CapAdjust,
	OpProvision:     domain.CapProvision,
	OpLedgerAudit:   domain.CapLedgerAudit,
}

// PolicyGate decides whether a principal may invoke an operation.
// It runs once per request, before any ledger operation.
type PolicyGate struct {
	accountRepo AccountRepository
}

// NewPolicyGate creates a new PolicyGate.
func NewPolicyGate(accountRepo AccountRepository) *PolicyGate {
	return &PolicyGate{accountRepo: accountRepo}
}

// Authorize checks p against op. target is the external identifier of the
// affected account, or empty when the operation acts on the caller only.
func (g *PolicyGate) Authorize(ctx context.Context, p *domain.Principal, op Operation, target string) error {
	if p == nil {
		return domain.ErrUnauthorized
	}

	target = domain.NormalizeExternalID(target)

	switch op {
	case OpTopUp:
		return g.authorizeTopUp(ctx, p, target)

	case OpViewHistory:
		if target == "" || target == p.ExternalID || p.Role.Can(domain.CapViewAnyHistory) {
			return nil
		}
		return deny(p, op)
	}

	required, ok := requiredCapability[op]
	if !ok || !p.Role.Can(required) {
		return deny(p, op)
	}
	return nil
}

func (g *PolicyGate) authorizeTopUp(ctx context.Context, p *domain.Principal, target string) error {
	if p.Role.Can(domain.CapTopUpAny) {
		return nil
	}
	if !p.Role.Can(domain.CapTopUpDepartment) || p.Department == nil {
		return deny(p, OpTopUp)
	}

	account, err := g.accountRepo.GetByExternalID(ctx, target)
	if err != nil {
		return err
	}
	if !account.InDepartment(p.Department) {
		return fmt.Errorf("%w: %s is outside department %s", domain.ErrPolicyDenied, target, *p.Department)
	}
	return nil
}

func deny(p *domain.Principal, op Operation) error {
	return fmt.Errorf("%w: role %s cannot %s", domain.ErrPolicyDenied, p.Role, op)
}
