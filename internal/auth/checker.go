package auth

import (
	"context"
	"errors"
)

// ErrAccessDenied indicates the acting subject may not perform the action on
// the target object.
var ErrAccessDenied = errors.New("auth: access denied")

// Actions checked at the core's command entry points.
const (
	ActionBillingRead                 = "billing:read"
	ActionBillingWaitDeposit          = "billing:wait-deposit"
	ActionBillingRecordTransaction    = "billing:record-transaction"
	ActionSettlementRead              = "settlement:read"
	ActionSettlementRecordTransaction = "settlement:record-transaction"
	ActionSettlementComplete          = "settlement:complete"
)

// AccessChecker gates every mutating or reading core operation. Policy rule
// tables live outside this platform; the core treats the check as opaque.
type AccessChecker interface {
	Check(ctx context.Context, subject, action, object string) error
}

// RoleAccessChecker resolves access from the authenticated role in context.
type RoleAccessChecker struct {
	required map[string]Role
}

// NewRoleAccessChecker builds the default action-to-role policy.
func NewRoleAccessChecker() *RoleAccessChecker {
	return &RoleAccessChecker{required: map[string]Role{
		ActionBillingRead:                 RoleViewer,
		ActionBillingWaitDeposit:          RoleOperator,
		ActionBillingRecordTransaction:    RoleOperator,
		ActionSettlementRead:              RoleViewer,
		ActionSettlementRecordTransaction: RoleOperator,
		ActionSettlementComplete:          RoleAdmin,
	}}
}

// Check validates the acting subject's role against the action's requirement.
// Unknown actions are denied.
func (c *RoleAccessChecker) Check(ctx context.Context, subject, action, object string) error {
	if c == nil {
		return ErrAccessDenied
	}
	_ = subject
	_ = object
	required, ok := c.required[action]
	if !ok {
		return ErrAccessDenied
	}
	if !RoleAtLeast(RoleFromContext(ctx), required) {
		return ErrAccessDenied
	}
	return nil
}

// AllowAllChecker grants every check; used in tests and internal consumers.
type AllowAllChecker struct{}

// Check always succeeds.
func (AllowAllChecker) Check(ctx context.Context, subject, action, object string) error {
	_ = ctx
	_ = subject
	_ = action
	_ = object
	return nil
}
