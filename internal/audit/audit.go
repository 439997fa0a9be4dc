package audit

import (
	"context"

	"github.com/Clement-coder/retrust-marketplace/pkg/log"
)

// Audit actions for the marketplace ledger.
const (
	ActionRegisterUser   = "user.register"
	ActionListProduct    = "product.list"
	ActionEditProduct    = "product.edit"
	ActionUnlistProduct  = "product.unlist"
	ActionBuyProduct     = "product.buy"
	ActionConfirmReceipt = "escrow.confirm"
	ActionRequestRefund  = "escrow.refund"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, address string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldAddress, address).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, address string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldAddress, address).
		Str(FieldDetail, detail).
		Msg(msg)
}
