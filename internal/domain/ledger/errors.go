package ledger

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Ledger error codes
const (
	CodeAccountNotFound = "ACCOUNT_NOT_FOUND"
	CodeAccountInactive = "ACCOUNT_INACTIVE"
	CodeInvalidLine     = "INVALID_JOURNAL_LINE"
)

// NewUnbalancedEntryError reports Σdebit != Σcredit
func NewUnbalancedEntryError(totalDebit, totalCredit decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(shared.CodeUnbalancedEntry,
		fmt.Sprintf("Journal entry is unbalanced: debit %s, credit %s",
			totalDebit.StringFixed(valueobject.MoneyScale), totalCredit.StringFixed(valueobject.MoneyScale))).
		WithDetails(map[string]any{
			"totalDebit":  totalDebit.StringFixed(valueobject.MoneyScale),
			"totalCredit": totalCredit.StringFixed(valueobject.MoneyScale),
		})
}

// NewAccountNotFoundError reports an account code missing from the chart of accounts
func NewAccountNotFoundError(code string) *shared.DomainError {
	return shared.NewDomainError(CodeAccountNotFound, fmt.Sprintf("Account %s does not exist", code)).
		WithDetails(map[string]any{"accountCode": code})
}

// NewAccountInactiveError reports a posting to a deactivated account
func NewAccountInactiveError(code string) *shared.DomainError {
	return shared.NewDomainError(CodeAccountInactive, fmt.Sprintf("Account %s is inactive", code)).
		WithDetails(map[string]any{"accountCode": code})
}

func newInvalidLineError(lineNo int, msg string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidLine, fmt.Sprintf("Line %d: %s", lineNo, msg)).
		WithDetails(map[string]any{"line": lineNo})
}
