package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// MoneyScale is the number of decimal places a stored amount keeps.
const MoneyScale = 8

// maxMoney is the exclusive upper bound of a stored amount: numeric(20,8) leaves 12 integer digits.
var maxMoney = decimal.New(1, 20-MoneyScale)

// Money is a decimal amount persisted without loss on every supported dialect.
// sqlite has no exact numeric type, so the value is kept as text there.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps d.
func NewMoney(d decimal.Decimal) Money { return Money{Decimal: d} }

// GormDBDataType picks the column type per dialect.
func (Money) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlite":
		return "text"
	case "mysql":
		return "decimal(20,8)"
	default:
		return "numeric(20,8)"
	}
}

// FitsMoney reports whether d can be stored exactly: at most MoneyScale decimal
// places and an absolute value below 10^12.
func FitsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale)) && d.Abs().LessThan(maxMoney)
}
