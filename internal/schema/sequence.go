package schema

import "github.com/shopspring/decimal"

// SequenceInfo is read-only sequence metadata. Bounds are decimals since
// some vendors report values beyond the int64 range.
type SequenceInfo struct {
	Name       string          `json:"name" yaml:"name"`
	NativeType string          `json:"native_type" yaml:"native_type"`
	Min        decimal.Decimal `json:"min" yaml:"min"`
	Max        decimal.Decimal `json:"max" yaml:"max"`
	Increment  decimal.Decimal `json:"increment" yaml:"increment"`
	Start      decimal.Decimal `json:"start" yaml:"start"`
	Cycle      bool            `json:"cycle" yaml:"cycle"`
}
