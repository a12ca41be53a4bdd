package domain

import "github.com/shopspring/decimal"

// TaskKind discriminates the planned remote mutations.
type TaskKind int

const (
	TaskUpdateVariant TaskKind = iota
	TaskCreateVariant
	TaskDeactivateVariant
)

func (k TaskKind) String() string {
	switch k {
	case TaskUpdateVariant:
		return "update_variant"
	case TaskCreateVariant:
		return "create_variant"
	case TaskDeactivateVariant:
		return "deactivate_variant"
	default:
		return "unknown"
	}
}

// Task is one planned remote mutation. Which fields are meaningful depends
// on Kind: creates carry SizeID, updates and deactivations carry the barcode
// of an existing variant.
type Task struct {
	Kind          TaskKind
	ProductID     string
	Barcode       string
	SizeID        int
	Price         decimal.Decimal
	DiscountPrice decimal.Decimal
	Quantity      int
	Active        bool
}
