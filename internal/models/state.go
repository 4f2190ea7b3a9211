package models

type OrderStatus string

const (
	StatusCart            OrderStatus = "cart"
	StatusAwaitingAddress OrderStatus = "awaiting_address"
	StatusAwaitingPayment OrderStatus = "awaiting_payment"
	StatusFinalized       OrderStatus = "finalized"
	StatusRefundRequested OrderStatus = "refund_requested"
	StatusRefundGranted   OrderStatus = "refund_granted"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusCart:            {StatusAwaitingAddress},
	StatusAwaitingAddress: {StatusAwaitingAddress, StatusAwaitingPayment},
	StatusAwaitingPayment: {StatusAwaitingAddress, StatusFinalized},
	StatusFinalized:       {StatusRefundRequested},
	StatusRefundRequested: {StatusRefundGranted},
}

func CanTransition(from, to OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Open reports whether the status belongs to the cart side of the lifecycle.
func (s OrderStatus) Open() bool {
	switch s {
	case StatusCart, StatusAwaitingAddress, StatusAwaitingPayment:
		return true
	}
	return false
}

// CartOutcome describes what a cart mutation did.
type CartOutcome string

const (
	OutcomeAdded       CartOutcome = "added"
	OutcomeIncremented CartOutcome = "incremented"
	OutcomeDecremented CartOutcome = "decremented"
	OutcomeRemoved     CartOutcome = "removed"
	OutcomeNotInCart   CartOutcome = "not_in_cart"
)
