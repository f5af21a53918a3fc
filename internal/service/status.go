package service

import "github.com/comanda-pos/api/internal/database"

// statusRank fixes the total order of the status machine. A transition is
// legal iff the target outranks the current status, which allows skipping
// intermediate states (a cash order may go CREATED straight to COMPLETED)
// but never standing still or moving backward.
var statusRank = map[database.OrderStatus]int{
	database.OrderStatusCREATED:    0,
	database.OrderStatusPROCESSING: 1,
	database.OrderStatusPAID:       2,
	database.OrderStatusCOMPLETED:  3,
}

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s database.OrderStatus) bool {
	_, ok := statusRank[s]
	return ok
}

func validateStatusTransition(current, target database.OrderStatus) error {
	currentRank, okCurrent := statusRank[current]
	targetRank, okTarget := statusRank[target]
	if !okCurrent || !okTarget || targetRank <= currentRank {
		return &InvalidStatusTransitionError{Current: current, Target: target}
	}
	return nil
}
