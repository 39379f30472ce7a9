package service

// Derived production statuses shared by orders and order items.
const (
	StatusNew                = "new"
	StatusInDesign           = "in_design"
	StatusReadyForProduction = "ready_for_production"
	StatusInProduction       = "in_production"
	StatusShipped            = "shipped"
	StatusCancelled          = "cancelled"
)

// DeriveItemStatus computes an item's status from its children. The work
// order, once it exists, decides; before that the design job does.
func DeriveItemStatus(designStatus, workOrderStatus *string) string {
	if workOrderStatus != nil {
		switch *workOrderStatus {
		case "shipped":
			return StatusShipped
		case "cancelled":
			return StatusCancelled
		default:
			return StatusInProduction
		}
	}
	if designStatus != nil {
		switch *designStatus {
		case "approved":
			return StatusReadyForProduction
		case "cancelled":
			return StatusCancelled
		default:
			return StatusInDesign
		}
	}
	return StatusNew
}

// DeriveOrderStatus computes an order's status from its items:
// cancelled when every item is cancelled, shipped when every remaining item
// shipped, in_production when any item is in production or already shipped,
// in_design when any design is active, ready_for_production when every
// remaining design is approved, otherwise new.
func DeriveOrderStatus(itemStatuses []string) string {
	if len(itemStatuses) == 0 {
		return StatusNew
	}

	var active, cancelled, shipped, inProduction, inDesign, ready int
	for _, s := range itemStatuses {
		switch s {
		case StatusCancelled:
			cancelled++
			continue
		case StatusShipped:
			shipped++
		case StatusInProduction:
			inProduction++
		case StatusInDesign:
			inDesign++
		case StatusReadyForProduction:
			ready++
		}
		active++
	}

	switch {
	case active == 0:
		return StatusCancelled
	case shipped == active:
		return StatusShipped
	case inProduction > 0 || shipped > 0:
		return StatusInProduction
	case inDesign > 0:
		return StatusInDesign
	case ready == active:
		return StatusReadyForProduction
	default:
		return StatusNew
	}
}
