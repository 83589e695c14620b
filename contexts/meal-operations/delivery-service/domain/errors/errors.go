package errors

import "errors"

var (
	ErrPlanNotFound          = errors.New("meal plan not found")
	ErrVendorNotFound        = errors.New("vendor not found")
	ErrNotAVendor            = errors.New("staff member is not a vendor")
	ErrPlanNotAssigned       = errors.New("meal plan is not assigned to this vendor")
	ErrInvalidPlanStatus     = errors.New("can only mark delivered from IN_PROGRESS status")
	ErrPlanNotPlanned        = errors.New("can only start preparation from PLANNED status")
	ErrEmptyDeliveryDetails  = errors.New("delivery details are required")
	ErrDeliveryFoodMismatch  = errors.New("must supply a quantity for every planned food, with no extras")
	ErrDeliveryTotalMismatch = errors.New("total supplied quantity does not match planned quantity")
	ErrInvalidDeliveryDetail = errors.New("invalid delivery detail")
	ErrInvalidApprovalInput  = errors.New("invalid approval input")
)
