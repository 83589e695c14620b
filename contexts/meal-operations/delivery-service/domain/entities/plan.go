package entities

import "time"

type PlanStatus string

const (
	PlanStatusPlanned    PlanStatus = "PLANNED"
	PlanStatusInProgress PlanStatus = "IN_PROGRESS"
	PlanStatusDelivered  PlanStatus = "DELIVERED"
)

type Food struct {
	ID   string
	Name string
}

// MealPlan is a vendor's assignment to prepare and deliver a meal on a date.
// Quantity is the declared total across all foods.
type MealPlan struct {
	ID       string
	VendorID string
	Date     time.Time
	Name     string
	Quantity int
	Status   PlanStatus
	Foods    []Food
}

// DeliveryDetail records the quantity a vendor actually supplied for one
// planned food. Details exist only after a successful reconciliation.
type DeliveryDetail struct {
	ID               string
	PlanID           string
	FoodID           string
	SuppliedQuantity int
}

const VendorRole = "VENDOR"

type Vendor struct {
	ID           string
	StaffID      string
	FirstName    string
	LastName     string
	Email        string
	CompanyName  string
	FoodCategory string
	Role         string
}

func (v Vendor) FullName() string {
	return v.FirstName + " " + v.LastName
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// Approval is one gate decision for a plan. Several may accumulate; the most
// recent one (created-at descending, ties broken by highest id) is
// authoritative.
type Approval struct {
	ID        string
	PlanID    string
	Status    ApprovalStatus
	Reason    string
	CreatedAt time.Time
}

// PlanApprovalView is a plan annotated with its authoritative approval state
// for the vendor dashboard. ApprovalStatus is empty when nothing has been
// submitted yet, and "PENDING_APPROVAL" when delivery details exist but no
// approval decision has been recorded.
type PlanApprovalView struct {
	Plan           MealPlan
	ApprovalStatus string
	ApprovalReason string
}

const ApprovalStatusPendingApproval = "PENDING_APPROVAL"
