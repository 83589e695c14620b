package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SuppliedDetailDTO struct {
	FoodID           string `json:"food_id"`
	SuppliedQuantity int    `json:"supplied_quantity"`
}

type MarkDeliveredRequest struct {
	Details []SuppliedDetailDTO `json:"details"`
}

type RecordApprovalRequest struct {
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type ApprovalResponse struct {
	ApprovalID string `json:"approval_id"`
	PlanID     string `json:"plan_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type FoodDTO struct {
	FoodID string `json:"food_id"`
	Name   string `json:"name"`
}

type MealPlanDTO struct {
	PlanID         string    `json:"plan_id"`
	VendorID       string    `json:"vendor_id"`
	Date           string    `json:"date"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	Status         string    `json:"status"`
	Foods          []FoodDTO `json:"foods"`
	ApprovalStatus string    `json:"approval_status,omitempty"`
	ApprovalReason string    `json:"approval_reason,omitempty"`
}

type VendorDashboardResponse struct {
	VendorID     string        `json:"vendor_id"`
	StaffID      string        `json:"staff_id"`
	VendorName   string        `json:"vendor_name"`
	Email        string        `json:"email"`
	CompanyName  string        `json:"company_name"`
	FoodCategory string        `json:"food_category"`
	Plans        []MealPlanDTO `json:"plans"`
}
