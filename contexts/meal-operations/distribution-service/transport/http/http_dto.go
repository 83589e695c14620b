package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterMealRequest struct {
	DistributionID string `json:"distribution_id"`
	Round          int    `json:"round"`
}

type RegisterMealResponse struct {
	ClaimID        string `json:"claim_id"`
	DistributionID string `json:"distribution_id"`
	Round          int    `json:"round"`
	Status         string `json:"status"`
	TakenAt        string `json:"taken_at"`
}

type FoodItemDTO struct {
	FoodID   string `json:"food_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

type MealOptionDTO struct {
	DistributionID   string        `json:"distribution_id"`
	MealType         string        `json:"meal_type"`
	StartTime        string        `json:"start_time,omitempty"`
	EndTime          string        `json:"end_time,omitempty"`
	MaxRounds        int           `json:"max_rounds"`
	RegisteredRounds int           `json:"registered_rounds"`
	CanRegisterMore  bool          `json:"can_register_more"`
	IsServingNow     bool          `json:"is_serving_now"`
	CanTakeMore      bool          `json:"can_take_more"`
	Foods            []FoodItemDTO `json:"foods"`
}

type DashboardDayDTO struct {
	Date  string          `json:"date"`
	Meals []MealOptionDTO `json:"meals"`
}

type DashboardResponse struct {
	StudentID   string            `json:"student_id"`
	StudentName string            `json:"student_name"`
	Email       string            `json:"email"`
	Age         int               `json:"age"`
	Days        []DashboardDayDTO `json:"days"`
}

type MealDetailsResponse struct {
	DistributionID string        `json:"distribution_id"`
	Date           string        `json:"date"`
	MealType       string        `json:"meal_type"`
	Status         string        `json:"status"`
	StartTime      string        `json:"start_time,omitempty"`
	EndTime        string        `json:"end_time,omitempty"`
	MaxRounds      int           `json:"max_rounds"`
	Items          []FoodItemDTO `json:"items"`
}
