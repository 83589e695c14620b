package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "mealtrack/contexts/meal-operations/distribution-service/application"
	"mealtrack/contexts/meal-operations/distribution-service/application/commands"
	"mealtrack/contexts/meal-operations/distribution-service/application/queries"
	"mealtrack/contexts/meal-operations/distribution-service/domain/entities"
	httptransport "mealtrack/contexts/meal-operations/distribution-service/transport/http"
)

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

func (h Handler) RegisterMealHandler(
	ctx context.Context,
	studentID string,
	req httptransport.RegisterMealRequest,
) (httptransport.RegisterMealResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	claim, err := h.Commands.Register(ctx, commands.RegisterCommand{
		StudentID:      studentID,
		DistributionID: req.DistributionID,
		Round:          req.Round,
	})
	if err != nil {
		logger.Warn("distribution http register meal failed",
			"event", "distribution_http_register_meal_failed",
			"module", "meal-operations/distribution-service",
			"layer", "adapter",
			"student_id", strings.TrimSpace(studentID),
			"distribution_id", strings.TrimSpace(req.DistributionID),
			"round", req.Round,
			"error", err.Error(),
		)
		return httptransport.RegisterMealResponse{}, err
	}
	logger.Info("distribution http register meal completed",
		"event", "distribution_http_register_meal_completed",
		"module", "meal-operations/distribution-service",
		"layer", "adapter",
		"claim_id", claim.ID,
		"student_id", claim.StudentID,
		"distribution_id", claim.DistributionID,
		"round", claim.Round,
	)
	return httptransport.RegisterMealResponse{
		ClaimID:        claim.ID,
		DistributionID: claim.DistributionID,
		Round:          claim.Round,
		Status:         string(claim.Status),
		TakenAt:        claim.TakenAt.Format(time.RFC3339),
	}, nil
}

func (h Handler) DashboardHandler(
	ctx context.Context,
	studentID string,
	anchor time.Time,
) (httptransport.DashboardResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	view, err := h.Queries.Dashboard(ctx, studentID, anchor)
	if err != nil {
		logger.Warn("distribution http dashboard failed",
			"event", "distribution_http_dashboard_failed",
			"module", "meal-operations/distribution-service",
			"layer", "adapter",
			"student_id", strings.TrimSpace(studentID),
			"error", err.Error(),
		)
		return httptransport.DashboardResponse{}, err
	}

	days := make([]httptransport.DashboardDayDTO, 0, len(view.Days))
	for _, day := range view.Days {
		meals := make([]httptransport.MealOptionDTO, 0, len(day.Meals))
		for _, meal := range day.Meals {
			meals = append(meals, mapMealOption(meal))
		}
		days = append(days, httptransport.DashboardDayDTO{
			Date:  day.Date.Format(time.DateOnly),
			Meals: meals,
		})
	}
	return httptransport.DashboardResponse{
		StudentID:   view.Student.ID,
		StudentName: view.Student.FullName(),
		Email:       view.Student.Email,
		Age:         view.Student.Age,
		Days:        days,
	}, nil
}

func (h Handler) MealDetailsHandler(
	ctx context.Context,
	distributionID string,
) (httptransport.MealDetailsResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	dist, err := h.Queries.MealDetails(ctx, distributionID)
	if err != nil {
		logger.Warn("distribution http meal details failed",
			"event", "distribution_http_meal_details_failed",
			"module", "meal-operations/distribution-service",
			"layer", "adapter",
			"distribution_id", strings.TrimSpace(distributionID),
			"error", err.Error(),
		)
		return httptransport.MealDetailsResponse{}, err
	}

	resp := httptransport.MealDetailsResponse{
		DistributionID: dist.ID,
		Date:           entities.DateOnly(dist.Date).Format(time.DateOnly),
		MealType:       string(dist.NormalizedMealType()),
		Status:         string(dist.Status),
		MaxRounds:      dist.MaxRounds(),
		Items:          mapFoodItems(dist.Items),
	}
	if dist.StartTime != nil {
		resp.StartTime = dist.StartTime.String()
	}
	if dist.EndTime != nil {
		resp.EndTime = dist.EndTime.String()
	}
	return resp, nil
}

func mapMealOption(meal queries.MealOption) httptransport.MealOptionDTO {
	dist := meal.Distribution
	dto := httptransport.MealOptionDTO{
		DistributionID:   dist.ID,
		MealType:         string(dist.NormalizedMealType()),
		MaxRounds:        meal.MaxRounds,
		RegisteredRounds: meal.RegisteredRounds,
		CanRegisterMore:  meal.CanRegisterMore,
		IsServingNow:     meal.IsServingNow,
		CanTakeMore:      meal.CanTakeMore,
		Foods:            mapFoodItems(dist.Items),
	}
	if dist.StartTime != nil {
		dto.StartTime = dist.StartTime.String()
	}
	if dist.EndTime != nil {
		dto.EndTime = dist.EndTime.String()
	}
	return dto
}

func mapFoodItems(items []entities.DistributionItem) []httptransport.FoodItemDTO {
	foods := make([]httptransport.FoodItemDTO, 0, len(items))
	for _, item := range items {
		foods = append(foods, httptransport.FoodItemDTO{
			FoodID:   item.FoodID,
			Name:     item.FoodName,
			Quantity: item.Quantity,
			Unit:     UnitForFood(item.FoodName),
		})
	}
	return foods
}

var (
	stapleKeywords  = []string{"rice", "beans", "yam", "cassava", "garri", "flour", "potato", "maize"}
	liquidKeywords  = []string{"oil", "water", "milk", "juice", "drink", "soda"}
	pieceKeywords   = []string{"bread", "egg", "chicken", "fish", "meat", "plantain", "banana", "apple", "orange"}
	defaultFoodUnit = "serving"
)

// UnitForFood infers a display unit from a food name. This is a presentation
// heuristic only: deterministic, total over any name, defaulting to
// "serving" for unknown or empty names.
func UnitForFood(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return defaultFoodUnit
	}
	for _, keyword := range stapleKeywords {
		if strings.Contains(lowered, keyword) {
			return "kg"
		}
	}
	for _, keyword := range liquidKeywords {
		if strings.Contains(lowered, keyword) {
			return "liters"
		}
	}
	for _, keyword := range pieceKeywords {
		if strings.Contains(lowered, keyword) {
			return "pieces"
		}
	}
	return defaultFoodUnit
}
