package services

import (
	"mealtrack/contexts/meal-operations/delivery-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/delivery-service/domain/errors"
)

// ReconcileDelivery validates supplied delivery details against the plan's
// declared food set and total quantity. The supplied food identifiers must
// exactly equal the planned set, every supplied quantity must be
// non-negative, and the quantities must sum to exactly the plan total.
func ReconcileDelivery(plan entities.MealPlan, details []entities.DeliveryDetail) error {
	if len(details) == 0 {
		return domainerrors.ErrEmptyDeliveryDetails
	}

	planned := make(map[string]struct{}, len(plan.Foods))
	for _, food := range plan.Foods {
		planned[food.ID] = struct{}{}
	}

	supplied := make(map[string]struct{}, len(details))
	total := 0
	for _, detail := range details {
		if detail.FoodID == "" || detail.SuppliedQuantity < 0 {
			return domainerrors.ErrInvalidDeliveryDetail
		}
		if _, duplicate := supplied[detail.FoodID]; duplicate {
			return domainerrors.ErrInvalidDeliveryDetail
		}
		supplied[detail.FoodID] = struct{}{}
		total += detail.SuppliedQuantity
	}

	if len(supplied) != len(planned) {
		return domainerrors.ErrDeliveryFoodMismatch
	}
	for foodID := range supplied {
		if _, ok := planned[foodID]; !ok {
			return domainerrors.ErrDeliveryFoodMismatch
		}
	}

	if total != plan.Quantity {
		return domainerrors.ErrDeliveryTotalMismatch
	}
	return nil
}
