package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	deliveryservice "mealtrack/contexts/meal-operations/delivery-service"
	deliveryerrors "mealtrack/contexts/meal-operations/delivery-service/domain/errors"
	deliveryhttp "mealtrack/contexts/meal-operations/delivery-service/transport/http"
	distributionservice "mealtrack/contexts/meal-operations/distribution-service"
	distributionerrors "mealtrack/contexts/meal-operations/distribution-service/domain/errors"
	distributionhttp "mealtrack/contexts/meal-operations/distribution-service/transport/http"
)

type Server struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	addr         string
	distribution distributionservice.Module
	delivery     deliveryservice.Module
}

func New(
	distribution distributionservice.Module,
	delivery deliveryservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:          http.NewServeMux(),
		logger:       logger,
		addr:         addr,
		distribution: distribution,
		delivery:     delivery,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/studentdashboard/dashboard", s.handleStudentDashboard)
	s.mux.HandleFunc("POST /api/studentdashboard/register-meal", s.handleRegisterMeal)
	s.mux.HandleFunc("GET /api/studentdashboard/meal/{distribution_id}", s.handleMealDetails)

	s.mux.HandleFunc("GET /api/vendordashboard/dashboard", s.handleVendorDashboard)
	s.mux.HandleFunc("GET /api/vendordashboard/plans/by-date", s.handlePlansByDate)
	s.mux.HandleFunc("GET /api/vendordashboard/plans/by-day", s.handlePlansByDay)
	s.mux.HandleFunc("POST /api/vendordashboard/plans/{plan_id}/start-preparation", s.handleStartPreparation)
	s.mux.HandleFunc("POST /api/vendordashboard/plans/{plan_id}/deliver", s.handleMarkDelivered)

	s.mux.HandleFunc("POST /api/approvals", s.handleRecordApproval)
}

func (s *Server) handleStudentDashboard(w http.ResponseWriter, r *http.Request) {
	studentID := resolveStudentID(r)
	if studentID == "" {
		writeDistributionError(w, http.StatusUnauthorized, "missing_student", "X-Student-Id header is required")
		return
	}

	anchor := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeDistributionError(w, http.StatusBadRequest, "invalid_date", "date must be formatted as YYYY-MM-DD")
			return
		}
		anchor = parsed
	}

	resp, err := s.distribution.Handler.DashboardHandler(r.Context(), studentID, anchor)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterMeal(w http.ResponseWriter, r *http.Request) {
	studentID := resolveStudentID(r)
	if studentID == "" {
		writeDistributionError(w, http.StatusUnauthorized, "missing_student", "X-Student-Id header is required")
		return
	}

	var req distributionhttp.RegisterMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.distribution.Handler.RegisterMealHandler(r.Context(), studentID, req)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMealDetails(w http.ResponseWriter, r *http.Request) {
	distributionID := r.PathValue("distribution_id")
	resp, err := s.distribution.Handler.MealDetailsHandler(r.Context(), distributionID)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVendorDashboard(w http.ResponseWriter, r *http.Request) {
	vendorID := resolveVendorID(r)
	if vendorID == "" {
		writeDeliveryError(w, http.StatusUnauthorized, "missing_vendor", "X-Vendor-Id header is required")
		return
	}

	resp, err := s.delivery.Handler.VendorDashboardHandler(r.Context(), vendorID)
	if err != nil {
		writeDeliveryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlansByDate(w http.ResponseWriter, r *http.Request) {
	vendorID := resolveVendorID(r)
	if vendorID == "" {
		writeDeliveryError(w, http.StatusUnauthorized, "missing_vendor", "X-Vendor-Id header is required")
		return
	}

	date, err := time.Parse(time.DateOnly, r.URL.Query().Get("date"))
	if err != nil {
		writeDeliveryError(w, http.StatusBadRequest, "invalid_date", "date must be formatted as YYYY-MM-DD")
		return
	}

	resp, err := s.delivery.Handler.PlansByDateHandler(r.Context(), vendorID, date)
	if err != nil {
		writeDeliveryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlansByDay(w http.ResponseWriter, r *http.Request) {
	vendorID := resolveVendorID(r)
	if vendorID == "" {
		writeDeliveryError(w, http.StatusUnauthorized, "missing_vendor", "X-Vendor-Id header is required")
		return
	}

	day, ok := parseWeekday(r.URL.Query().Get("day"))
	if !ok {
		writeDeliveryError(w, http.StatusBadRequest, "invalid_day", "day must be a weekday name, e.g. MONDAY")
		return
	}

	resp, err := s.delivery.Handler.PlansByDayHandler(r.Context(), vendorID, day)
	if err != nil {
		writeDeliveryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartPreparation(w http.ResponseWriter, r *http.Request) {
	vendorID := resolveVendorID(r)
	if vendorID == "" {
		writeDeliveryError(w, http.StatusUnauthorized, "missing_vendor", "X-Vendor-Id header is required")
		return
	}

	planID := r.PathValue("plan_id")
	resp, err := s.delivery.Handler.StartPreparationHandler(r.Context(), vendorID, planID)
	if err != nil {
		writeDeliveryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	vendorID := resolveVendorID(r)
	if vendorID == "" {
		writeDeliveryError(w, http.StatusUnauthorized, "missing_vendor", "X-Vendor-Id header is required")
		return
	}

	var req deliveryhttp.MarkDeliveredRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDeliveryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	planID := r.PathValue("plan_id")
	resp, err := s.delivery.Handler.MarkDeliveredHandler(r.Context(), vendorID, planID, req)
	if err != nil {
		writeDeliveryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordApproval(w http.ResponseWriter, r *http.Request) {
	var req deliveryhttp.RecordApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDeliveryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.delivery.Handler.RecordApprovalHandler(r.Context(), req)
	if err != nil {
		writeDeliveryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeDistributionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, distributionerrors.ErrUnauthenticated):
		writeDistributionError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, distributionerrors.ErrStudentNotFound):
		writeDistributionError(w, http.StatusNotFound, "student_not_found", err.Error())
	case errors.Is(err, distributionerrors.ErrDistributionNotFound):
		writeDistributionError(w, http.StatusNotFound, "distribution_not_found", err.Error())
	case errors.Is(err, distributionerrors.ErrInvalidRound):
		writeDistributionError(w, http.StatusBadRequest, "invalid_round", err.Error())
	case errors.Is(err, distributionerrors.ErrPastDistribution):
		writeDistributionError(w, http.StatusConflict, "past_distribution", err.Error())
	case errors.Is(err, distributionerrors.ErrNotServingNow):
		writeDistributionError(w, http.StatusConflict, "not_serving_now", err.Error())
	case errors.Is(err, distributionerrors.ErrRoundAlreadyClaimed):
		writeDistributionError(w, http.StatusConflict, "round_already_claimed", err.Error())
	case errors.Is(err, distributionerrors.ErrRoundsExhausted):
		writeDistributionError(w, http.StatusConflict, "rounds_exhausted", err.Error())
	default:
		writeDistributionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeDeliveryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, deliveryerrors.ErrPlanNotFound),
		errors.Is(err, deliveryerrors.ErrVendorNotFound):
		writeDeliveryError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, deliveryerrors.ErrNotAVendor),
		errors.Is(err, deliveryerrors.ErrPlanNotAssigned):
		writeDeliveryError(w, http.StatusForbidden, "not_assigned", err.Error())
	case errors.Is(err, deliveryerrors.ErrInvalidPlanStatus),
		errors.Is(err, deliveryerrors.ErrPlanNotPlanned):
		writeDeliveryError(w, http.StatusConflict, "invalid_plan_status", err.Error())
	case errors.Is(err, deliveryerrors.ErrEmptyDeliveryDetails),
		errors.Is(err, deliveryerrors.ErrInvalidDeliveryDetail),
		errors.Is(err, deliveryerrors.ErrInvalidApprovalInput):
		writeDeliveryError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, deliveryerrors.ErrDeliveryFoodMismatch),
		errors.Is(err, deliveryerrors.ErrDeliveryTotalMismatch):
		writeDeliveryError(w, http.StatusBadRequest, "delivery_mismatch", err.Error())
	default:
		writeDeliveryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeDistributionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, distributionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeDeliveryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, deliveryhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// resolveStudentID prefers the dedicated header and falls back to the
// generic identity header set by older gateway versions.
func resolveStudentID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Student-Id")); id != "" {
		return id
	}
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func resolveVendorID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Vendor-Id")); id != "" {
		return id
	}
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func parseWeekday(raw string) (time.Weekday, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUNDAY":
		return time.Sunday, true
	case "MONDAY":
		return time.Monday, true
	case "TUESDAY":
		return time.Tuesday, true
	case "WEDNESDAY":
		return time.Wednesday, true
	case "THURSDAY":
		return time.Thursday, true
	case "FRIDAY":
		return time.Friday, true
	case "SATURDAY":
		return time.Saturday, true
	default:
		return time.Sunday, false
	}
}
