package handlers

import (
	"net/http"
	"time"

	"github.com/baymax-health/apiserver/internal/services"
	"github.com/baymax-health/apiserver/internal/tracker"
	"github.com/baymax-health/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const medicineNotFound = "Medicine not found"

// MedicineHandler provides HTTP handlers for medicines and intake logging.
type MedicineHandler struct {
	medicineService *services.MedicineService
}

func NewMedicineHandler(medicineService *services.MedicineService) *MedicineHandler {
	return &MedicineHandler{medicineService: medicineService}
}

// MedicineRouter registers medicine routes. All of them require auth.
func MedicineRouter(r chi.Router, h *MedicineHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", h.ListMedicines)
	r.Post("/", h.CreateMedicine)
	r.Get("/today", h.Today)
	r.Route("/{medicineID}", func(r chi.Router) {
		r.Get("/", h.GetMedicine)
		r.Put("/", h.UpdateMedicine)
		r.Delete("/", h.DeleteMedicine)
		r.Post("/take", h.TakeMedicine)
	})
}

// MedicineView is a medicine with its derived progress.
type MedicineView struct {
	types.Medicine
	Progress types.Progress `json:"progress"`
}

func newMedicineView(m types.Medicine) MedicineView {
	return MedicineView{Medicine: m, Progress: tracker.ComputeProgress(m)}
}

type MedicineRequest struct {
	Name         string            `json:"name"`
	Dose         string            `json:"dose"`
	Program      int               `json:"program"`
	Quantity     int               `json:"quantity"`
	FoodRelation string            `json:"foodRelation"`
	DailyDosage  types.DailyDosage `json:"dailyDosage"`
	StartDate    *time.Time        `json:"startDate,omitempty"`
}

func (req MedicineRequest) input() tracker.MedicineInput {
	return tracker.MedicineInput{
		Name:         req.Name,
		Dose:         req.Dose,
		Program:      req.Program,
		Quantity:     req.Quantity,
		FoodRelation: req.FoodRelation,
		DailyDosage:  req.DailyDosage,
		StartDate:    req.StartDate,
	}
}

type TakeRequest struct {
	TimeOfDay types.TimeOfDay `json:"timeOfDay"`
	Taken     *bool           `json:"taken"`
	Count     int             `json:"count,omitempty"`
}

type MedicineResponse struct {
	Medicine MedicineView `json:"medicine"`
}

type MedicineListResponse struct {
	Medicines []MedicineView `json:"medicines"`
}

type ScheduleResponse struct {
	Schedule types.Schedule `json:"schedule"`
}

func (h *MedicineHandler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	meds, err := h.medicineService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, medicineNotFound, "failed to list medicines")
		return
	}

	views := make([]MedicineView, 0, len(meds))
	for _, m := range meds {
		views = append(views, newMedicineView(m))
	}
	writeData(w, http.StatusOK, MedicineListResponse{Medicines: views})
}

func (h *MedicineHandler) GetMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	med, err := h.medicineService.Get(r.Context(), userID, chi.URLParam(r, "medicineID"))
	if err != nil {
		writeServiceError(w, r, err, medicineNotFound, "failed to fetch medicine")
		return
	}
	writeData(w, http.StatusOK, MedicineResponse{Medicine: newMedicineView(med)})
}

func (h *MedicineHandler) CreateMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req MedicineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	med, err := h.medicineService.Create(r.Context(), userID, req.input())
	if err != nil {
		writeServiceError(w, r, err, medicineNotFound, "failed to create medicine")
		return
	}
	writeData(w, http.StatusCreated, MedicineResponse{Medicine: newMedicineView(med)})
}

func (h *MedicineHandler) UpdateMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req MedicineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	med, err := h.medicineService.Update(r.Context(), userID, chi.URLParam(r, "medicineID"), req.input())
	if err != nil {
		writeServiceError(w, r, err, medicineNotFound, "failed to update medicine")
		return
	}
	writeData(w, http.StatusOK, MedicineResponse{Medicine: newMedicineView(med)})
}

func (h *MedicineHandler) DeleteMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.medicineService.Delete(r.Context(), userID, chi.URLParam(r, "medicineID")); err != nil {
		writeServiceError(w, r, err, medicineNotFound, "failed to delete medicine")
		return
	}
	writeMessage(w, http.StatusOK, "Medicine deleted successfully")
}

// TakeMedicine records or undoes today's intake for one slot.
func (h *MedicineHandler) TakeMedicine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req TakeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Taken == nil {
		writeError(w, http.StatusBadRequest, "taken is required")
		return
	}

	med, err := h.medicineService.RecordIntake(r.Context(), userID, chi.URLParam(r, "medicineID"), tracker.IntakeRequest{
		TimeOfDay: req.TimeOfDay,
		Taken:     *req.Taken,
		Count:     req.Count,
	})
	if err != nil {
		writeServiceError(w, r, err, medicineNotFound, "failed to record intake")
		return
	}
	writeData(w, http.StatusOK, MedicineResponse{Medicine: newMedicineView(med)})
}

// Today returns the caller's schedule for the current day.
func (h *MedicineHandler) Today(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	schedule, err := h.medicineService.Schedule(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, medicineNotFound, "failed to build schedule")
		return
	}
	writeData(w, http.StatusOK, ScheduleResponse{Schedule: schedule})
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}
