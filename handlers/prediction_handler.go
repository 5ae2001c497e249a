package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ppenca/penca/middleware"
	"github.com/ppenca/penca/services"
)

type PredictionHandler struct {
	predictionService services.PredictionService
}

func NewPredictionHandler(ps services.PredictionService) *PredictionHandler {
	return &PredictionHandler{
		predictionService: ps,
	}
}

// Get обрабатывает GET /api/predictions?group_id={id} — прогноз
// текущего пользователя для группы. Отсутствие прогноза отдаётся как
// 200 с null, чтобы мастер стартовал с пустых значений.
func (h *PredictionHandler) Get(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	groupIDStr := r.URL.Query().Get("group_id")
	groupID, err := strconv.Atoi(groupIDStr)
	if err != nil || groupID <= 0 {
		badRequestResponse(w, r, errors.New("valid group_id query parameter is required"))
		return
	}

	prediction, err := h.predictionService.GetForUser(r.Context(), currentUserID, groupID)
	if err != nil {
		if errors.Is(err, services.ErrPredictionNotFound) {
			response := jsonResponse{"prediction": nil}
			if writeErr := writeJSON(w, http.StatusOK, response, nil); writeErr != nil {
				serverErrorResponse(w, r, writeErr)
			}
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"prediction": prediction,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Save обрабатывает POST /api/predictions: один атомарный payload
// {group, round, group_id}, перезаписывающий прогноз целиком.
func (h *PredictionHandler) Save(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.SavePredictionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.GroupID <= 0 {
		badRequestResponse(w, r, errors.New("group_id is required"))
		return
	}
	input.UserID = currentUserID

	prediction, err := h.predictionService.Save(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"prediction": prediction,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
