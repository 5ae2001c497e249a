package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ppenca/penca/middleware"
	"github.com/ppenca/penca/services"
	"github.com/ppenca/penca/session"
)

type GroupHandler struct {
	groupService services.GroupService
}

func NewGroupHandler(gs services.GroupService) *GroupHandler {
	return &GroupHandler{
		groupService: gs,
	}
}

func getGroupIDFromURL(r *http.Request) (int, error) {
	idStr := chi.URLParam(r, "groupID")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid group ID in URL")
	}
	return id, nil
}

func viewerFromRequest(r *http.Request) (*session.Session, error) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		return nil, errors.New("missing token claims")
	}
	return session.FromClaims(claims)
}

// List обрабатывает GET /api/groups?user={'all'|countryCode}.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer, err := viewerFromRequest(r)
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	filter := r.URL.Query().Get("user")
	if filter == "" {
		filter = viewer.GroupsFilter()
	}

	groups, err := h.groupService.List(r.Context(), filter, viewer.Viewer())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"groups": groups,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get обрабатывает GET /api/groups/{groupID}.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	group, err := h.groupService.GetByID(r.Context(), groupID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"group": group,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Create обрабатывает POST /api/groups; создателем становится текущий
// пользователь.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.CreateGroupInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.CreatorID = currentUserID

	group, err := h.groupService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"group": group,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConfirmPassword обрабатывает POST /api/groups/{groupID}/confirm.
// Неверный пароль — это 200 с falsy-полем confirmed, не ошибка HTTP.
func (h *GroupHandler) ConfirmPassword(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	confirmed, err := h.groupService.ConfirmPassword(r.Context(), groupID, input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"confirmed": confirmed,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Pay обрабатывает POST /api/groups/{groupID}/pay: инициирует платёж и
// возвращает ссылку для редиректа на провайдера.
func (h *GroupHandler) Pay(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	payment, redirectURL, err := h.groupService.InitiatePayment(r.Context(), groupID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"payment":      payment,
		"redirect_url": redirectURL,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConfirmPayment обрабатывает POST /api/groups/{groupID}/pay/confirm —
// redirect-back половину провайдерского потока.
func (h *GroupHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if _, err := getGroupIDFromURL(r); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Ref string `json:"ref"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Ref == "" {
		badRequestResponse(w, r, errors.New("payment reference is required"))
		return
	}

	payment, err := h.groupService.CompletePayment(r.Context(), input.Ref)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"payment": payment,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateMemberScore обрабатывает PUT /api/groups/{groupID}/members/{memberID}/score
// (только ADMIN, проверяется в маршрутах).
func (h *GroupHandler) UpdateMemberScore(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	memberIDStr := chi.URLParam(r, "memberID")
	memberID, err := strconv.Atoi(memberIDStr)
	if err != nil || memberID <= 0 {
		badRequestResponse(w, r, errors.New("invalid member ID in URL"))
		return
	}

	var input struct {
		Score int `json:"score"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.groupService.UpdateMemberScore(r.Context(), groupID, memberID, input.Score); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Finish обрабатывает POST /api/groups/{groupID}/finish (только ADMIN).
func (h *GroupHandler) Finish(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.groupService.Finish(r.Context(), groupID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadLogo обрабатывает POST /api/groups/{groupID}/logo (multipart).
func (h *GroupHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	groupID, err := getGroupIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form"))
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, errors.New("logo file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	group, err := h.groupService.UploadLogo(r.Context(), groupID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"group": group,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
