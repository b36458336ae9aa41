package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seatwise/reservations/internal/domain"
	mw "github.com/seatwise/reservations/internal/http/middleware"
	"github.com/seatwise/reservations/internal/http/response"
	"github.com/seatwise/reservations/internal/service"
	"github.com/seatwise/reservations/pkg/auth"
)

// StaffHandler is the privileged surface: filtered listing, arbitrary
// updates, cancellation without lead time, and status transitions.
type StaffHandler struct {
	svc       service.ReservationService
	jwtSecret string
}

func NewStaffHandler(svc service.ReservationService, jwtSecret string) *StaffHandler {
	return &StaffHandler{svc: svc, jwtSecret: jwtSecret}
}

func (h *StaffHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(mw.RequireJWT(h.jwtSecret, auth.RoleStaff, auth.RoleAdmin))

	r.Get("/", h.list)
	r.Get("/{id}", h.getByID)
	r.Patch("/{id}", h.patch)
	r.Delete("/{id}", h.cancel)
	r.Post("/{id}/status", h.changeStatus)

	return r
}

func staffActor(r *http.Request) domain.Actor {
	claims := mw.Claims(r)
	return domain.Staff(claims.Sub, claims.Email)
}

// parseListQuery builds the filter and page from query parameters. Bad
// values are an error, not silently dropped constraints.
func parseListQuery(r *http.Request) (domain.Filter, domain.Page, error) {
	var filter domain.Filter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status, ok := domain.ParseReservationStatus(raw)
		if !ok {
			return filter, domain.Page{}, &domain.ValidationError{Fields: []domain.FieldError{
				{Field: "status", Message: "unknown status", Code: domain.CodeInvalidFormat},
			}}
		}
		filter.Status = &status
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, domain.Page{}, &domain.ValidationError{Fields: []domain.FieldError{
				{Field: "from", Message: "must be RFC 3339", Code: domain.CodeInvalidFormat},
			}}
		}
		filter.StartTime = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, domain.Page{}, &domain.ValidationError{Fields: []domain.FieldError{
				{Field: "to", Message: "must be RFC 3339", Code: domain.CodeInvalidFormat},
			}}
		}
		filter.EndTime = &t
	}
	if raw := q.Get("party_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return filter, domain.Page{}, &domain.ValidationError{Fields: []domain.FieldError{
				{Field: "party_size", Message: "must be an integer", Code: domain.CodeInvalidFormat},
			}}
		}
		filter.PartySize = &n
	}
	filter.GuestName = q.Get("guest_name")
	filter.GuestEmail = q.Get("guest_email")

	var page domain.Page
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.Offset = n
		}
	}

	return filter, page, nil
}

func (h *StaffHandler) list(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseListQuery(r)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	result, err := h.svc.List(r.Context(), filter, page)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

func (h *StaffHandler) getByID(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

func (h *StaffHandler) patch(w http.ResponseWriter, r *http.Request) {
	var patch domain.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), patch, staffActor(r))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, updated)
}

func (h *StaffHandler) cancel(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), staffActor(r)); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (h *StaffHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var in changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	status, ok := domain.ParseReservationStatus(in.Status)
	if !ok {
		response.BadRequest(w, "unknown status")
		return
	}

	updated, err := h.svc.ChangeStatus(r.Context(), chi.URLParam(r, "id"), status, staffActor(r))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, updated)
}
