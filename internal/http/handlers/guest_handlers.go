package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seatwise/reservations/internal/domain"
	mw "github.com/seatwise/reservations/internal/http/middleware"
	"github.com/seatwise/reservations/internal/http/response"
	"github.com/seatwise/reservations/internal/notify"
	"github.com/seatwise/reservations/internal/service"
	"github.com/seatwise/reservations/pkg/auth"
	"github.com/seatwise/reservations/pkg/config"
	"github.com/seatwise/reservations/pkg/logger"
)

// GuestHandler is the unauthenticated booking surface. Guests manage a
// reservation either through its manage token or through a short-lived
// emailed session.
type GuestHandler struct {
	svc     service.ReservationService
	mailer  notify.Mailer
	authCfg config.AuthConfig
	baseURL string
}

func NewGuestHandler(svc service.ReservationService, mailer notify.Mailer, authCfg config.AuthConfig, baseURL string) *GuestHandler {
	return &GuestHandler{svc: svc, mailer: mailer, authCfg: authCfg, baseURL: baseURL}
}

func (h *GuestHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.create)
	r.Post("/access", h.requestAccess)

	r.Group(func(pr chi.Router) { // list requires a session
		pr.Use(mw.RequireJWT(h.authCfg.JWTSecret, auth.RoleGuest))
		pr.Get("/", h.list)
	})

	r.Group(func(pr chi.Router) { // manage token OR session
		pr.Use(mw.OptionalSession(h.authCfg.JWTSecret))
		pr.Get("/{id}", h.getByID)
		pr.Patch("/{id}", h.patch)
		pr.Delete("/{id}", h.cancel)
	})

	return r
}

type createGuestResponse struct {
	ID          string    `json:"id"`
	ManageToken string    `json:"manage_token"`
	Status      string    `json:"status"`
	ArrivalTime time.Time `json:"arrival_time"`
}

func (h *GuestHandler) create(w http.ResponseWriter, r *http.Request) {
	var draft domain.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	created, err := h.svc.Create(r.Context(), draft, r.Header.Get("Idempotency-Key"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, createGuestResponse{
		ID:          created.ID,
		ManageToken: created.ManageToken,
		Status:      string(created.Status),
		ArrivalTime: created.ArrivalTime,
	})
}

type accessRequest struct {
	Email string `json:"email"`
}

// requestAccess emails the guest a short-lived session link so they can see
// all their reservations without an account. The response never reveals
// whether the address is known.
func (h *GuestHandler) requestAccess(w http.ResponseWriter, r *http.Request) {
	var in accessRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		response.BadRequest(w, "email is required")
		return
	}

	token, err := auth.NewGuestSession(in.Email, h.authCfg.JWTSecret, h.authCfg.GuestSessionTTL)
	if err != nil {
		response.InternalError(w, "could not create session")
		return
	}

	link := fmt.Sprintf("%s/guest/reservations?session_token=%s", h.baseURL, token)
	text := fmt.Sprintf("Use this link to view your reservations. It expires in %s.\n\n%s\n",
		h.authCfg.GuestSessionTTL, link)
	if _, err := h.mailer.Send(in.Email, "", "Your reservations access link", text, ""); err != nil {
		logger.ErrorContext(r.Context(), "failed to send access link", "error", err)
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the address has reservations, a link is on its way",
	})
}

func (h *GuestHandler) list(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)

	items, err := h.svc.GetByEmail(r.Context(), claims.Email)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	out := make([]domain.Reservation, 0, len(items))
	for _, res := range items {
		res.ManageToken = ""
		out = append(out, res)
	}
	response.WriteJSON(w, http.StatusOK, out)
}

// resolve finds the reservation if the caller can prove access: a matching
// manage token, or a guest session owning the email.
func (h *GuestHandler) resolve(r *http.Request) (*domain.Reservation, error) {
	id := chi.URLParam(r, "id")

	if tok := r.URL.Query().Get("manage_token"); tok != "" {
		return h.svc.GetWithToken(r.Context(), id, tok)
	}

	claims := mw.Claims(r)
	if claims == nil || claims.Role != auth.RoleGuest {
		return nil, domain.ErrNotFound
	}
	res, err := h.svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !res.IsOwner(claims.Email) {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

func (h *GuestHandler) getByID(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolve(r)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

func (h *GuestHandler) patch(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolve(r)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	var patch domain.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	updated, err := h.svc.Update(r.Context(), res.ID, patch, domain.Guest)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, updated)
}

func (h *GuestHandler) cancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolve(r)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}

	if _, err := h.svc.Cancel(r.Context(), res.ID, domain.Guest); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
