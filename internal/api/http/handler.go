package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/logger"
	"intranet-lending/internal/security"
	"intranet-lending/internal/service"
)

// MirrorLister reads the local copy of the inventory kept by the sync job.
type MirrorLister interface {
	List(ctx context.Context, includeArchived bool) ([]domain.MirrorItem, error)
}

// Handler exposes the lending workflow over JSON.
type Handler struct {
	rentals      service.RentalService
	availability service.AvailabilityService
	mirror       MirrorLister
}

func NewHandler(rentals service.RentalService, availability service.AvailabilityService, mirror MirrorLister) *Handler {
	return &Handler{rentals: rentals, availability: availability, mirror: mirror}
}

// NewRouter wires every route with its security name.
func NewRouter(h *Handler, tm security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestLogging)
	router.Use(NewAuth(tm).Middleware)

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name("health")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/items", h.ListItems).Methods(http.MethodGet).Name("items.list")
	api.HandleFunc("/items/{itemID}/availability", h.ItemAvailability).Methods(http.MethodGet).Name("items.availability")

	api.HandleFunc("/rentals", h.RequestRental).Methods(http.MethodPost).Name("rentals.request")
	api.HandleFunc("/rentals/checkout", h.CheckoutItem).Methods(http.MethodPost).Name("rentals.checkout")
	api.HandleFunc("/rentals/mine", h.ListMyRentals).Methods(http.MethodGet).Name("rentals.mine")
	api.HandleFunc("/rentals/{id:[0-9]+}", h.GetRental).Methods(http.MethodGet).Name("rentals.get")
	api.HandleFunc("/rentals/{id:[0-9]+}/return", h.RequestReturn).Methods(http.MethodPost).Name("rentals.request_return")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/rentals/pending", h.ListPendingRequests).Methods(http.MethodGet).Name("rentals.pending")
	admin.HandleFunc("/rentals/pending-returns", h.ListPendingReturns).Methods(http.MethodGet).Name("rentals.pending_returns")
	admin.HandleFunc("/rentals/{id:[0-9]+}/approve", h.ApproveRental).Methods(http.MethodPost).Name("rentals.approve")
	admin.HandleFunc("/rentals/{id:[0-9]+}/verify-return", h.VerifyReturn).Methods(http.MethodPost).Name("rentals.verify_return")
	admin.HandleFunc("/rentals/{id:[0-9]+}/checkin", h.CheckinItem).Methods(http.MethodPost).Name("rentals.checkin")
	admin.HandleFunc("/mirror", h.ListMirror).Methods(http.MethodGet).Name("mirror.list")

	return router
}

type rentalRequestBody struct {
	ItemID    string `json:"item_id"`
	Quantity  int32  `json:"quantity"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type verifyReturnBody struct {
	Condition string `json:"condition"`
	Notes     string `json:"notes"`
}

type availabilityResponse struct {
	ItemID    string `json:"item_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Available int    `json:"available"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.rentals.ListItems(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "Die Artikel konnten nicht geladen werden.")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) ItemAvailability(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemID"]
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "Start- und Enddatum sind erforderlich.")
		return
	}

	available, err := h.availability.AvailableUnits(r.Context(), itemID, start, end)
	if err != nil {
		writeDomainError(w, r, err, "Die Verfügbarkeit konnte nicht ermittelt werden.")
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{ItemID: itemID, StartDate: start, EndDate: end, Available: available})
}

func (h *Handler) RequestRental(w http.ResponseWriter, r *http.Request) {
	claims, body, ok := h.decodeRentalBody(w, r)
	if !ok {
		return
	}
	writeResult(w, h.rentals.RequestRental(r.Context(), claims.UserID, body.ItemID, body.Quantity, body.StartDate, body.EndDate), http.StatusCreated)
}

func (h *Handler) CheckoutItem(w http.ResponseWriter, r *http.Request) {
	claims, body, ok := h.decodeRentalBody(w, r)
	if !ok {
		return
	}
	writeResult(w, h.rentals.CheckoutItem(r.Context(), claims.UserID, body.ItemID, body.Quantity, body.StartDate, body.EndDate), http.StatusCreated)
}

func (h *Handler) ListMyRentals(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	rentals, err := h.rentals.ListMyRentals(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, r, err, "Die Anfragen konnten nicht geladen werden.")
		return
	}
	writeJSON(w, http.StatusOK, rentals)
}

func (h *Handler) GetRental(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := rentalID(w, r)
	if !ok {
		return
	}
	rt, err := h.rentals.GetRental(r.Context(), claims.UserID, id, claims.IsAdmin())
	if err != nil {
		writeDomainError(w, r, err, "Die Anfrage konnte nicht geladen werden.")
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

func (h *Handler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := rentalID(w, r)
	if !ok {
		return
	}
	writeResult(w, h.rentals.RequestReturn(r.Context(), claims.UserID, id), http.StatusOK)
}

func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.rentals.ListPendingRequests(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "Die Anfragen konnten nicht geladen werden.")
		return
	}
	writeJSON(w, http.StatusOK, rentals)
}

func (h *Handler) ListPendingReturns(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.rentals.ListPendingReturns(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "Die Rückgaben konnten nicht geladen werden.")
		return
	}
	writeJSON(w, http.StatusOK, rentals)
}

// ListMirror returns the synced items; ?archived=true includes archived rows.
func (h *Handler) ListMirror(w http.ResponseWriter, r *http.Request) {
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("archived"))
	items, err := h.mirror.List(r.Context(), includeArchived)
	if err != nil {
		writeDomainError(w, r, err, "Der Inventarspiegel konnte nicht geladen werden.")
		return
	}
	if items == nil {
		items = []domain.MirrorItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) ApproveRental(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := rentalID(w, r)
	if !ok {
		return
	}
	writeResult(w, h.rentals.ApproveRental(r.Context(), claims.UserID, id), http.StatusOK)
}

func (h *Handler) VerifyReturn(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := rentalID(w, r)
	if !ok {
		return
	}
	var body verifyReturnBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Ungültiger Anfrageinhalt.")
		return
	}
	writeResult(w, h.rentals.VerifyReturn(r.Context(), claims.UserID, id, body.Condition, body.Notes), http.StatusOK)
}

func (h *Handler) CheckinItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	id, ok := rentalID(w, r)
	if !ok {
		return
	}
	writeResult(w, h.rentals.CheckinItem(r.Context(), claims.UserID, id), http.StatusOK)
}

func (h *Handler) decodeRentalBody(w http.ResponseWriter, r *http.Request) (*security.UserClaims, rentalRequestBody, bool) {
	var body rentalRequestBody
	claims, ok := requireClaims(w, r)
	if !ok {
		return nil, body, false
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Ungültiger Anfrageinhalt.")
		return nil, body, false
	}
	return claims, body, true
}

func requireClaims(w http.ResponseWriter, r *http.Request) (*security.UserClaims, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Anmeldung erforderlich.")
	}
	return claims, ok
}

func rentalID(w http.ResponseWriter, r *http.Request) (int32, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Ungültige Anfrage-ID.")
		return 0, false
	}
	return int32(id), true
}

// statusFor maps an error kind to the HTTP status handed to the portal.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case "":
		return http.StatusOK
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientStock, domain.KindInvalidState:
		return http.StatusConflict
	case domain.KindNotConfigured:
		return http.StatusServiceUnavailable
	case domain.KindNetwork, domain.KindHTTP, domain.KindMalformedResponse, domain.KindRefreshFailed, domain.KindPartialFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(w http.ResponseWriter, result *domain.OperationResult, successStatus int) {
	if result.Success {
		writeJSON(w, successStatus, result)
		return
	}
	writeJSON(w, statusFor(result.Kind), result)
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	kind := domain.KindOf(err)
	if kind.IsFault() {
		logger.ErrorContext(r.Context(), "Request failed", "request_id", RequestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, statusFor(kind), domain.Failed(err, fallback))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, &domain.OperationResult{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
