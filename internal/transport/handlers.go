package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"freshbread-be/internal/auth"
	"freshbread-be/internal/checkout"
	"freshbread-be/internal/config"
	"freshbread-be/internal/notify"
	"freshbread-be/internal/order"
	"freshbread-be/internal/review"
	"freshbread-be/internal/utils"
)

type Handler struct {
	cfg       *config.Config
	directory auth.Directory
	checkouts checkout.Service
	orders    order.Service
	reviews   review.Repository
	admins    notify.AdminRepository
}

func NewHandler(
	cfg *config.Config,
	directory auth.Directory,
	checkouts checkout.Service,
	orders order.Service,
	reviews review.Repository,
	admins notify.AdminRepository,
) *Handler {
	return &Handler{
		cfg:       cfg,
		directory: directory,
		checkouts: checkouts,
		orders:    orders,
		reviews:   reviews,
		admins:    admins,
	}
}

// Login issues a staff JWT. The password is checked against the bcrypt
// hash from config; the users table only supplies the staff identity.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email != strings.ToLower(h.cfg.StaffEmail) ||
		!auth.CheckPasswordHash(body.Password, h.cfg.StaffPasswordHash) {
		utils.WriteJSONError(w, auth.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}

	identity, err := h.directory.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			utils.WriteJSONError(w, err.Error(), http.StatusUnauthorized)
			return
		}
		writeError(w, r, err)
		return
	}
	if !identity.Staff {
		utils.WriteJSONError(w, auth.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, identity.ID, utils.RoleStaff, identity.Email, identity.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	utils.WriteJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (h *Handler) CheckoutStep1(w http.ResponseWriter, r *http.Request) {
	var input checkout.Step1Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.checkouts.SubmitStep1(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := map[string]any{
		"payable":         result.Payable.StringFixed(2),
		"discount_amount": result.DiscountAmount.StringFixed(2),
		"next_step":       int(checkout.Step2),
	}
	if result.ZeroDue {
		resp["submitted"] = true
		resp["reference"] = result.Reference
		delete(resp, "next_step")
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) CheckoutInstructions(w http.ResponseWriter, r *http.Request) {
	inst, err := h.checkouts.PaymentInstructions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"payable":         inst.Payable.StringFixed(2),
		"discount_amount": inst.DiscountAmount.StringFixed(2),
		"send_to":         inst.InboxAddress,
	})
}

func (h *Handler) CheckoutConfirmSent(w http.ResponseWriter, r *http.Request) {
	if err := h.checkouts.ConfirmTransferSent(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"next_step": int(checkout.Step3)})
}

func (h *Handler) CheckoutStep3(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := h.checkouts.SubmitStep3(r.Context(), body.Reference)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id": sub.RequestID,
		"reference":  sub.Reference,
		"total_due":  sub.TotalDue.StringFixed(2),
		"message":    "your order is under review, you will be notified shortly",
	})
}

func (h *Handler) CheckoutCancel(w http.ResponseWriter, r *http.Request) {
	h.checkouts.Cancel(r.Context())
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	status := review.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = review.StatusPending
	}
	if status != review.StatusPending && status != review.StatusRejected {
		utils.WriteJSONError(w, "status must be pending or rejected", http.StatusBadRequest)
		return
	}

	reqs, err := h.reviews.ListByStatus(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"reviews": toReviewViews(reqs)})
}

func (h *Handler) AcceptReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	o, err := h.orders.AcceptReview(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"order": toOrderView(o)})
}

func (h *Handler) RejectReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Reason) == "" {
		utils.WriteJSONError(w, "a rejection reason is required", http.StatusUnprocessableEntity)
		return
	}

	if err := h.orders.RejectReview(r.Context(), id, body.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handler) DeleteRejectedReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.reviews.DeleteRejected(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orders.Transition(r.Context(), id, order.Status(body.Status), "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"order": toOrderView(o)})
}

// DeliverOrder is the delivered transition with the hand-off code check.
func (h *Handler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		DeliveryCode string `json:"delivery_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orders.Transition(r.Context(), id, order.StatusDelivered, body.DeliveryCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"order": toOrderView(o)})
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"orders": toOrderViews(orders)})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	o, err := h.orders.GetDetail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"order": toOrderView(o)})
}

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"orders": toOrderViews(orders)})
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	adminID, _ := utils.GetUserIDFromContext(r.Context())
	notes, err := h.admins.ListUnread(r.Context(), adminID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"notifications": toNotificationViews(notes)})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	adminID, _ := utils.GetUserIDFromContext(r.Context())
	if err := h.admins.MarkRead(r.Context(), adminID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteJSONError(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
