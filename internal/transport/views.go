package transport

import (
	"time"

	"freshbread-be/internal/notify"
	"freshbread-be/internal/order"
	"freshbread-be/internal/review"
)

type notificationView struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationViews(notes []notify.Notification) []notificationView {
	views := make([]notificationView, 0, len(notes))
	for _, n := range notes {
		views = append(views, notificationView{
			ID:        n.ID,
			Message:   n.Message,
			URL:       n.URL,
			CreatedAt: n.CreatedAt,
		})
	}
	return views
}

type orderLineView struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type orderView struct {
	ID           int64           `json:"id"`
	OrderCode    string          `json:"order_code"`
	Status       string          `json:"status"`
	TotalPrice   string          `json:"total_price"`
	Deliver      bool            `json:"deliver"`
	DeliverySlot *string         `json:"delivery_slot,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Items        []orderLineView `json:"items,omitempty"`
}

func toOrderView(o *order.Order) orderView {
	v := orderView{
		ID:           o.ID,
		OrderCode:    o.OrderCode,
		Status:       string(o.Status),
		TotalPrice:   o.TotalPrice.StringFixed(2),
		Deliver:      o.Deliver,
		DeliverySlot: o.DeliverySlot,
		CreatedAt:    o.CreatedAt,
		CompletedAt:  o.CompletedAt,
	}
	for _, line := range o.Items {
		v.Items = append(v.Items, orderLineView{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal().StringFixed(2),
		})
	}
	return v
}

func toOrderViews(orders []*order.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	return views
}

type reviewView struct {
	ID             int64                 `json:"id"`
	Username       string                `json:"username"`
	Email          string                `json:"email"`
	Reference      string                `json:"reference"`
	TotalDue       string                `json:"total_due"`
	Deliver        bool                  `json:"deliver"`
	DeliverySlot   *string               `json:"delivery_slot,omitempty"`
	Items          []review.SnapshotLine `json:"items"`
	Status         string                `json:"status"`
	Reason         *string               `json:"reason,omitempty"`
	DiscountAmount string                `json:"discount_amount"`
	CreatedAt      time.Time             `json:"created_at"`
}

func toReviewView(req *review.Request) reviewView {
	return reviewView{
		ID:             req.ID,
		Username:       req.Username,
		Email:          req.Email,
		Reference:      req.Reference,
		TotalDue:       req.TotalDue.StringFixed(2),
		Deliver:        req.Deliver,
		DeliverySlot:   req.DeliverySlot,
		Items:          req.Items,
		Status:         string(req.Status),
		Reason:         req.Reason,
		DiscountAmount: req.DiscountAmount.StringFixed(2),
		CreatedAt:      req.CreatedAt,
	}
}

func toReviewViews(reqs []*review.Request) []reviewView {
	views := make([]reviewView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, toReviewView(req))
	}
	return views
}
