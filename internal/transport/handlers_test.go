package transport

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"freshbread-be/internal/auth"
	"freshbread-be/internal/checkout"
	"freshbread-be/internal/config"
	"freshbread-be/internal/notify"
	"freshbread-be/internal/order"
	"freshbread-be/internal/ratelimit"
	"freshbread-be/internal/review"
	"freshbread-be/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// --- Mocks ---

type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) SubmitStep1(ctx context.Context, input checkout.Step1Input) (*checkout.Step1Result, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Step1Result), args.Error(1)
}

func (m *MockCheckout) PaymentInstructions(ctx context.Context) (*checkout.Instructions, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Instructions), args.Error(1)
}

func (m *MockCheckout) ConfirmTransferSent(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCheckout) SubmitStep3(ctx context.Context, reference string) (*checkout.Submission, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Submission), args.Error(1)
}

func (m *MockCheckout) Cancel(ctx context.Context) {
	m.Called(ctx)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) AcceptReview(ctx context.Context, reviewID int64) (*order.Order, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) RejectReview(ctx context.Context, reviewID int64, reason string) error {
	args := m.Called(ctx, reviewID, reason)
	return args.Error(0)
}

func (m *MockOrders) Transition(ctx context.Context, orderID int64, to order.Status, deliveryCode string) (*order.Order, error) {
	args := m.Called(ctx, orderID, to, deliveryCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) GetDetail(ctx context.Context, orderID int64) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrders) ListMine(ctx context.Context) ([]*order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrders) ListAll(ctx context.Context) ([]*order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockReviews struct {
	mock.Mock
}

func (m *MockReviews) Create(ctx context.Context, req *review.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockReviews) GetByID(ctx context.Context, id int64) (*review.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.Request), args.Error(1)
}

func (m *MockReviews) ListByStatus(ctx context.Context, status review.Status) ([]*review.Request, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*review.Request), args.Error(1)
}

func (m *MockReviews) HasRecentPending(ctx context.Context, userID uint, cutoff time.Time) (bool, error) {
	args := m.Called(ctx, userID, cutoff)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviews) HasPendingReference(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviews) MarkRejected(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockReviews) MarkAcceptedTx(ctx context.Context, tx *sql.Tx, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockReviews) DeleteRejected(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAdmins struct {
	mock.Mock
}

func (m *MockAdmins) NotifyAll(ctx context.Context, message, url string) error {
	args := m.Called(ctx, message, url)
	return args.Error(0)
}

func (m *MockAdmins) ListUnread(ctx context.Context, adminID uint) ([]notify.Notification, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notify.Notification), args.Error(1)
}

func (m *MockAdmins) MarkRead(ctx context.Context, adminID uint, notificationID int64) error {
	args := m.Called(ctx, adminID, notificationID)
	return args.Error(0)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Identity), args.Error(1)
}

// --- Fixtures ---

const jwtSecret = "test-secret"

type apiFixture struct {
	router    http.Handler
	checkouts *MockCheckout
	orders    *MockOrders
	reviews   *MockReviews
	admins    *MockAdmins
	directory *MockDirectory
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	hash, err := auth.HashPassword("staff-password")
	require.NoError(t, err)

	f := &apiFixture{
		checkouts: new(MockCheckout),
		orders:    new(MockOrders),
		reviews:   new(MockReviews),
		admins:    new(MockAdmins),
		directory: new(MockDirectory),
	}

	cfg := &config.Config{
		JWTSecret:         jwtSecret,
		StaffEmail:        "staff@freshbread.example",
		StaffPasswordHash: hash,
	}
	handler := NewHandler(cfg, f.directory, f.checkouts, f.orders, f.reviews, f.admins)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(time.Hour), rate.Every(time.Millisecond), 100)
	f.router = NewRouter(handler, limiter)
	return f
}

func bearer(t *testing.T, userID uint, role string) string {
	t.Helper()
	token, err := auth.GenerateJWT(jwtSecret, userID, role, "someone@example.com", "someone")
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(f *apiFixture, method, path, authHeader, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestLoginEndpoint(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newAPIFixture(t)
		f.directory.On("GetByEmail", mock.Anything, "staff@freshbread.example").Return(&auth.Identity{
			ID: 9, Email: "staff@freshbread.example", Username: "staff", Staff: true,
		}, nil)

		rec := doJSON(f, http.MethodPost, "/api/auth/login", "",
			`{"email":"staff@freshbread.example","password":"staff-password"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["access_token"])

		claims, err := auth.ParseJWT(jwtSecret, resp["access_token"])
		require.NoError(t, err)
		assert.Equal(t, utils.RoleStaff, claims.Role)
		assert.Equal(t, uint(9), claims.UserID)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := doJSON(f, http.MethodPost, "/api/auth/login", "",
			`{"email":"staff@freshbread.example","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("NonStaffRow", func(t *testing.T) {
		f := newAPIFixture(t)
		f.directory.On("GetByEmail", mock.Anything, "staff@freshbread.example").Return(&auth.Identity{
			ID: 3, Email: "staff@freshbread.example", Staff: false,
		}, nil)

		rec := doJSON(f, http.MethodPost, "/api/auth/login", "",
			`{"email":"staff@freshbread.example","password":"staff-password"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthGuards(t *testing.T) {
	t.Run("CheckoutNeedsUser", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := doJSON(f, http.MethodPost, "/api/checkout/step1", "", `{"delivery_slot":"saturday-am"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("AdminNeedsStaff", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := doJSON(f, http.MethodGet, "/api/admin/reviews", bearer(t, 3, utils.RoleCustomer), "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	customer := func(t *testing.T) string { return bearer(t, 3, utils.RoleCustomer) }
	staff := func(t *testing.T) string { return bearer(t, 9, utils.RoleStaff) }

	t.Run("ValidationErrorIs422", func(t *testing.T) {
		f := newAPIFixture(t)
		f.checkouts.On("SubmitStep3", mock.Anything, "nope").
			Return(nil, &checkout.ValidationError{Msg: "invalid reference number"})

		rec := doJSON(f, http.MethodPost, "/api/checkout/step3", customer(t), `{"reference":"nope"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid reference number")
	})

	t.Run("StepErrorIs409WithRedirect", func(t *testing.T) {
		f := newAPIFixture(t)
		f.checkouts.On("PaymentInstructions", mock.Anything).
			Return(nil, &checkout.StepError{Incomplete: checkout.Step1})

		rec := doJSON(f, http.MethodGet, "/api/checkout/step2", customer(t), "")
		assert.Equal(t, http.StatusConflict, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(1), resp["incomplete_step"])
	})

	t.Run("CooldownIs429", func(t *testing.T) {
		f := newAPIFixture(t)
		f.checkouts.On("SubmitStep3", mock.Anything, "C1A7F2K9Q3Z8").
			Return(nil, checkout.ErrRateLimited)

		rec := doJSON(f, http.MethodPost, "/api/checkout/step3", customer(t), `{"reference":"C1A7F2K9Q3Z8"}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("IllegalTransitionIs409", func(t *testing.T) {
		f := newAPIFixture(t)
		f.orders.On("Transition", mock.Anything, int64(55), order.StatusDelivered, "").
			Return(nil, &order.IllegalTransitionError{From: order.StatusQueued, To: order.StatusDelivered})

		rec := doJSON(f, http.MethodPost, "/api/admin/orders/55/status", staff(t), `{"status":"delivered"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("DeliveryMismatchIs422", func(t *testing.T) {
		f := newAPIFixture(t)
		f.orders.On("Transition", mock.Anything, int64(55), order.StatusDelivered, "000000").
			Return(nil, order.ErrDeliveryCodeMismatch)

		rec := doJSON(f, http.MethodPost, "/api/admin/orders/55/deliver", staff(t), `{"delivery_code":"000000"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("ResolvedReviewIs409", func(t *testing.T) {
		f := newAPIFixture(t)
		f.orders.On("AcceptReview", mock.Anything, int64(7)).Return(nil, order.ErrReviewResolved)

		rec := doJSON(f, http.MethodPost, "/api/admin/reviews/7/accept", staff(t), "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("NotFoundIs404", func(t *testing.T) {
		f := newAPIFixture(t)
		f.orders.On("GetDetail", mock.Anything, int64(55)).Return(nil, order.ErrOrderNotFound)

		rec := doJSON(f, http.MethodGet, "/api/orders/55", customer(t), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCheckoutRoutes(t *testing.T) {
	token := func(t *testing.T) string { return bearer(t, 3, utils.RoleCustomer) }

	t.Run("Step1ReturnsPayable", func(t *testing.T) {
		f := newAPIFixture(t)
		f.checkouts.On("SubmitStep1", mock.Anything, mock.AnythingOfType("checkout.Step1Input")).
			Return(&checkout.Step1Result{
				Payable:        decimal.RequireFromString("25.00"),
				DiscountAmount: decimal.Zero,
			}, nil)

		rec := doJSON(f, http.MethodPost, "/api/checkout/step1", token(t),
			`{"delivery_slot":"saturday-am","wants_delivery":true,"location_id":"4a1f9f36-0b1f-4f6a-9a54-2f3e9d3c1b7e"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "25.00", resp["payable"])
		assert.Equal(t, float64(2), resp["next_step"])
	})

	t.Run("ZeroDueStep1ReportsSubmission", func(t *testing.T) {
		f := newAPIFixture(t)
		f.checkouts.On("SubmitStep1", mock.Anything, mock.AnythingOfType("checkout.Step1Input")).
			Return(&checkout.Step1Result{
				Payable:        decimal.Zero,
				DiscountAmount: decimal.RequireFromString("50.00"),
				ZeroDue:        true,
				Reference:      "A1B2C3D4E5F6",
			}, nil)

		rec := doJSON(f, http.MethodPost, "/api/checkout/step1", token(t),
			`{"delivery_slot":"saturday-am","discount_code":"AB12CD34"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["submitted"])
		assert.Equal(t, "A1B2C3D4E5F6", resp["reference"])
		assert.NotContains(t, resp, "next_step")
	})

	t.Run("Step3ReturnsRequestID", func(t *testing.T) {
		f := newAPIFixture(t)
		f.checkouts.On("SubmitStep3", mock.Anything, "C1A7F2K9Q3Z8").
			Return(&checkout.Submission{
				RequestID: 42,
				Reference: "C1A7F2K9Q3Z8",
				TotalDue:  decimal.RequireFromString("25.00"),
			}, nil)

		rec := doJSON(f, http.MethodPost, "/api/checkout/step3", token(t), `{"reference":"C1A7F2K9Q3Z8"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"request_id":42`)
	})

	t.Run("CancelAlwaysSucceeds", func(t *testing.T) {
		f := newAPIFixture(t)
		f.checkouts.On("Cancel", mock.Anything).Return()

		rec := doJSON(f, http.MethodPost, "/api/checkout/cancel", token(t), "")
		assert.Equal(t, http.StatusOK, rec.Code)
		f.checkouts.AssertCalled(t, "Cancel", mock.Anything)
	})
}

func TestAdminReviewRoutes(t *testing.T) {
	staff := func(t *testing.T) string { return bearer(t, 9, utils.RoleStaff) }

	t.Run("ListDefaultsToPending", func(t *testing.T) {
		f := newAPIFixture(t)
		f.reviews.On("ListByStatus", mock.Anything, review.StatusPending).Return([]*review.Request{{
			ID:        7,
			Username:  "alice",
			Reference: "C1A7F2K9Q3Z8",
			TotalDue:  decimal.RequireFromString("20.00"),
			Status:    review.StatusPending,
		}}, nil)

		rec := doJSON(f, http.MethodGet, "/api/admin/reviews", staff(t), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "C1A7F2K9Q3Z8")
	})

	t.Run("ListRejectedFilter", func(t *testing.T) {
		f := newAPIFixture(t)
		f.reviews.On("ListByStatus", mock.Anything, review.StatusRejected).Return([]*review.Request{}, nil)

		rec := doJSON(f, http.MethodGet, "/api/admin/reviews?status=rejected", staff(t), "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("BadStatusFilter", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := doJSON(f, http.MethodGet, "/api/admin/reviews?status=accepted", staff(t), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("RejectNeedsReason", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := doJSON(f, http.MethodPost, "/api/admin/reviews/7/reject", staff(t), `{"reason":"  "}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		f.orders.AssertNotCalled(t, "RejectReview", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DeleteRejected", func(t *testing.T) {
		f := newAPIFixture(t)
		f.reviews.On("DeleteRejected", mock.Anything, int64(7)).Return(nil)

		rec := doJSON(f, http.MethodDelete, "/api/admin/reviews/7", staff(t), "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
