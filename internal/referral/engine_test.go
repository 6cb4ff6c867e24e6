package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetActiveCode(ctx context.Context, code string, ownerID uint) (*DiscountCode, error) {
	args := m.Called(ctx, code, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DiscountCode), args.Error(1)
}

func (m *MockRepository) GetCodeByID(ctx context.Context, id int64, ownerID uint) (*DiscountCode, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DiscountCode), args.Error(1)
}

func (m *MockRepository) CreditDelivered(ctx context.Context, customerID uint) ([]IssuedReward, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]IssuedReward), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, recipient, subject, body string) {
	m.Called(ctx, recipient, subject, body)
}

func TestEngine_OnOrderDelivered(t *testing.T) {
	ctx := context.Background()

	t.Run("MailsEachNewReward", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)

		issued := []IssuedReward{
			{OwnerID: 5, OwnerEmail: "referrer@example.com", Code: "AB12CD34", Amount: RewardAmount, ExpiresAt: time.Now().Add(RewardExpiry), CompletedCount: 7},
			{OwnerID: 5, OwnerEmail: "referrer@example.com", Code: "EF56GH78", Amount: RewardAmount, ExpiresAt: time.Now().Add(RewardExpiry), CompletedCount: 14},
		}
		repo.On("CreditDelivered", ctx, uint(3)).Return(issued, nil)
		notifier.On("Notify", ctx, "referrer@example.com", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return()

		engine := NewEngine(repo, notifier)
		require.NoError(t, engine.OnOrderDelivered(ctx, 3))
		notifier.AssertNumberOfCalls(t, "Notify", 2)
	})

	t.Run("NothingEarnedNothingSent", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		repo.On("CreditDelivered", ctx, uint(3)).Return([]IssuedReward{}, nil)

		engine := NewEngine(repo, notifier)
		require.NoError(t, engine.OnOrderDelivered(ctx, 3))
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CreditFailurePropagates", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("CreditDelivered", ctx, uint(3)).Return(nil, errors.New("deadlock"))

		engine := NewEngine(repo, new(MockNotifier))
		assert.Error(t, engine.OnOrderDelivered(ctx, 3))
	})
}

func TestDiscountCode_IsActive(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	t.Run("Fresh", func(t *testing.T) {
		d := &DiscountCode{Amount: decimal.RequireFromString("50.00"), ExpiresAt: &future}
		assert.True(t, d.IsActive(now))
	})

	t.Run("Expired", func(t *testing.T) {
		d := &DiscountCode{ExpiresAt: &past}
		assert.False(t, d.IsActive(now))
	})

	t.Run("Used", func(t *testing.T) {
		d := &DiscountCode{ExpiresAt: &future, UsedAt: &past}
		assert.False(t, d.IsActive(now))
	})

	t.Run("NoExpiryNeverExpires", func(t *testing.T) {
		d := &DiscountCode{}
		assert.True(t, d.IsActive(now))
	})
}
