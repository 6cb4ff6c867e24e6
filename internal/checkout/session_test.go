package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_WithStep1(t *testing.T) {
	sess := NewSession(uuid.New())

	t.Run("PickupNeedsOnlySlot", func(t *testing.T) {
		got, err := sess.WithStep1("saturday-am", false, nil, nil, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, got.Step1Complete)
		assert.Equal(t, "saturday-am", got.DeliverySlot)
		assert.False(t, got.WantsDelivery)
	})

	t.Run("BlankSlotRejected", func(t *testing.T) {
		_, err := sess.WithStep1("   ", false, nil, nil, decimal.Zero)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("DeliveryNeedsLocation", func(t *testing.T) {
		_, err := sess.WithStep1("saturday-am", true, nil, nil, decimal.Zero)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("NegativeDiscountClampedToZero", func(t *testing.T) {
		got, err := sess.WithStep1("saturday-am", false, nil, nil, decimal.RequireFromString("-10.00"))
		require.NoError(t, err)
		assert.True(t, got.DiscountAmount.IsZero())
	})

	t.Run("RedoingStep1ResetsStep2", func(t *testing.T) {
		got, err := sess.WithStep1("saturday-am", false, nil, nil, decimal.Zero)
		require.NoError(t, err)
		got, err = got.WithStep2Complete()
		require.NoError(t, err)

		got, err = got.WithStep1("sunday-pm", false, nil, nil, decimal.Zero)
		require.NoError(t, err)
		assert.False(t, got.Step2Complete)
	})
}

func TestSession_StepGuards(t *testing.T) {
	fresh := NewSession(uuid.New())

	t.Run("Step2BeforeStep1", func(t *testing.T) {
		_, err := fresh.EnterStep2()
		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, Step1, stepErr.Incomplete)
	})

	t.Run("Step3BeforeStep2", func(t *testing.T) {
		sess, err := fresh.WithStep1("saturday-am", false, nil, nil, decimal.Zero)
		require.NoError(t, err)

		_, err = sess.EnterStep3()
		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, Step2, stepErr.Incomplete)
	})

	t.Run("FullSequence", func(t *testing.T) {
		sess, err := fresh.WithStep1("saturday-am", false, nil, nil, decimal.Zero)
		require.NoError(t, err)

		sess, err = sess.EnterStep2()
		require.NoError(t, err)
		sess, err = sess.WithStep2Complete()
		require.NoError(t, err)
		sess, err = sess.EnterStep3()
		require.NoError(t, err)

		assert.Equal(t, Step3, sess.FirstIncompleteStep())
		assert.True(t, sess.WithSubmitted().Submitted)
	})
}

func TestValidReference(t *testing.T) {
	assert.True(t, ValidReference("C1A7F2K9Q3Z8"))
	assert.True(t, ValidReference("abcdefgh1234"))
	assert.False(t, ValidReference("SHORT"))
	assert.False(t, ValidReference("C1A7F2K9Q3Z8X"))
	assert.False(t, ValidReference("C1A7F2K9Q3Z!"))
	assert.False(t, ValidReference(""))
}

func TestPayable(t *testing.T) {
	d := decimal.RequireFromString

	assert.True(t, Payable(d("20.00"), d("5.00"), decimal.Zero).Equal(d("25.00")))
	assert.True(t, Payable(d("20.00"), decimal.Zero, d("5.00")).Equal(d("15.00")))

	// a reward code can exceed a small order; the total clamps at zero
	assert.True(t, Payable(d("20.00"), d("5.00"), d("50.00")).IsZero())
}
