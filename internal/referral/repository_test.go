package referral

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetActiveCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	cols := []string{"id", "code", "owner_id", "amount", "expires_at", "used_at", "created_at"}

	t.Run("Active", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		mock.ExpectQuery("SELECT (.+) FROM discount_codes").
			WithArgs("AB12CD34", uint(5)).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(int64(11), "AB12CD34", int64(5), "50.00", future, nil, time.Now()))

		code, err := repo.GetActiveCode(context.Background(), "AB12CD34", 5)
		require.NoError(t, err)
		assert.Equal(t, int64(11), code.ID)
		assert.True(t, code.Amount.Equal(RewardAmount))
	})

	t.Run("ExpiredResolvesNotFound", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		mock.ExpectQuery("SELECT (.+) FROM discount_codes").
			WithArgs("AB12CD34", uint(5)).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(int64(11), "AB12CD34", int64(5), "50.00", past, nil, time.Now()))

		_, err := repo.GetActiveCode(context.Background(), "AB12CD34", 5)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("Unknown", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM discount_codes").
			WithArgs("NOPE0000", uint(5)).
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.GetActiveCode(context.Background(), "NOPE0000", 5)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})
}

func TestRepository_CreditDelivered(t *testing.T) {
	ctx := context.Background()

	t.Run("SeventhDeliveryMintsOneCode", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, owner_id FROM referral_records").
			WithArgs(uint(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}).AddRow(int64(1), int64(5)))
		mock.ExpectExec("UPDATE referral_records SET has_order = TRUE").
			WithArgs(uint(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// owner 5 now has seven completed referrals and no codes on record
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM referral_records").
			WithArgs(uint(5)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM discount_codes").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT email FROM users").
			WithArgs(uint(5)).
			WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("referrer@example.com"))
		mock.ExpectExec("INSERT INTO discount_codes").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE users SET completed_referral_count").
			WithArgs(uint(5), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		issued, err := repo.CreditDelivered(ctx, 3)
		require.NoError(t, err)
		require.Len(t, issued, 1)
		assert.Equal(t, uint(5), issued[0].OwnerID)
		assert.Equal(t, "referrer@example.com", issued[0].OwnerEmail)
		assert.Equal(t, 7, issued[0].CompletedCount)
		assert.Len(t, issued[0].Code, 8)
		assert.True(t, issued[0].Amount.Equal(RewardAmount))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OutstandingCodeCountsAgainstTarget", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, owner_id FROM referral_records").
			WithArgs(uint(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}).AddRow(int64(1), int64(5)))
		mock.ExpectExec("UPDATE referral_records SET has_order = TRUE").
			WillReturnResult(sqlmock.NewResult(0, 1))

		// seven completed but one unredeemed code already issued
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM referral_records").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM discount_codes").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT email FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("referrer@example.com"))
		mock.ExpectExec("UPDATE users SET completed_referral_count").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		issued, err := repo.CreditDelivered(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, issued)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NothingUncreditedIsANoop", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, owner_id FROM referral_records").
			WithArgs(uint(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}))
		mock.ExpectExec("UPDATE referral_records SET has_order = TRUE").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		issued, err := repo.CreditDelivered(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, issued)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
