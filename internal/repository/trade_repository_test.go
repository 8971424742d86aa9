package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"assetledger/internal/models"
)

// ============================================================
// TradeRepository Tests
// ============================================================

func newTradeRepo(t *testing.T) (*TradeRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}

	gateway := New(db, nil)
	assets := NewAssetRepository(gateway)

	return NewTradeRepository(gateway, assets), mock, func() { db.Close() }
}

func tradeColumns() []string {
	return []string{"initiating_order_id", "target_order_id", "target_amount", "initiator_amount", "initiator_saving", "traded_when"}
}

func TestTradeRepositoryGetTrades(t *testing.T) {
	now := time.Now().UTC()

	repo, mock, cleanup := newTradeRepo(t)
	defer cleanup()

	expectAssetLookup(mock, 1, "GOLD")
	expectAssetLookup(mock, 2, "SILVER")

	rows := sqlmock.NewRows(tradeColumns()).
		AddRow([]byte{0x01}, []byte{0x02}, int64(100), int64(90), int64(5), now).
		AddRow([]byte{0x03}, []byte{0x04}, int64(50), int64(45), int64(0), now)
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT initiating_order_id, target_order_id, target_amount, initiator_amount, initiator_saving, traded_when "+
			"FROM asset_orders JOIN asset_trades ON initiating_order_id = asset_order_id "+
			"WHERE have_asset_id = $1 AND want_asset_id = $2 ORDER BY traded_when",
	)).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(rows)

	trades, err := repo.GetTrades(1, 2, 0, 0, false)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].HaveAssetName != "GOLD" || trades[0].WantAssetName != "SILVER" {
		t.Errorf("asset names not resolved: %+v", trades[0])
	}
	if trades[0].InitiatorSaving != 5 {
		t.Errorf("expected initiator saving 5, got %d", trades[0].InitiatorSaving)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTradeRepositoryGetTrades_UnknownAsset(t *testing.T) {
	repo, mock, cleanup := newTradeRepo(t)
	defer cleanup()

	expectAssetLookup(mock, 1, "GOLD")
	expectAssetMissing(mock, 77)

	trades, err := repo.GetTrades(1, 77, 0, 0, false)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if trades != nil {
		t.Errorf("expected empty result, got %d trades", len(trades))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTradeRepositoryGetTrades_ReversePaged(t *testing.T) {
	repo, mock, cleanup := newTradeRepo(t)
	defer cleanup()

	expectAssetLookup(mock, 1, "GOLD")
	expectAssetLookup(mock, 2, "SILVER")

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY traded_when DESC LIMIT 10 OFFSET 20")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(tradeColumns()))

	if _, err := repo.GetTrades(1, 2, 10, 20, true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTradeRepositoryGetRecentTrades(t *testing.T) {
	now := time.Now().UTC()
	earlier := now.Add(-time.Hour)

	repo, mock, cleanup := newTradeRepo(t)
	defer cleanup()

	wantSQL := "SELECT have_asset_id, want_asset_id, recent_trades.target_amount, recent_trades.initiator_amount, recent_trades.traded_when FROM (" +
		"SELECT have_asset_id, want_asset_id FROM asset_trades JOIN asset_orders ON asset_order_id = initiating_order_id" +
		" WHERE have_asset_id IN (1, 2) AND want_asset_id IN (3)" +
		" GROUP BY have_asset_id, want_asset_id" +
		") AS traded_assets, LATERAL (" +
		"SELECT asset_trades.target_amount, asset_trades.initiator_amount, asset_trades.traded_when " +
		"FROM asset_orders JOIN asset_trades ON initiating_order_id = asset_order_id " +
		"WHERE asset_orders.have_asset_id = traded_assets.have_asset_id AND asset_orders.want_asset_id = traded_assets.want_asset_id " +
		"ORDER BY traded_when DESC LIMIT 2" +
		") AS recent_trades (target_amount, initiator_amount, traded_when) " +
		"ORDER BY have_asset_id, want_asset_id, recent_trades.traded_when DESC"

	rows := sqlmock.NewRows([]string{"have_asset_id", "want_asset_id", "target_amount", "initiator_amount", "traded_when"}).
		AddRow(int64(1), int64(3), int64(100), int64(90), now).
		AddRow(int64(1), int64(3), int64(40), int64(38), earlier).
		AddRow(int64(2), int64(3), int64(7), int64(7), now)
	mock.ExpectQuery(regexp.QuoteMeta(wantSQL)).WillReturnRows(rows)

	snapshots, err := repo.GetRecentTrades([]int64{1, 2}, []int64{3}, 0, 0, false)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(snapshots) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snapshots))
	}
	if snapshots[0].OtherAmount != 100 || snapshots[0].Amount != 90 {
		t.Errorf("unexpected amounts: %+v", snapshots[0])
	}
	if !snapshots[1].TradedAt.Equal(earlier) {
		t.Errorf("unexpected traded time: %v", snapshots[1].TradedAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTradeRepositoryGetRecentTrades_FilterVariants(t *testing.T) {
	tests := []struct {
		name          string
		assetIDs      []int64
		otherAssetIDs []int64
		reverse       bool
		limit         int
		wantFragment  string
	}{
		{
			name:         "no filters means every traded pair",
			wantFragment: "ON asset_order_id = initiating_order_id GROUP BY have_asset_id, want_asset_id",
		},
		{
			name:          "only other side filtered",
			otherAssetIDs: []int64{5, 6},
			wantFragment:  "WHERE want_asset_id IN (5, 6) GROUP BY",
		},
		{
			name:         "reverse with limit flips pair keys only",
			assetIDs:     []int64{9},
			reverse:      true,
			limit:        4,
			wantFragment: "ORDER BY have_asset_id DESC, want_asset_id DESC, recent_trades.traded_when DESC LIMIT 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := newTradeRepo(t)
			defer cleanup()

			mock.ExpectQuery(regexp.QuoteMeta(tt.wantFragment)).
				WillReturnRows(sqlmock.NewRows([]string{"have_asset_id", "want_asset_id", "target_amount", "initiator_amount", "traded_when"}))

			if _, err := repo.GetRecentTrades(tt.assetIDs, tt.otherAssetIDs, tt.limit, 0, tt.reverse); err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestTradeRepositoryGetOrdersTrades(t *testing.T) {
	now := time.Now().UTC()

	repo, mock, cleanup := newTradeRepo(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{
		"initiating_order_id", "target_order_id", "target_amount", "initiator_amount", "initiator_saving", "traded_when", "have_asset_id", "have_asset_name", "want_asset_id", "want_asset_name",
	}).
		AddRow([]byte{0x01}, []byte{0x02}, int64(100), int64(90), int64(0), now, int64(1), "GOLD", int64(2), "SILVER")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE $1 IN (initiating_order_id, target_order_id) ORDER BY traded_when")).
		WithArgs([]byte{0x02}).
		WillReturnRows(rows)

	trades, err := repo.GetOrdersTrades([]byte{0x02}, 0, 0, false)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].HaveAssetID != 1 || trades[0].WantAssetName != "SILVER" {
		t.Errorf("pair not resolved from join: %+v", trades[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTradeRepositoryGetOrdersTrades_QueryError(t *testing.T) {
	repo, mock, cleanup := newTradeRepo(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE $1 IN (initiating_order_id, target_order_id)")).
		WithArgs([]byte{0x02}).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetOrdersTrades([]byte{0x02}, 0, 0, false)

	var repoErr *RepositoryError
	if !errors.As(err, &repoErr) {
		t.Fatalf("expected RepositoryError, got %v", err)
	}
	if repoErr.Reason != "unable to fetch asset order's trades from repository" {
		t.Errorf("unexpected reason: %s", repoErr.Reason)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTradeRepositorySave(t *testing.T) {
	tradedAt := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	repo, mock, cleanup := newTradeRepo(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO asset_trades (initiating_order_id, target_order_id, target_amount, initiator_amount, initiator_saving, traded_when) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"ON CONFLICT (initiating_order_id, target_order_id, target_amount, initiator_amount) DO UPDATE SET "+
			"initiating_order_id = $7, target_order_id = $8, target_amount = $9, initiator_amount = $10, initiator_saving = $11, traded_when = $12",
	)).
		WithArgs(
			[]byte{0x01}, []byte{0x02}, int64(100), int64(90), int64(5), tradedAt,
			[]byte{0x01}, []byte{0x02}, int64(100), int64(90), int64(5), tradedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	trade := &models.TradeRecord{
		InitiatingOrderID: []byte{0x01},
		TargetOrderID:     []byte{0x02},
		TargetAmount:      100,
		InitiatorAmount:   90,
		InitiatorSaving:   5,
		TradedAt:          tradedAt,
	}

	if err := repo.Save(trade); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTradeRepositoryDelete(t *testing.T) {
	repo, mock, cleanup := newTradeRepo(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(
		"DELETE FROM asset_trades WHERE initiating_order_id = $1 AND target_order_id = $2 AND target_amount = $3 AND initiator_amount = $4",
	)).
		WithArgs([]byte{0x01}, []byte{0x02}, int64(100), int64(90)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	trade := &models.TradeRecord{
		InitiatingOrderID: []byte{0x01},
		TargetOrderID:     []byte{0x02},
		TargetAmount:      100,
		InitiatorAmount:   90,
	}

	if err := repo.Delete(trade); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTradeRepositoryCount(t *testing.T) {
	repo, mock, cleanup := newTradeRepo(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM asset_trades")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.Count()

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if count != 7 {
		t.Errorf("expected count 7, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
