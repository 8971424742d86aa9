package repository

import (
	"strconv"
	"strings"

	"assetledger/internal/models"
)

// TradeRepository - журнал сделок: таблица asset_trades. Пара сделки
// определяется инициирующим ордером, поэтому почти каждый запрос
// соединяет asset_trades с asset_orders
type TradeRepository struct {
	repo   *Repository
	assets *AssetRepository
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(repo *Repository, assets *AssetRepository) *TradeRepository {
	return &TradeRepository{repo: repo, assets: assets}
}

// GetTrades возвращает сделки направленной пары (по инициирующему
// ордеру), отсортированные по времени исполнения. Если хотя бы один
// актив пары неизвестен, результат пуст
func (r *TradeRepository) GetTrades(haveAssetID, wantAssetID int64, limit, offset int, reverse bool) ([]*models.TradeRecord, error) {
	haveAsset, err := r.assets.FromAssetID(haveAssetID)
	if err != nil {
		return nil, err
	}
	if haveAsset == nil {
		return nil, nil
	}

	wantAsset, err := r.assets.FromAssetID(wantAssetID)
	if err != nil {
		return nil, err
	}
	if wantAsset == nil {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`SELECT initiating_order_id, target_order_id, target_amount, initiator_amount, initiator_saving, traded_when FROM asset_orders JOIN asset_trades ON initiating_order_id = asset_order_id WHERE have_asset_id = $1 AND want_asset_id = $2 ORDER BY traded_when`)
	if reverse {
		sb.WriteString(" DESC")
	}

	limitOffsetSQL(&sb, limit, offset)

	rows, err := r.repo.db.Query(sb.String(), haveAssetID, wantAssetID)
	if err != nil {
		return nil, repositoryError("unable to fetch asset trades from repository", err)
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		trade := &models.TradeRecord{
			HaveAssetID:   haveAssetID,
			WantAssetID:   wantAssetID,
			HaveAssetName: haveAsset.Name,
			WantAssetName: wantAsset.Name,
		}
		err := rows.Scan(
			&trade.InitiatingOrderID,
			&trade.TargetOrderID,
			&trade.TargetAmount,
			&trade.InitiatorAmount,
			&trade.InitiatorSaving,
			&trade.TradedAt,
		)
		if err != nil {
			return nil, repositoryError("unable to fetch asset trades from repository", err)
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, repositoryError("unable to fetch asset trades from repository", err)
	}

	return trades, nil
}

// GetRecentTrades возвращает кросс-парную сводку последних сделок:
// для каждой когда-либо торговавшейся пары - не более двух самых
// свежих сделок. Пары без сделок в выдачу не попадают.
//
// assetIDs/otherAssetIDs сужают множество пар по have/want стороне;
// пустой срез означает отсутствие ограничения со своей стороны.
// Оконное "последние K на группу" выполняется на стороне хранилища
// через LATERAL-подзапрос с LIMIT 2
func (r *TradeRepository) GetRecentTrades(assetIDs, otherAssetIDs []int64, limit, offset int, reverse bool) ([]*models.RecentTradeSnapshot, error) {
	defer observeQuery("recent_trades").ObserveDuration()

	// Подзапрос: пары активов, которые действительно торговались
	var tradedAssets strings.Builder
	tradedAssets.WriteString("SELECT have_asset_id, want_asset_id FROM asset_trades JOIN asset_orders ON asset_order_id = initiating_order_id")

	// Идентификаторы безопасно вписывать литералами
	if len(assetIDs) > 0 {
		tradedAssets.WriteString(" WHERE have_asset_id IN (")
		for i, assetID := range assetIDs {
			if i != 0 {
				tradedAssets.WriteString(", ")
			}
			tradedAssets.WriteString(strconv.FormatInt(assetID, 10))
		}
		tradedAssets.WriteString(")")
	}

	if len(otherAssetIDs) > 0 {
		if len(assetIDs) == 0 {
			tradedAssets.WriteString(" WHERE ")
		} else {
			tradedAssets.WriteString(" AND ")
		}

		tradedAssets.WriteString("want_asset_id IN (")
		for i, assetID := range otherAssetIDs {
			if i != 0 {
				tradedAssets.WriteString(", ")
			}
			tradedAssets.WriteString(strconv.FormatInt(assetID, 10))
		}
		tradedAssets.WriteString(")")
	}

	tradedAssets.WriteString(" GROUP BY have_asset_id, want_asset_id")

	// Подзапрос: последние сделки каждой пары из traded_assets
	recentTrades := "SELECT asset_trades.target_amount, asset_trades.initiator_amount, asset_trades.traded_when " +
		"FROM asset_orders JOIN asset_trades ON initiating_order_id = asset_order_id " +
		"WHERE asset_orders.have_asset_id = traded_assets.have_asset_id AND asset_orders.want_asset_id = traded_assets.want_asset_id " +
		"ORDER BY traded_when DESC LIMIT 2"

	var sb strings.Builder
	sb.Grow(4096)
	sb.WriteString("SELECT have_asset_id, want_asset_id, recent_trades.target_amount, recent_trades.initiator_amount, recent_trades.traded_when FROM (")
	sb.WriteString(tradedAssets.String())
	sb.WriteString(") AS traded_assets, LATERAL (")
	sb.WriteString(recentTrades)
	sb.WriteString(") AS recent_trades (target_amount, initiator_amount, traded_when) ORDER BY have_asset_id")
	if reverse {
		sb.WriteString(" DESC")
	}
	sb.WriteString(", want_asset_id")
	if reverse {
		sb.WriteString(" DESC")
	}
	sb.WriteString(", recent_trades.traded_when DESC")

	limitOffsetSQL(&sb, limit, offset)

	rows, err := r.repo.db.Query(sb.String())
	if err != nil {
		return nil, repositoryError("unable to fetch recent asset trades from repository", err)
	}
	defer rows.Close()

	var snapshots []*models.RecentTradeSnapshot
	for rows.Next() {
		snapshot := &models.RecentTradeSnapshot{}
		err := rows.Scan(
			&snapshot.HaveAssetID,
			&snapshot.WantAssetID,
			&snapshot.OtherAmount,
			&snapshot.Amount,
			&snapshot.TradedAt,
		)
		if err != nil {
			return nil, repositoryError("unable to fetch recent asset trades from repository", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err = rows.Err(); err != nil {
		return nil, repositoryError("unable to fetch recent asset trades from repository", err)
	}

	return snapshots, nil
}

// GetOrdersTrades возвращает все сделки, в которых ордер был
// инициатором либо целью, отсортированные по времени исполнения
func (r *TradeRepository) GetOrdersTrades(orderID []byte, limit, offset int, reverse bool) ([]*models.TradeRecord, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT initiating_order_id, target_order_id, target_amount, initiator_amount, initiator_saving, traded_when, have_asset_id, have_asset.asset_name, want_asset_id, want_asset.asset_name FROM asset_trades JOIN asset_orders ON asset_order_id = initiating_order_id JOIN assets AS have_asset ON have_asset.asset_id = have_asset_id JOIN assets AS want_asset ON want_asset.asset_id = want_asset_id WHERE $1 IN (initiating_order_id, target_order_id) ORDER BY traded_when`)
	if reverse {
		sb.WriteString(" DESC")
	}

	limitOffsetSQL(&sb, limit, offset)

	rows, err := r.repo.db.Query(sb.String(), orderID)
	if err != nil {
		return nil, repositoryError("unable to fetch asset order's trades from repository", err)
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		trade := &models.TradeRecord{}
		err := rows.Scan(
			&trade.InitiatingOrderID,
			&trade.TargetOrderID,
			&trade.TargetAmount,
			&trade.InitiatorAmount,
			&trade.InitiatorSaving,
			&trade.TradedAt,
			&trade.HaveAssetID,
			&trade.HaveAssetName,
			&trade.WantAssetID,
			&trade.WantAssetName,
		)
		if err != nil {
			return nil, repositoryError("unable to fetch asset order's trades from repository", err)
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, repositoryError("unable to fetch asset order's trades from repository", err)
	}

	return trades, nil
}

// Count возвращает количество сделок в журнале
func (r *TradeRepository) Count() (int, error) {
	var count int
	err := r.repo.db.QueryRow(`SELECT COUNT(*) FROM asset_trades`).Scan(&count)
	if err != nil {
		return 0, repositoryError("unable to count asset trades in repository", err)
	}

	return count, nil
}

// Save вставляет либо обновляет сделку по составному ключу
// (инициатор, цель, target_amount, initiator_amount)
func (r *TradeRepository) Save(trade *models.TradeRecord) error {
	saver := NewSaver("asset_trades", "initiating_order_id", "target_order_id", "target_amount", "initiator_amount")

	saver.Bind("initiating_order_id", Bytes(trade.InitiatingOrderID)).
		Bind("target_order_id", Bytes(trade.TargetOrderID)).
		Bind("target_amount", Int64(trade.TargetAmount)).
		Bind("initiator_amount", Int64(trade.InitiatorAmount)).
		Bind("initiator_saving", Int64(trade.InitiatorSaving)).
		Bind("traded_when", Timestamp(trade.TradedAt))

	if err := saver.Execute(r.repo); err != nil {
		return repositoryError("unable to save asset trade into repository", err)
	}

	return nil
}

// Delete удаляет сделку, совпадающую по составному ключу
func (r *TradeRepository) Delete(trade *models.TradeRecord) error {
	_, err := r.repo.deleteRows("asset_trades",
		"initiating_order_id = $1 AND target_order_id = $2 AND target_amount = $3 AND initiator_amount = $4",
		trade.InitiatingOrderID, trade.TargetOrderID, trade.TargetAmount, trade.InitiatorAmount)
	if err != nil {
		return repositoryError("unable to delete asset trade from repository", err)
	}

	return nil
}
