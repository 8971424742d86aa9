package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"assetledger/internal/models"
)

// OrderRepository - книга ордеров: хранение лежащих ордеров и запросы
// с приоритетом цена/время поверх таблицы asset_orders.
//
// Имена активов разрешаются через каталог один раз на вызов, а не на
// строку: это избавляет горячие запросы книги от соединений с assets
type OrderRepository struct {
	repo   *Repository
	assets *AssetRepository
}

// NewOrderRepository создает новый экземпляр репозитория
func NewOrderRepository(repo *Repository, assets *AssetRepository) *OrderRepository {
	return &OrderRepository{repo: repo, assets: assets}
}

// FromOrderID возвращает ордер по идентификатору вместе с именами
// активов пары. Отсутствие - (nil, nil)
func (r *OrderRepository) FromOrderID(orderID []byte) (*models.OrderRecord, error) {
	query := `
		SELECT creator, have_asset_id, want_asset_id, amount, fulfilled, price, ordered_when, is_closed, is_fulfilled, have_asset.asset_name, want_asset.asset_name
		FROM asset_orders
		JOIN assets AS have_asset ON have_asset.asset_id = have_asset_id
		JOIN assets AS want_asset ON want_asset.asset_id = want_asset_id
		WHERE asset_order_id = $1`

	order := &models.OrderRecord{OrderID: orderID}
	err := r.repo.db.QueryRow(query, orderID).Scan(
		&order.Creator,
		&order.HaveAssetID,
		&order.WantAssetID,
		&order.Amount,
		&order.Fulfilled,
		&order.Price,
		&order.OrderedAt,
		&order.IsClosed,
		&order.IsFulfilled,
		&order.HaveAssetName,
		&order.WantAssetName,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, repositoryError("unable to fetch asset order from repository", err)
	}

	return order, nil
}

// GetOpenOrders возвращает открытые ордера направленной пары в порядке
// цена/время подачи (оба ключа переворачиваются при reverse).
// Если хотя бы один актив пары неизвестен, результат пуст
func (r *OrderRepository) GetOpenOrders(haveAssetID, wantAssetID int64, limit, offset int, reverse bool) ([]*models.OrderRecord, error) {
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

	defer observeQuery("open_orders").ObserveDuration()

	var sb strings.Builder
	sb.WriteString(`SELECT creator, asset_order_id, amount, fulfilled, price, ordered_when FROM asset_orders WHERE have_asset_id = $1 AND want_asset_id = $2 AND NOT is_closed AND NOT is_fulfilled ORDER BY price`)
	if reverse {
		sb.WriteString(" DESC")
	}
	sb.WriteString(", ordered_when")
	if reverse {
		sb.WriteString(" DESC")
	}

	limitOffsetSQL(&sb, limit, offset)

	rows, err := r.repo.db.Query(sb.String(), haveAssetID, wantAssetID)
	if err != nil {
		return nil, repositoryError("unable to fetch open asset orders from repository", err)
	}
	defer rows.Close()

	var orders []*models.OrderRecord
	for rows.Next() {
		// Выбранные ордера открыты по условию запроса
		order := &models.OrderRecord{
			HaveAssetID:   haveAssetID,
			WantAssetID:   wantAssetID,
			HaveAssetName: haveAsset.Name,
			WantAssetName: wantAsset.Name,
		}
		err := rows.Scan(
			&order.Creator,
			&order.OrderID,
			&order.Amount,
			&order.Fulfilled,
			&order.Price,
			&order.OrderedAt,
		)
		if err != nil {
			return nil, repositoryError("unable to fetch open asset orders from repository", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, repositoryError("unable to fetch open asset orders from repository", err)
	}

	return orders, nil
}

// GetOpenOrdersForTrading возвращает открытые ордера пары для механизма
// сопоставления: без пагинации и без разрешения имен активов.
//
// Хранимая цена всегда выражает один и тот же физический курс, но
// единица котирования пары неявно задана меньшим из двух asset_id.
// Поэтому при заданном minimumPrice направление фильтра и сортировки
// зависит от стороны запроса: для haveAssetID < wantAssetID условие
// "не хуже минимума" - это price >= minimumPrice с сортировкой по цене
// по убыванию (лучшая цена первой), иначе price <= minimumPrice с
// сортировкой по возрастанию. Вторичный ключ ordered_when всегда по
// возрастанию
func (r *OrderRepository) GetOpenOrdersForTrading(haveAssetID, wantAssetID int64, minimumPrice *decimal.Decimal) ([]*models.OrderRecord, error) {
	defer observeQuery("open_orders_for_trading").ObserveDuration()

	var sb strings.Builder
	sb.WriteString(`SELECT creator, asset_order_id, amount, fulfilled, price, ordered_when FROM asset_orders WHERE have_asset_id = $1 AND want_asset_id = $2 AND NOT is_closed AND NOT is_fulfilled`)

	args := []interface{}{haveAssetID, wantAssetID}

	if minimumPrice != nil {
		// NOTE: haveAssetID и wantAssetID здесь - стороны ЦЕЛЕВЫХ
		// ордеров, то есть противоположны сторонам инициатора
		if haveAssetID < wantAssetID {
			sb.WriteString(" AND price >= $3")
		} else {
			sb.WriteString(" AND price <= $3")
		}

		args = append(args, *minimumPrice)
	}

	sb.WriteString(" ORDER BY price")
	if minimumPrice != nil && haveAssetID < wantAssetID {
		sb.WriteString(" DESC")
	}
	sb.WriteString(", ordered_when")

	rows, err := r.repo.db.Query(sb.String(), args...)
	if err != nil {
		return nil, repositoryError("unable to fetch open asset orders for trading from repository", err)
	}
	defer rows.Close()

	var orders []*models.OrderRecord
	for rows.Next() {
		// Имена активов механизму сопоставления не нужны
		order := &models.OrderRecord{
			HaveAssetID: haveAssetID,
			WantAssetID: wantAssetID,
		}
		err := rows.Scan(
			&order.Creator,
			&order.OrderID,
			&order.Amount,
			&order.Fulfilled,
			&order.Price,
			&order.OrderedAt,
		)
		if err != nil {
			return nil, repositoryError("unable to fetch open asset orders for trading from repository", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, repositoryError("unable to fetch open asset orders for trading from repository", err)
	}

	return orders, nil
}

// GetAggregatedOpenOrders возвращает агрегированную книгу пары: открытые
// неисполненные ордера группируются по цене, объемы суммируются,
// временем уровня считается максимум по группе
func (r *OrderRepository) GetAggregatedOpenOrders(haveAssetID, wantAssetID int64, limit, offset int, reverse bool) ([]*models.AggregatedDepthLevel, error) {
	defer observeQuery("aggregated_open_orders").ObserveDuration()

	var sb strings.Builder
	sb.WriteString(`SELECT price, SUM(amount - fulfilled), MAX(ordered_when) FROM asset_orders WHERE have_asset_id = $1 AND want_asset_id = $2 AND NOT is_closed AND NOT is_fulfilled GROUP BY price ORDER BY price`)
	if reverse {
		sb.WriteString(" DESC")
	}

	limitOffsetSQL(&sb, limit, offset)

	rows, err := r.repo.db.Query(sb.String(), haveAssetID, wantAssetID)
	if err != nil {
		return nil, repositoryError("unable to fetch aggregated open asset orders from repository", err)
	}
	defer rows.Close()

	var levels []*models.AggregatedDepthLevel
	for rows.Next() {
		level := &models.AggregatedDepthLevel{}
		err := rows.Scan(&level.Price, &level.TotalUnfulfilled, &level.LastUpdated)
		if err != nil {
			return nil, repositoryError("unable to fetch aggregated open asset orders from repository", err)
		}
		levels = append(levels, level)
	}

	if err = rows.Err(); err != nil {
		return nil, repositoryError("unable to fetch aggregated open asset orders from repository", err)
	}

	return levels, nil
}

// GetAccountOrders возвращает ордера одного создателя, отсортированные
// по времени подачи. optIsClosed/optIsFulfilled (nil - без фильтра)
// сужают выборку по флагам состояния
func (r *OrderRepository) GetAccountOrders(creator []byte, optIsClosed, optIsFulfilled *bool, limit, offset int, reverse bool) ([]*models.OrderRecord, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT asset_order_id, have_asset_id, want_asset_id, amount, fulfilled, price, ordered_when, is_closed, is_fulfilled, have_asset.asset_name, want_asset.asset_name FROM asset_orders JOIN assets AS have_asset ON have_asset.asset_id = have_asset_id JOIN assets AS want_asset ON want_asset.asset_id = want_asset_id WHERE creator = $1`)

	if optIsClosed != nil {
		sb.WriteString(" AND is_closed = ")
		sb.WriteString(boolLiteral(*optIsClosed))
	}

	if optIsFulfilled != nil {
		sb.WriteString(" AND is_fulfilled = ")
		sb.WriteString(boolLiteral(*optIsFulfilled))
	}

	sb.WriteString(" ORDER BY ordered_when")
	if reverse {
		sb.WriteString(" DESC")
	}

	limitOffsetSQL(&sb, limit, offset)

	rows, err := r.repo.db.Query(sb.String(), creator)
	if err != nil {
		return nil, repositoryError("unable to fetch account's asset orders from repository", err)
	}
	defer rows.Close()

	var orders []*models.OrderRecord
	for rows.Next() {
		order := &models.OrderRecord{Creator: creator}
		err := rows.Scan(
			&order.OrderID,
			&order.HaveAssetID,
			&order.WantAssetID,
			&order.Amount,
			&order.Fulfilled,
			&order.Price,
			&order.OrderedAt,
			&order.IsClosed,
			&order.IsFulfilled,
			&order.HaveAssetName,
			&order.WantAssetName,
		)
		if err != nil {
			return nil, repositoryError("unable to fetch account's asset orders from repository", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, repositoryError("unable to fetch account's asset orders from repository", err)
	}

	return orders, nil
}

// GetAccountOrdersForPair - вариант GetAccountOrders, суженный до одной
// направленной пары. Если хотя бы один актив неизвестен, результат пуст
func (r *OrderRepository) GetAccountOrdersForPair(creator []byte, haveAssetID, wantAssetID int64, optIsClosed, optIsFulfilled *bool, limit, offset int, reverse bool) ([]*models.OrderRecord, error) {
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
	sb.WriteString(`SELECT asset_order_id, amount, fulfilled, price, ordered_when, is_closed, is_fulfilled FROM asset_orders WHERE creator = $1 AND have_asset_id = $2 AND want_asset_id = $3`)

	if optIsClosed != nil {
		sb.WriteString(" AND is_closed = ")
		sb.WriteString(boolLiteral(*optIsClosed))
	}

	if optIsFulfilled != nil {
		sb.WriteString(" AND is_fulfilled = ")
		sb.WriteString(boolLiteral(*optIsFulfilled))
	}

	sb.WriteString(" ORDER BY ordered_when")
	if reverse {
		sb.WriteString(" DESC")
	}

	limitOffsetSQL(&sb, limit, offset)

	rows, err := r.repo.db.Query(sb.String(), creator, haveAssetID, wantAssetID)
	if err != nil {
		return nil, repositoryError("unable to fetch account's asset orders from repository", err)
	}
	defer rows.Close()

	var orders []*models.OrderRecord
	for rows.Next() {
		order := &models.OrderRecord{
			Creator:       creator,
			HaveAssetID:   haveAssetID,
			WantAssetID:   wantAssetID,
			HaveAssetName: haveAsset.Name,
			WantAssetName: wantAsset.Name,
		}
		err := rows.Scan(
			&order.OrderID,
			&order.Amount,
			&order.Fulfilled,
			&order.Price,
			&order.OrderedAt,
			&order.IsClosed,
			&order.IsFulfilled,
		)
		if err != nil {
			return nil, repositoryError("unable to fetch account's asset orders from repository", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, repositoryError("unable to fetch account's asset orders from repository", err)
	}

	return orders, nil
}

// Count возвращает количество ордеров в книге
func (r *OrderRepository) Count() (int, error) {
	var count int
	err := r.repo.db.QueryRow(`SELECT COUNT(*) FROM asset_orders`).Scan(&count)
	if err != nil {
		return 0, repositoryError("unable to count asset orders in repository", err)
	}

	return count, nil
}

// Save вставляет либо обновляет ордер по asset_order_id
func (r *OrderRepository) Save(order *models.OrderRecord) error {
	saver := NewSaver("asset_orders", "asset_order_id")

	saver.Bind("asset_order_id", Bytes(order.OrderID)).
		Bind("creator", Bytes(order.Creator)).
		Bind("have_asset_id", Int64(order.HaveAssetID)).
		Bind("want_asset_id", Int64(order.WantAssetID)).
		Bind("amount", Int64(order.Amount)).
		Bind("fulfilled", Int64(order.Fulfilled)).
		Bind("price", Decimal(order.Price)).
		Bind("ordered_when", Timestamp(order.OrderedAt)).
		Bind("is_closed", Bool(order.IsClosed)).
		Bind("is_fulfilled", Bool(order.IsFulfilled))

	if err := saver.Execute(r.repo); err != nil {
		return repositoryError("unable to save asset order into repository", err)
	}

	return nil
}

// Delete удаляет ордер (только административное удаление: жизненный
// цикл ордера идет через флаги is_closed/is_fulfilled)
func (r *OrderRepository) Delete(orderID []byte) error {
	if _, err := r.repo.deleteRows("asset_orders", "asset_order_id = $1", orderID); err != nil {
		return repositoryError("unable to delete asset order from repository", err)
	}

	return nil
}
