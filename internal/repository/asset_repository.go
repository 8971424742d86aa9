package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"assetledger/internal/models"
)

// AssetRepository - каталог активов: таблица assets плюс чтение журнала
// транзакций выпуска
type AssetRepository struct {
	repo *Repository
}

// NewAssetRepository создает новый экземпляр репозитория
func NewAssetRepository(repo *Repository) *AssetRepository {
	return &AssetRepository{repo: repo}
}

// FromAssetID возвращает актив по идентификатору.
// Отсутствие - (nil, nil), не ошибка
func (r *AssetRepository) FromAssetID(assetID int64) (*models.AssetRecord, error) {
	query := `
		SELECT owner, asset_name, description, quantity, is_divisible, is_unspendable, creation_group_id, reference, reduced_asset_name
		FROM assets
		WHERE asset_id = $1`

	asset := &models.AssetRecord{AssetID: &assetID}
	err := r.repo.db.QueryRow(query, assetID).Scan(
		&asset.Owner,
		&asset.Name,
		&asset.Description,
		&asset.Quantity,
		&asset.IsDivisible,
		&asset.IsUnspendable,
		&asset.CreationGroupID,
		&asset.Reference,
		&asset.ReducedName,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, repositoryError("unable to fetch asset from repository", err)
	}

	return asset, nil
}

// FromAssetName возвращает актив по глобально уникальному имени
func (r *AssetRepository) FromAssetName(assetName string) (*models.AssetRecord, error) {
	query := `
		SELECT asset_id, owner, description, quantity, is_divisible, is_unspendable, creation_group_id, reference, reduced_asset_name
		FROM assets
		WHERE asset_name = $1`

	var assetID int64
	asset := &models.AssetRecord{Name: assetName}
	err := r.repo.db.QueryRow(query, assetName).Scan(
		&assetID,
		&asset.Owner,
		&asset.Description,
		&asset.Quantity,
		&asset.IsDivisible,
		&asset.IsUnspendable,
		&asset.CreationGroupID,
		&asset.Reference,
		&asset.ReducedName,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, repositoryError("unable to fetch asset from repository", err)
	}

	asset.AssetID = &assetID

	return asset, nil
}

// AssetExists проверяет наличие актива с данным идентификатором
func (r *AssetRepository) AssetExists(assetID int64) (bool, error) {
	exists, err := r.repo.exists("assets", "asset_id = $1", assetID)
	if err != nil {
		return false, repositoryError("unable to check for asset in repository", err)
	}
	return exists, nil
}

// AssetNameExists проверяет наличие актива с данным именем.
// Используется для отклонения дубликата до вставки: нарушение
// уникальности при записи приходит как общая RepositoryError
func (r *AssetRepository) AssetNameExists(assetName string) (bool, error) {
	exists, err := r.repo.exists("assets", "asset_name = $1", assetName)
	if err != nil {
		return false, repositoryError("unable to check for asset in repository", err)
	}
	return exists, nil
}

// ReducedNameExists проверяет наличие актива с данной нормализованной
// формой имени (ловит почти-дубликаты: регистр, гомоглифы)
func (r *AssetRepository) ReducedNameExists(reducedName string) (bool, error) {
	exists, err := r.repo.exists("assets", "reduced_asset_name = $1", reducedName)
	if err != nil {
		return false, repositoryError("unable to check for asset in repository", err)
	}
	return exists, nil
}

// GetAllAssets возвращает весь каталог, упорядоченный по asset_id
// (по убыванию при reverse), с пагинацией limit/offset
func (r *AssetRepository) GetAllAssets(limit, offset int, reverse bool) ([]*models.AssetRecord, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT asset_id, owner, asset_name, description, quantity, is_divisible, is_unspendable, creation_group_id, reference, reduced_asset_name FROM assets ORDER BY asset_id`)
	if reverse {
		sb.WriteString(" DESC")
	}

	limitOffsetSQL(&sb, limit, offset)

	rows, err := r.repo.db.Query(sb.String())
	if err != nil {
		return nil, repositoryError("unable to fetch all assets from repository", err)
	}
	defer rows.Close()

	var assets []*models.AssetRecord
	for rows.Next() {
		var assetID int64
		asset := &models.AssetRecord{}
		err := rows.Scan(
			&assetID,
			&asset.Owner,
			&asset.Name,
			&asset.Description,
			&asset.Quantity,
			&asset.IsDivisible,
			&asset.IsUnspendable,
			&asset.CreationGroupID,
			&asset.Reference,
			&asset.ReducedName,
		)
		if err != nil {
			return nil, repositoryError("unable to fetch all assets from repository", err)
		}
		asset.AssetID = &assetID
		assets = append(assets, asset)
	}

	if err = rows.Err(); err != nil {
		return nil, repositoryError("unable to fetch all assets from repository", err)
	}

	return assets, nil
}

// RecentAssetIDs возвращает идентификаторы активов, транзакция выпуска
// которых датирована не раньше since. Журнал транзакций - внешний
// реестр, отсюда читается только соединением
func (r *AssetRepository) RecentAssetIDs(since time.Time) ([]int64, error) {
	query := `
		SELECT asset_id FROM issue_asset_transactions
		JOIN assets USING (asset_id)
		JOIN transactions USING (signature)
		WHERE created_when >= $1`

	rows, err := r.repo.db.Query(query, since.UTC())
	if err != nil {
		return nil, repositoryError("unable to fetch recent asset IDs from repository", err)
	}
	defer rows.Close()

	var assetIDs []int64
	for rows.Next() {
		var assetID int64
		if err := rows.Scan(&assetID); err != nil {
			return nil, repositoryError("unable to fetch recent asset IDs from repository", err)
		}
		assetIDs = append(assetIDs, assetID)
	}

	if err = rows.Err(); err != nil {
		return nil, repositoryError("unable to fetch recent asset IDs from repository", err)
	}

	return assetIDs, nil
}

// Count возвращает количество активов в каталоге
func (r *AssetRepository) Count() (int, error) {
	var count int
	err := r.repo.db.QueryRow(`SELECT COUNT(*) FROM assets`).Scan(&count)
	if err != nil {
		return 0, repositoryError("unable to count assets in repository", err)
	}

	return count, nil
}

// Save вставляет либо обновляет актив по первичному ключу.
//
// Если вызывающая сторона не задала AssetID, идентификатор назначает
// хранилище при вставке; после записи он восстанавливается обязательным
// вторым шагом - чтением по уникальной ссылке транзакции выпуска.
// Двухфазный протокол, а не побочный эффект вставки: не каждое
// хранилище отдает сгенерированные ключи в ответе
func (r *AssetRepository) Save(asset *models.AssetRecord) error {
	saver := NewSaver("assets", "asset_id")

	if asset.AssetID != nil {
		saver.Bind("asset_id", Int64(*asset.AssetID))
	}

	saver.Bind("owner", Text(asset.Owner)).
		Bind("asset_name", Text(asset.Name)).
		Bind("description", Text(asset.Description)).
		Bind("quantity", Int64(asset.Quantity)).
		Bind("is_divisible", Bool(asset.IsDivisible)).
		Bind("is_unspendable", Bool(asset.IsUnspendable)).
		Bind("creation_group_id", Int64(int64(asset.CreationGroupID))).
		Bind("reference", Bytes(asset.Reference)).
		Bind("reduced_asset_name", Text(asset.ReducedName))

	if err := saver.Execute(r.repo); err != nil {
		return repositoryError("unable to save asset into repository", err)
	}

	if asset.AssetID == nil {
		var assetID int64
		err := r.repo.db.QueryRow(`SELECT asset_id FROM assets WHERE reference = $1`, asset.Reference).Scan(&assetID)
		if err != nil {
			return repositoryError("unable to fetch new asset ID from repository", err)
		}
		asset.AssetID = &assetID
	}

	return nil
}

// Delete удаляет актив и, по возможности, балансы счетов, ссылающиеся
// на него. Атомарность двух удалений этот слой не гарантирует - ее
// обеспечивает объемлющая транзакция вызывающей стороны
func (r *AssetRepository) Delete(assetID int64) error {
	if _, err := r.repo.deleteRows("assets", "asset_id = $1", assetID); err != nil {
		return repositoryError("unable to delete asset from repository", err)
	}

	if _, err := r.repo.deleteRows("account_balances", "asset_id = $1", assetID); err != nil {
		return repositoryError("unable to delete asset balances from repository", err)
	}

	return nil
}
