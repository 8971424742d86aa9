package models

// AssetRecord представляет выпущенный актив биржи
//
// AssetID назначается хранилищем при первой вставке, если не задан
// вызывающей стороной (см. AssetRepository.Save). Name и ReducedName
// уникальны среди всех активов; ReducedName - нормализованная форма
// имени для поиска почти-дубликатов (регистр, гомоглифы).
type AssetRecord struct {
	AssetID         *int64 `json:"asset_id" db:"asset_id"`
	Owner           string `json:"owner" db:"owner"`                         // адрес владельца
	Name            string `json:"name" db:"asset_name"`                     // глобально уникально
	Description     string `json:"description" db:"description"`
	Quantity        int64  `json:"quantity" db:"quantity"`                   // в неделимых единицах
	IsDivisible     bool   `json:"is_divisible" db:"is_divisible"`
	IsUnspendable   bool   `json:"is_unspendable" db:"is_unspendable"`
	CreationGroupID int    `json:"creation_group_id" db:"creation_group_id"`
	Reference       []byte `json:"reference" db:"reference"`                 // уникальная ссылка транзакции выпуска
	ReducedName     string `json:"reduced_name" db:"reduced_asset_name"`
}

// HasAssetID сообщает, назначен ли активу идентификатор хранилища
func (a *AssetRecord) HasAssetID() bool {
	return a.AssetID != nil
}
