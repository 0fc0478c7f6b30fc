package data

import (
	"time"

	"gorm.io/gorm"
)

// HandResult records one payout at a showdown: a hand that split the pot
// produces one row per winner.
type HandResult struct {
	ID       uint64 `gorm:"primaryKey"`
	TableID  string `gorm:"index; not null"`
	Winner   string `gorm:"index; not null"`
	Amount   int    `gorm:"not null"`
	PotTotal int    `gorm:"not null"`
	PlayedAt time.Time
}

// CreateHandResult persists a hand result.
func CreateHandResult(db *gorm.DB, result *HandResult) error {
	return db.Create(result).Error
}

// FindHandResultsByWinner returns every recorded payout to the named player,
// most recent first.
func FindHandResultsByWinner(db *gorm.DB, winner string) ([]HandResult, error) {
	var results []HandResult
	err := db.Where("winner = ?", winner).Order("played_at desc").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// TotalWinnings sums every payout to the named player.
func TotalWinnings(db *gorm.DB, winner string) (int64, error) {
	var total int64
	err := db.Model(&HandResult{}).
		Where("winner = ?", winner).
		Select("coalesce(sum(amount), 0)").
		Scan(&total).Error
	return total, err
}
