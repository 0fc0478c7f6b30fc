package data

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HandRecorder records table payouts to the database. Failures are logged and
// swallowed so a database outage never stalls a running game.
type HandRecorder struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewHandRecorder(db *gorm.DB, logger *logrus.Logger) *HandRecorder {
	return &HandRecorder{db: db, logger: logger}
}

func (r *HandRecorder) RecordPayout(tableID, winner string, amount, potTotal int) {
	result := &HandResult{
		TableID:  tableID,
		Winner:   winner,
		Amount:   amount,
		PotTotal: potTotal,
		PlayedAt: time.Now(),
	}
	if err := CreateHandResult(r.db, result); err != nil {
		r.logger.Warnf("failed to record payout of %d to %s: %v", amount, winner, err)
	}
}
