package history

import "time"

// TorrentStat is the persisted per-payload scoring history. One row per
// content hash; rows are upserted every cycle the payload is observed and
// pruned once the payload has been gone longer than the grace period.
type TorrentStat struct {
	Hash         string    `gorm:"primaryKey;size:40" json:"hash"`
	Name         string    `gorm:"type:text" json:"name"`
	Category     string    `gorm:"size:255" json:"category"`
	Size         int64     `json:"size"`
	Tier         string    `gorm:"size:10;index" json:"tier"`
	SmoothedRate float64   `json:"smoothed_rate"` // EMA upload rate, bytes/sec
	InstantRate  float64   `json:"instant_rate"`  // last delta-derived rate, bytes/sec
	LastUploaded int64     `json:"last_uploaded"` // total-uploaded counter at last check
	LastChecked  time.Time `gorm:"index" json:"last_checked"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for TorrentStat.
func (TorrentStat) TableName() string {
	return "torrent_stats"
}
