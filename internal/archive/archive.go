package archive

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
	"gorm.io/gorm/clause"

	"pulsedesk/internal/model"
	"pulsedesk/pkg/conn"
	"pulsedesk/pkg/exception"
)

// ScoredItem is the persisted form of a feed item that went through the
// scoring queue.
type ScoredItem struct {
	ID             string    `gorm:"primaryKey;size:128"`
	Title          string    `gorm:"size:512"`
	Source         string    `gorm:"size:128;index"`
	URL            string    `gorm:"size:1024"`
	Category       string    `gorm:"size:64"`
	Summary        string    `gorm:"type:text"`
	AIImportance   float64
	RelevanceScore float64
	PublishedAt    time.Time `gorm:"index"`
	ArchivedAt     time.Time
}

func (ScoredItem) TableName() string { return "scored_items" }

// Archive persists scored feed items. It is best-effort end to end: every
// failure is logged and swallowed so the feed path never stalls on the
// database.
type Archive struct {
	client *conn.Client
}

// New opens the archive store and runs migration. An empty DSN disables
// archiving.
func New(dsn string) (*Archive, error) {
	if dsn == "" {
		return nil, exception.ErrArchiveDisabled
	}
	client, err := conn.New(conn.Option{ConnString: dsn})
	if err != nil {
		return nil, err
	}
	if err := client.DB().AutoMigrate(&ScoredItem{}); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Archive{client: client}, nil
}

// Store upserts one scored item. Safe to call on a nil Archive.
func (a *Archive) Store(ctx context.Context, item model.FeedItem) {
	if a == nil {
		return
	}
	row := ScoredItem{
		ID:             item.ID,
		Title:          item.Title,
		Source:         item.Source,
		URL:            item.URL,
		Category:       item.Category,
		Summary:        item.Summary,
		AIImportance:   item.AIImportance,
		RelevanceScore: item.RelevanceScore,
		PublishedAt:    item.Timestamp,
		ArchivedAt:     time.Now(),
	}
	err := a.client.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		logs.Warnf("archive store %s failed: %v", item.ID, err)
	}
}

// Recent returns the latest archived items, newest publication first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]ScoredItem, error) {
	if a == nil {
		return nil, exception.ErrArchiveDisabled
	}
	var rows []ScoredItem
	err := a.client.DB().WithContext(ctx).
		Order("published_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Close releases the pool. Safe on nil.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}
	return a.client.Close()
}
