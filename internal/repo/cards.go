package repo

import (
	"context"
	"time"

	"github.com/digibank/digibank-service/internal/model"
	"gorm.io/gorm"
)

func (r *Repository) CreateCard(ctx context.Context, c *model.Card) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) GetCard(ctx context.Context, id uint64) (*model.Card, error) {
	var c model.Card
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCards returns a user's cards in creation order.
func (r *Repository) ListCards(ctx context.Context, userID uint64) ([]model.Card, error) {
	var cards []model.Card
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&cards).Error
	return cards, err
}

// UpdateCardPin replaces the PIN without touching balance or version.
func (r *Repository) UpdateCardPin(ctx context.Context, id uint64, pin string) error {
	res := r.db.WithContext(ctx).Model(&model.Card{}).Where("id = ?", id).
		Updates(map[string]interface{}{"pin": pin, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteCard removes the card row. Its audit entries are kept.
func (r *Repository) DeleteCard(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Card{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
