package repo

import (
	"context"

	"github.com/digibank/digibank-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreatePayee ignores a duplicate (owner, bank, account): p is filled from the stored row instead.
func (r *Repository) CreatePayee(ctx context.Context, p *model.Payee) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error; err != nil {
		return err
	}
	var stored model.Payee
	err := db.Where("user_id = ? AND bank_name = ? AND account_number = ?", p.UserID, p.BankName, p.AccountNumber).
		First(&stored).Error
	if err != nil {
		return err
	}
	*p = stored
	return nil
}

func (r *Repository) GetPayee(ctx context.Context, id uint64) (*model.Payee, error) {
	var p model.Payee
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPayees returns a user's payees ordered by name.
func (r *Repository) ListPayees(ctx context.Context, userID uint64) ([]model.Payee, error) {
	var payees []model.Payee
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name asc").Find(&payees).Error
	return payees, err
}

func (r *Repository) DeletePayee(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Payee{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
