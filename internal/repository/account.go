package repository

import (
	"context"
	"errors"
	"strings"

	"jeevandhara/internal/models"

	"gorm.io/gorm"
)

// AccountRepository holds the operations every profile kind supports.
type AccountRepository[T any] interface {
	GetByID(ctx context.Context, id uint) (*T, error)
	// FindByIdentity looks up by external uid first, then by email. It
	// returns (nil, nil) when neither matches.
	FindByIdentity(ctx context.Context, uid, email string) (*T, error)
	Create(ctx context.Context, account *T) error
	Update(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, page Page) ([]T, int64, error)
	SetExternalUID(ctx context.Context, id uint, uid string) error
	SetFCMToken(ctx context.Context, id uint, token string) error
	// ClearFCMToken blanks token wherever it is stored and returns how many
	// profiles held it.
	ClearFCMToken(ctx context.Context, token string) (int64, error)
	// Targets returns profiles with a device token, optionally restricted to ids.
	Targets(ctx context.Context, ids ...uint) ([]Target, error)
}

type accountRepository[T any] struct {
	db        *gorm.DB
	notFound  string
	duplicate string
}

func newAccountRepository[T any](db *gorm.DB, notFound, duplicate string) *accountRepository[T] {
	return &accountRepository[T]{db: db, notFound: notFound, duplicate: duplicate}
}

func (r *accountRepository[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	var account T
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, wrap(err, r.notFound)
	}
	return &account, nil
}

func (r *accountRepository[T]) FindByIdentity(ctx context.Context, uid, email string) (*T, error) {
	lookups := []struct{ column, value string }{
		{"external_uid", strings.TrimSpace(uid)},
		{"LOWER(email)", strings.ToLower(strings.TrimSpace(email))},
	}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		var account T
		err := r.db.WithContext(ctx).Where(l.column+" = ?", l.value).First(&account).Error
		if err == nil {
			return &account, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewInternalError(err)
		}
	}
	return nil, nil
}

func (r *accountRepository[T]) Create(ctx context.Context, account *T) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewValidationError(r.duplicate)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accountRepository[T]) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	res := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return models.NewValidationError(r.duplicate)
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(r.notFound)
	}
	return nil
}

func (r *accountRepository[T]) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(r.notFound)
	}
	return nil
}

func (r *accountRepository[T]) List(ctx context.Context, page Page) ([]T, int64, error) {
	return r.list(ctx, page, nil)
}

func (r *accountRepository[T]) list(ctx context.Context, page Page, scope func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	base := r.db.WithContext(ctx).Model(new(T))
	if scope != nil {
		base = scope(base)
	}
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	var out []T
	if err := page.apply(base.Session(&gorm.Session{})).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return out, total, nil
}

func (r *accountRepository[T]) SetExternalUID(ctx context.Context, id uint, uid string) error {
	return r.Update(ctx, id, map[string]any{"external_uid": uid})
}

func (r *accountRepository[T]) SetFCMToken(ctx context.Context, id uint, token string) error {
	return r.Update(ctx, id, map[string]any{"fcm_token": token})
}

func (r *accountRepository[T]) ClearFCMToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(new(T)).Where("fcm_token = ?", token).Update("fcm_token", "")
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *accountRepository[T]) Targets(ctx context.Context, ids ...uint) ([]Target, error) {
	q := r.db.WithContext(ctx).Model(new(T)).Select("id", "fcm_token").
		Where("fcm_token IS NOT NULL AND fcm_token <> ''")
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var targets []Target
	if err := q.Scan(&targets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return targets, nil
}
