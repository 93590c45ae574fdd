package repository

import (
	"context"
	"errors"
	"time"

	"github.com/immxrtalbeast/axenix_meet/internal/domain"
	"github.com/immxrtalbeast/axenix_meet/internal/repository/model"
	"gorm.io/gorm"
)

// PostgresRoomRepository expects a *gorm.DB opened with TranslateError so
// primary key conflicts surface as gorm.ErrDuplicatedKey.
type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewPostgresRoomRepository(db *gorm.DB) *PostgresRoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) Get(ctx context.Context, code string) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.Room
	err := r.db.WithContext(ctx).First(&room, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return toDomainRoom(&room), nil
}

func (r *PostgresRoomRepository) Exists(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Room{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == nil {
		return errors.New("room is nil")
	}

	if err := r.db.WithContext(ctx).Create(toModelRoom(room)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoomExists
		}
		return err
	}
	return nil
}

func (r *PostgresRoomRepository) Delete(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Delete(&model.Room{}, "code = ?", code)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) List(ctx context.Context) ([]*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rooms []model.Room
	if err := r.db.WithContext(ctx).Order("created_at").Find(&rooms).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Room, 0, len(rooms))
	for i := range rooms {
		result = append(result, toDomainRoom(&rooms[i]))
	}
	return result, nil
}

func toModelRoom(room *domain.Room) *model.Room {
	var expiresAt *time.Time
	if !room.ExpiresAt.IsZero() {
		t := room.ExpiresAt.UTC()
		expiresAt = &t
	}

	return &model.Room{
		Code:            room.Code,
		CreatorName:     room.CreatorName,
		CreatorEmail:    room.CreatorEmail,
		ParticipantsRef: room.ParticipantsRef,
		CreatedAt:       room.CreatedAt.UTC(),
		ExpiresAt:       expiresAt,
	}
}

func toDomainRoom(room *model.Room) *domain.Room {
	var expiresAt time.Time
	if room.ExpiresAt != nil {
		expiresAt = room.ExpiresAt.UTC()
	}

	return &domain.Room{
		Code:            room.Code,
		CreatorName:     room.CreatorName,
		CreatorEmail:    room.CreatorEmail,
		ParticipantsRef: room.ParticipantsRef,
		CreatedAt:       room.CreatedAt.UTC(),
		ExpiresAt:       expiresAt,
	}
}
