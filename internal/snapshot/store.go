package snapshot

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hostel-sync-backend/internal/model"
)

// Store persists the last-fetched copy of each collection so the cache can
// be warmed before the first remote fetch, and owns the locally held push
// subscriptions. Collection tables are rewritten wholesale in a single
// transaction, matching the cache's replace-not-patch contract.
type Store interface {
	ReplaceProfiles(ctx context.Context, profiles []model.Profile) error
	ReplaceRooms(ctx context.Context, rooms []model.Room) error
	ReplaceNotices(ctx context.Context, notices []model.Notice) error
	ReplaceServiceRequests(ctx context.Context, requests []model.ServiceRequest) error
	ReplaceHostelRules(ctx context.Context, rules []model.HostelRule) error

	LoadProfiles(ctx context.Context) ([]model.Profile, error)
	LoadRooms(ctx context.Context) ([]model.Room, error)
	LoadNotices(ctx context.Context) ([]model.Notice, error)
	LoadServiceRequests(ctx context.Context) ([]model.ServiceRequest, error)
	LoadHostelRules(ctx context.Context) ([]model.HostelRule, error)

	UpsertSubscription(ctx context.Context, sub model.PushSubscription, roomIDs []string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForRoom(ctx context.Context, roomID string) ([]model.PushSubscription, error)
	SubscriptionsForNotices(ctx context.Context) ([]model.PushSubscription, error)

	RoomByID(ctx context.Context, id string) (*model.Room, error)
	NoticeByID(ctx context.Context, id string) (*model.Notice, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed snapshot store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// replaceAll rewrites a collection table inside tx.
func replaceAll[T any](tx *gorm.DB, items []T) error {
	var zero T
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&zero).Error; err != nil {
		return fmt.Errorf("failed to clear table: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	if err := tx.Create(&items).Error; err != nil {
		return fmt.Errorf("failed to rewrite table: %w", err)
	}
	return nil
}

func (s *gormStore) ReplaceProfiles(ctx context.Context, profiles []model.Profile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceAll(tx, profiles)
	})
}

func (s *gormStore) ReplaceRooms(ctx context.Context, rooms []model.Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceAll(tx, rooms)
	})
}

func (s *gormStore) ReplaceNotices(ctx context.Context, notices []model.Notice) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceAll(tx, notices)
	})
}

func (s *gormStore) ReplaceServiceRequests(ctx context.Context, requests []model.ServiceRequest) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceAll(tx, requests)
	})
}

func (s *gormStore) ReplaceHostelRules(ctx context.Context, rules []model.HostelRule) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceAll(tx, rules)
	})
}

func (s *gormStore) LoadProfiles(ctx context.Context) ([]model.Profile, error) {
	var profiles []model.Profile
	err := s.db.WithContext(ctx).Find(&profiles).Error
	return profiles, err
}

func (s *gormStore) LoadRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := s.db.WithContext(ctx).Find(&rooms).Error
	return rooms, err
}

func (s *gormStore) LoadNotices(ctx context.Context) ([]model.Notice, error) {
	var notices []model.Notice
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&notices).Error
	return notices, err
}

func (s *gormStore) LoadServiceRequests(ctx context.Context) ([]model.ServiceRequest, error) {
	var requests []model.ServiceRequest
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&requests).Error
	return requests, err
}

func (s *gormStore) LoadHostelRules(ctx context.Context) ([]model.HostelRule, error) {
	var rules []model.HostelRule
	err := s.db.WithContext(ctx).Find(&rules).Error
	return rules, err
}

// UpsertSubscription creates or replaces a push subscription and its watched
// room set.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub model.PushSubscription, roomIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}

		var rooms []model.Room
		if len(roomIDs) > 0 {
			if err := tx.Find(&rooms, roomIDs).Error; err != nil {
				return err
			}
		}
		return tx.Model(&sub).Association("Rooms").Replace(&rooms)
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Rooms").First(&sub, "endpoint = ?", endpoint).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Select("Rooms").Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormStore) SubscriptionsForRoom(ctx context.Context, roomID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_room_mapping srm ON srm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("srm.room_id = ?", roomID).
		Find(&subs).Error
	return subs, err
}

func (s *gormStore) SubscriptionsForNotices(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).Where("notify_notices = ?", true).Find(&subs).Error
	return subs, err
}

func (s *gormStore) RoomByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *gormStore) NoticeByID(ctx context.Context, id string) (*model.Notice, error) {
	var notice model.Notice
	if err := s.db.WithContext(ctx).First(&notice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &notice, nil
}
