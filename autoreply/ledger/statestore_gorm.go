package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const cooldownRowID = 1

const maxUpdateRetries = 5

// CooldownState is the single-row table backing GormStateStore. The state
// itself is a JSON payload; Version implements optimistic concurrency so
// Update works the same on sqlite and postgres without row locking.
type CooldownState struct {
	ID        uint `gorm:"primarykey"`
	Payload   []byte
	Version   int64
	UpdatedAt time.Time
}

// GormStateStore persists cooldown state in the relational database used
// for the rest of the audit tables. Requires the gorm TranslateError
// option so duplicate-key races surface as gorm.ErrDuplicatedKey.
type GormStateStore struct {
	DB *gorm.DB
}

func NewGormStateStore(db *gorm.DB) (*GormStateStore, error) {
	if err := db.AutoMigrate(&CooldownState{}); err != nil {
		return nil, fmt.Errorf("migrating cooldown state table: %w", err)
	}
	return &GormStateStore{DB: db}, nil
}

func (s *GormStateStore) Get(ctx context.Context) (State, error) {
	var row CooldownState
	err := s.DB.WithContext(ctx).First(&row, cooldownRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return State{}, nil
	} else if err != nil {
		return State{}, err
	}
	return decodeState(row.Payload)
}

func (s *GormStateStore) Update(ctx context.Context, fn func(State) (State, error)) error {
	for i := 0; i < maxUpdateRetries; i++ {
		var row CooldownState
		err := s.DB.WithContext(ctx).First(&row, cooldownRowID).Error
		fresh := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !fresh {
			return err
		}

		var st State
		if !fresh {
			st, err = decodeState(row.Payload)
			if err != nil {
				return err
			}
		}
		next, err := fn(st)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}

		if fresh {
			row = CooldownState{ID: cooldownRowID, Payload: payload, Version: 1}
			err = s.DB.WithContext(ctx).Create(&row).Error
			if err == nil {
				return nil
			}
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// another worker created the row first
				continue
			}
			return err
		}

		res := s.DB.WithContext(ctx).Model(&CooldownState{}).
			Where("id = ? AND version = ?", cooldownRowID, row.Version).
			Updates(map[string]any{"payload": payload, "version": row.Version + 1})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
	return fmt.Errorf("cooldown state update: too many version conflicts")
}
