// Somatra - companion core for the Somatra neural-therapy wearable.
// Copyright (C) 2026  Somatra Labs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package storage

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/umutcvc/MySomatra-sub000/internal/domain"
)

// Service encapsulates all database operations for therapy session
// records. It acts as the persistence layer behind the session API.
type Service struct {
	db *gorm.DB
}

// NewService opens (or creates) the SQLite database at path and runs
// migrations.
func NewService(path string) (*Service, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Session{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Service{db: db}, nil
}

// ========
// SESSIONS
// ========

// CreateSession inserts a session-start record (duration 0, no end time)
// and returns its id.
func (s *Service) CreateSession(mode string, intensity int, startedAt time.Time) (uint, error) {
	session := domain.Session{
		Mode:      mode,
		Intensity: intensity,
		Duration:  0,
		StartedAt: startedAt,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return 0, err
	}
	return session.ID, nil
}

// EndSession marks the session ended and backfills its duration.
func (s *Service) EndSession(id uint, endedAt time.Time) error {
	var session domain.Session
	if err := s.db.First(&session, id).Error; err != nil {
		return err
	}

	duration := int64(endedAt.Sub(session.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}

	return s.db.Model(&session).Updates(map[string]interface{}{
		"ended_at": endedAt,
		"duration": duration,
	}).Error
}

// GetSession fetches one session by id.
func (s *Service) GetSession(id uint) (domain.Session, error) {
	var session domain.Session
	err := s.db.First(&session, id).Error
	return session, err
}

// GetRecentSessions returns the most recent sessions, newest first.
// A non-positive limit means no limit.
func (s *Service) GetRecentSessions(limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = -1
	}
	var sessions []domain.Session
	err := s.db.Order("started_at desc").Limit(limit).Find(&sessions).Error
	return sessions, err
}

// GetTotalDuration returns the accumulated therapy time in seconds across
// all ended sessions.
func (s *Service) GetTotalDuration() int64 {
	// A pointer handles the NULL that SUM returns on an empty table.
	var total *int64
	s.db.Model(&domain.Session{}).Select("sum(duration)").Scan(&total)
	if total == nil {
		return 0
	}
	return *total
}
