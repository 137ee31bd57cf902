// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package entities contains the domain models: the persisted catalog and the
// runtime reports served by the health and metrics endpoints.
package entities

import "time"

// City is a browsable city.
type City struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:255;index" json:"name"`
	Country   string    `gorm:"size:100" json:"country"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Events    []Event   `gorm:"foreignKey:CityID" json:"events,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for City.
func (City) TableName() string {
	return "cities"
}

// Event is something happening in a city.
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CityID      uint      `gorm:"not null;index" json:"city_id"`
	Title       string    `gorm:"not null;size:255" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	StartsAt    time.Time `gorm:"index" json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Event.
func (Event) TableName() string {
	return "events"
}

// AllModels lists the models migrated at startup.
func AllModels() []any {
	return []any{&City{}, &Event{}}
}
