package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Subject names are not unique; two subjects may share a name.
type Subject struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID   uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Subject) TableName() string { return "subjects" }

func (s Subject) RecordID() uuid.UUID { return s.ID }

func (s Subject) OwnerKey() uuid.UUID { return s.OwnerID }

func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	return assignID(&s.ID)
}

// Topic keeps the subject name it was created under; renaming the subject
// later does not touch it.
type Topic struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID     uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	SubjectID   uuid.UUID `json:"subject_id" gorm:"type:uuid;not null;index"`
	SubjectName string    `json:"subject_name"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Topic) TableName() string { return "topics" }

func (t Topic) RecordID() uuid.UUID { return t.ID }

func (t Topic) OwnerKey() uuid.UUID { return t.OwnerID }

func (t *Topic) BeforeCreate(tx *gorm.DB) error {
	return assignID(&t.ID)
}

func assignID(id *uuid.UUID) error {
	if !id.IsNil() {
		return nil
	}
	generated, err := uuid.NewV4()
	if err != nil {
		return err
	}
	*id = generated
	return nil
}
