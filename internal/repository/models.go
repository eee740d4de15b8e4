package repository

import (
	"time"

	"github.com/kursadbilgin/dial-engine/internal/domain"
)

// ContactModel is the persistence model for the contacts table.
type ContactModel struct {
	ID            string        `gorm:"type:uuid;primaryKey"`
	ListID        string        `gorm:"type:uuid;not null"`
	PhoneNumber   string        `gorm:"type:varchar(20);not null"`
	FirstName     string        `gorm:"type:varchar(255)"`
	LastName      string        `gorm:"type:varchar(255)"`
	Email         string        `gorm:"type:varchar(255)"`
	Status        domain.Status `gorm:"type:varchar(20);not null"`
	AttemptCount  int           `gorm:"not null;default:0"`
	MaxAttempts   int           `gorm:"not null;default:3"`
	Locked        bool          `gorm:"not null;default:false"`
	LockedBy      *string       `gorm:"type:varchar(255)"`
	LockedAt      *time.Time
	LastOutcome   *domain.Outcome `gorm:"type:varchar(20)"`
	LastAttemptAt *time.Time
	NextRetryAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ContactModel) TableName() string {
	return "contacts"
}

// CampaignModel is the persistence model for the campaigns table.
type CampaignModel struct {
	ID         string            `gorm:"type:uuid;primaryKey"`
	Name       string            `gorm:"type:varchar(255);not null"`
	IsActive   bool              `gorm:"not null;default:false"`
	DialMethod domain.DialMethod `gorm:"type:varchar(20);not null"`
	Lists      []DataListModel   `gorm:"foreignKey:CampaignID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (CampaignModel) TableName() string {
	return "campaigns"
}

// DataListModel is the persistence model for the data_lists table.
type DataListModel struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	CampaignID  *string `gorm:"type:uuid"`
	Name        string  `gorm:"type:varchar(255);not null"`
	BlendWeight int     `gorm:"not null;default:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (DataListModel) TableName() string {
	return "data_lists"
}

// SuppressionEntryModel is the persistence model for suppression_entries.
type SuppressionEntryModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	PhoneNumber string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Reason      string `gorm:"type:varchar(255)"`
	AddedBy     string `gorm:"type:varchar(255)"`
	CreatedAt   time.Time
}

func (SuppressionEntryModel) TableName() string {
	return "suppression_entries"
}

func contactModelFromDomain(c *domain.Contact) *ContactModel {
	if c == nil {
		return nil
	}

	return &ContactModel{
		ID:            c.ID,
		ListID:        c.ListID,
		PhoneNumber:   c.PhoneNumber,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Email:         c.Email,
		Status:        c.Status,
		AttemptCount:  c.AttemptCount,
		MaxAttempts:   c.MaxAttempts,
		Locked:        c.Locked,
		LockedBy:      c.LockedBy,
		LockedAt:      c.LockedAt,
		LastOutcome:   c.LastOutcome,
		LastAttemptAt: c.LastAttemptAt,
		NextRetryAt:   c.NextRetryAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func contactModelToDomain(m *ContactModel) *domain.Contact {
	if m == nil {
		return nil
	}

	return &domain.Contact{
		ID:            m.ID,
		ListID:        m.ListID,
		PhoneNumber:   m.PhoneNumber,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Email:         m.Email,
		Status:        m.Status,
		AttemptCount:  m.AttemptCount,
		MaxAttempts:   m.MaxAttempts,
		Locked:        m.Locked,
		LockedBy:      m.LockedBy,
		LockedAt:      m.LockedAt,
		LastOutcome:   m.LastOutcome,
		LastAttemptAt: m.LastAttemptAt,
		NextRetryAt:   m.NextRetryAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func campaignModelToDomain(m *CampaignModel) *domain.Campaign {
	if m == nil {
		return nil
	}

	lists := make([]domain.DataList, 0, len(m.Lists))
	for i := range m.Lists {
		lists = append(lists, *dataListModelToDomain(&m.Lists[i]))
	}

	return &domain.Campaign{
		ID:         m.ID,
		Name:       m.Name,
		IsActive:   m.IsActive,
		DialMethod: m.DialMethod,
		Lists:      lists,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func campaignModelFromDomain(c *domain.Campaign) *CampaignModel {
	if c == nil {
		return nil
	}

	lists := make([]DataListModel, 0, len(c.Lists))
	for i := range c.Lists {
		lists = append(lists, *dataListModelFromDomain(&c.Lists[i]))
	}

	return &CampaignModel{
		ID:         c.ID,
		Name:       c.Name,
		IsActive:   c.IsActive,
		DialMethod: c.DialMethod,
		Lists:      lists,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func dataListModelToDomain(m *DataListModel) *domain.DataList {
	if m == nil {
		return nil
	}

	return &domain.DataList{
		ID:          m.ID,
		CampaignID:  m.CampaignID,
		Name:        m.Name,
		BlendWeight: m.BlendWeight,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func dataListModelFromDomain(l *domain.DataList) *DataListModel {
	if l == nil {
		return nil
	}

	return &DataListModel{
		ID:          l.ID,
		CampaignID:  l.CampaignID,
		Name:        l.Name,
		BlendWeight: l.BlendWeight,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func suppressionModelFromDomain(e *domain.SuppressionEntry) *SuppressionEntryModel {
	if e == nil {
		return nil
	}

	return &SuppressionEntryModel{
		ID:          e.ID,
		PhoneNumber: e.PhoneNumber,
		Reason:      e.Reason,
		AddedBy:     e.AddedBy,
		CreatedAt:   e.CreatedAt,
	}
}

func suppressionModelToDomain(m *SuppressionEntryModel) *domain.SuppressionEntry {
	if m == nil {
		return nil
	}

	return &domain.SuppressionEntry{
		ID:          m.ID,
		PhoneNumber: m.PhoneNumber,
		Reason:      m.Reason,
		AddedBy:     m.AddedBy,
		CreatedAt:   m.CreatedAt,
	}
}
