// Package meta holds the GORM models and transactional store for the
// "apps" and "uploads" tables, per spec.md §3.
package meta

import "time"

// UploadStatus is one of the three states in the release state machine.
type UploadStatus string

const (
	StatusReady     UploadStatus = "ready"
	StatusReleased  UploadStatus = "released"
	StatusObsolete  UploadStatus = "obsolete"
)

// App is a registered application, identified by a human-chosen slug.
// A certificate and private key are either both set or both absent —
// enforced at write time by the App Registry, not by the schema.
type App struct {
	Slug               string `gorm:"primaryKey;size:128"`
	DisplayName        string `gorm:"size:256"`
	Description        string `gorm:"type:text"`
	OwnerEmail         string `gorm:"size:256"`
	CertificatePEM     string `gorm:"type:text"`
	PrivateKeyPEM      string `gorm:"type:text"`
	AutoCleanupEnabled bool   `gorm:"not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasKeyPair reports whether both certificate and private key are set.
func (a *App) HasKeyPair() bool {
	return a.CertificatePEM != "" && a.PrivateKeyPEM != ""
}

// Upload is a single ingestion of an archive.
type Upload struct {
	ID                     string `gorm:"primaryKey;size:36"`
	Project                string `gorm:"size:128;index:idx_upload_project_channel"`
	Version                string `gorm:"size:128;index"`
	ReleaseChannel         string `gorm:"size:128;index:idx_upload_project_channel"`
	Status                 UploadStatus `gorm:"size:16;index"`
	Path                   string `gorm:"size:512"`
	UpdateID               string `gorm:"size:36;index"`
	AppDescriptorJSON      string `gorm:"type:text"`
	DependencyDescriptorJSON string `gorm:"type:text"`
	AssetMetadataJSON      string `gorm:"type:text"`
	OriginalFilename       string `gorm:"size:512"`
	GitBranch              *string `gorm:"size:256"`
	GitCommit              *string `gorm:"size:128"`
	CreatedAt              time.Time `gorm:"index"`
	ReleasedAt             *time.Time
}

// TableName pins the GORM table name explicitly, following the
// teacher's SplashProtocol.TableName() convention.
func (Upload) TableName() string { return "uploads" }

// TableName pins the GORM table name explicitly.
func (App) TableName() string { return "apps" }
