package model

// SequenceCounter backs the document number allocator. One row per
// (tenant, document type, period); NextValue is bumped with a single
// upsert-and-return statement so two concurrent invoice creations can never
// observe the same value. The composite primary key doubles as the storage
// layer's second line of defense for uniqueness.
type SequenceCounter struct {
	TenantID     string `gorm:"type:uuid;primaryKey"`
	DocumentType string `gorm:"type:varchar(12);primaryKey"`
	PeriodKey    string `gorm:"type:varchar(8);primaryKey"`
	NextValue    int64  `gorm:"not null;default:0"`
}
