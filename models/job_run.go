package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobRun is the run-once gate for scheduled batches. The unique
// (job_name, run_key) pair makes a second scheduler firing for the same
// logical period a no-op instead of a duplicate sweep.
type JobRun struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	JobName string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_job_run,priority:1"`
	RunKey  string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_job_run,priority:2"`

	Processed int `gorm:"default:0"`
	Failed    int `gorm:"default:0"`

	RanAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`

	gorm.Model
}

func (j *JobRun) BeforeCreate(tx *gorm.DB) (err error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return
}
