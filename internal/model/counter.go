package model

// Counter backs sequential identifier allocation. Incremented with a single
// atomic statement, never read-then-written.
type Counter struct {
	Name  string `gorm:"type:varchar(64);primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

func (Counter) TableName() string {
	return "counters"
}

const TaskCounterName = "taskCounter"
