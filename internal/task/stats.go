package task

// TaskStats 聚合了任务完成情况，供仪表盘使用。
type TaskStats struct {
	Total     int64 `json:"total" db:"total"`
	Completed int64 `json:"completed" db:"completed"`
	Open      int64 `json:"open" db:"open"`
}
