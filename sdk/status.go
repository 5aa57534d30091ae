package sdk

// TaskStatus 统一状态枚举，避免用户侧写错字符串。
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusUploading  TaskStatus = "uploading"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal 是否终态
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}
