package model

// TaskStatus 转写任务状态枚举（用于 API/PG/前端筛选）。
// 约定：
// - pending: 已创建，等待 worker 认领
// - uploading: 已被认领，正在上传到转写服务暂存区（大文件路径）
// - processing: 已被认领，正在转写
// - completed: 成功，result 非空
// - failed: 失败，error 非空
// - cancelled: 被用户取消
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusUploading  TaskStatus = "uploading"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusUploading, TaskStatusProcessing,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal 终态不可再迁移
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsClaimed 表示任务当前被某个 worker 持有
func (s TaskStatus) IsClaimed() bool {
	return s == TaskStatusUploading || s == TaskStatusProcessing
}

// IsActive 非终态（pending 也算），删除时走软取消
func (s TaskStatus) IsActive() bool {
	return s.Valid() && !s.IsTerminal()
}

// TerminalStatuses 返回全部终态（用于 SQL 条件）
func TerminalStatuses() []string {
	return []string{string(TaskStatusCompleted), string(TaskStatusFailed), string(TaskStatusCancelled)}
}

// CanTransition 校验状态机边。
// 相同状态视为合法（仅更新进度）；crash 恢复允许 uploading/processing -> pending。
func CanTransition(from, to TaskStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if from == to {
		return true
	}
	switch from {
	case TaskStatusPending:
		return to == TaskStatusUploading || to == TaskStatusProcessing || to == TaskStatusCancelled
	case TaskStatusUploading:
		return to == TaskStatusProcessing || to == TaskStatusPending || to.IsTerminal()
	case TaskStatusProcessing:
		return to == TaskStatusPending || to.IsTerminal()
	default:
		return false
	}
}
