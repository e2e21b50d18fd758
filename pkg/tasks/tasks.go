// Package tasks defines the structure for jobs that are sent to Kafka.
package tasks

import "context"

// JobKind 区分完整处理与仅重新分析。
type JobKind string

const (
	// KindProcess 执行抽取与分析两个步骤。
	KindProcess JobKind = "process"
	// KindReanalyze 只重新执行分析步骤。
	KindReanalyze JobKind = "reanalyze"
)

// DocumentJob represents the payload of a document pipeline job.
type DocumentJob struct {
	Kind        JobKind `json:"kind"`
	DocumentID  string  `json:"document_id"`
	UserID      uint    `json:"user_id"`
	StoragePath string  `json:"storage_path"`
	FileName    string  `json:"file_name"`
}

// Queue 是任务投递的抽象，Kafka 生产者实现了该接口。
type Queue interface {
	Enqueue(ctx context.Context, job DocumentJob) error
}
