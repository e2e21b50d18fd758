// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"indialaw-go/internal/config"
	"indialaw-go/pkg/log"
	"indialaw-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// fetchRetryDelay 是读取失败后的重试间隔。
var fetchRetryDelay = 2 * time.Second

// JobProcessor 是处理文档任务的组件，使消费者与流水线实现解耦。
type JobProcessor interface {
	Process(ctx context.Context, job tasks.DocumentJob) error
}

// Producer 把文档任务写入 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 创建 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// Enqueue 发送一个文档任务，以文档 ID 作为 key 保证同一文档的任务有序。
func (p *Producer) Enqueue(ctx context.Context, job tasks.DocumentJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(job.DocumentID), Value: payload}); err != nil {
		return fmt.Errorf("写入 Kafka 失败: %w", err)
	}
	return nil
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// messageReader 是消费循环依赖的 kafka.Reader 子集。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StartConsumer 启动 workers 个消费者处理文档任务，ctx 取消后返回。
// 流水线不做自动重试：无论处理成功与否都提交 offset，只有停机打断的任务会重新投递。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor JobProcessor) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  strings.Split(cfg.Brokers, ","),
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6, // 10MB
		})
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			log.Infof("Kafka 消费者 #%d 已启动，正在监听主题 '%s'", id, cfg.Topic)
			consume(ctx, r, processor)
		}(i)
	}
	wg.Wait()
}

func consume(ctx context.Context, r messageReader, processor JobProcessor) {
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Kafka 消费者收到停止信号，退出消费循环")
				return
			}
			log.Errorf("从 Kafka 读取消息失败, %s 后重试: %v", fetchRetryDelay, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		var job tasks.DocumentJob
		if err := json.Unmarshal(m.Value, &job); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		} else {
			log.Infof("开始处理文档任务: kind=%s, documentId=%s, offset=%d", job.Kind, job.DocumentID, m.Offset)
			if err := processor.Process(ctx, job); err != nil {
				log.Errorf("文档任务处理失败: documentId=%s, error: %v", job.DocumentID, err)
			}
		}

		// 停机打断的任务不提交，重启后重新投递
		if ctx.Err() != nil {
			log.Warnf("任务处理被停机中断, 不提交 offset=%d", m.Offset)
			return
		}
		// 使用独立的 context 提交，避免停机时丢失已完成任务的 offset
		if err := r.CommitMessages(context.Background(), m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}
