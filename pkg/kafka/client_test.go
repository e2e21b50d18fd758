package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"indialaw-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	fetchErrs []error
	msgs      []kafka.Message
	committed []int64
	closed    bool
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

type recordingProcessor struct {
	jobs []tasks.DocumentJob
	fail bool
	// interrupt 模拟处理中途停机
	interrupt context.CancelFunc
}

func (p *recordingProcessor) Process(ctx context.Context, job tasks.DocumentJob) error {
	p.jobs = append(p.jobs, job)
	if p.interrupt != nil {
		p.interrupt()
		return ctx.Err()
	}
	if p.fail {
		return errors.New("pipeline failed")
	}
	return nil
}

func message(t *testing.T, offset int64, job tasks.DocumentJob) kafka.Message {
	t.Helper()
	b, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Offset: offset, Value: b}
}

func TestConsume_CommitsEveryMessage(t *testing.T) {
	for _, fail := range []bool{false, true} {
		ctx, cancel := context.WithCancel(context.Background())
		r := &fakeReader{
			msgs: []kafka.Message{
				message(t, 1, tasks.DocumentJob{Kind: tasks.KindProcess, DocumentID: "d1"}),
				{Offset: 2, Value: []byte("not json")},
				message(t, 3, tasks.DocumentJob{Kind: tasks.KindReanalyze, DocumentID: "d2"}),
			},
			cancel: cancel,
		}
		p := &recordingProcessor{fail: fail}

		consume(ctx, r, p)

		if len(r.committed) != 3 {
			t.Errorf("fail=%v: committed %v, want all 3 offsets", fail, r.committed)
		}
		if len(p.jobs) != 2 || p.jobs[0].DocumentID != "d1" || p.jobs[1].Kind != tasks.KindReanalyze {
			t.Errorf("fail=%v: processed jobs = %+v", fail, p.jobs)
		}
		if !r.closed {
			t.Errorf("fail=%v: reader not closed", fail)
		}
	}
}

func TestConsume_InterruptedJobIsNotCommitted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{
		msgs: []kafka.Message{
			message(t, 7, tasks.DocumentJob{Kind: tasks.KindProcess, DocumentID: "d1"}),
			message(t, 8, tasks.DocumentJob{Kind: tasks.KindProcess, DocumentID: "d2"}),
		},
		cancel: cancel,
	}
	p := &recordingProcessor{interrupt: cancel}

	consume(ctx, r, p)

	if len(r.committed) != 0 {
		t.Errorf("committed %v, interrupted job must be redelivered", r.committed)
	}
	if len(p.jobs) != 1 {
		t.Errorf("processed %d jobs, want 1", len(p.jobs))
	}
	if !r.closed {
		t.Error("reader not closed")
	}
}

func TestConsume_RetriesAfterFetchError(t *testing.T) {
	old := fetchRetryDelay
	fetchRetryDelay = time.Millisecond
	defer func() { fetchRetryDelay = old }()

	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{
		fetchErrs: []error{errors.New("broker unavailable"), errors.New("broker unavailable")},
		msgs:      []kafka.Message{message(t, 1, tasks.DocumentJob{Kind: tasks.KindProcess, DocumentID: "d1"})},
		cancel:    cancel,
	}
	p := &recordingProcessor{}

	consume(ctx, r, p)

	if len(p.jobs) != 1 || len(r.committed) != 1 {
		t.Errorf("jobs = %d, committed = %v; worker must keep consuming after fetch errors", len(p.jobs), r.committed)
	}
}
