package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"rfm-segments/pkg/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type fakeWriter struct {
	calls  int
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func result(n int) models.Result {
	res := models.Result{RunID: "run-42", AsOf: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)}
	for i := 0; i < n; i++ {
		res.Customers = append(res.Customers, models.ClassifiedCustomer{
			RFMRecord: models.RFMRecord{CustomerID: fmt.Sprintf("C%04d", i), Recency: i, Frequency: 1, Monetary: decimal.NewFromInt(int64(i))},
			Segment:   models.Regular,
		})
	}
	return res
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublish_OneMessagePerCustomer(t *testing.T) {
	fw := &fakeWriter{}
	p := &Publisher{w: fw}
	if err := p.Publish(context.Background(), result(3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fw.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(fw.msgs))
	}
	m := fw.msgs[1]
	if string(m.Key) != "C0001" {
		t.Fatalf("unexpected key: %s", m.Key)
	}
	if header(m, HeaderRunID) != "run-42" || header(m, HeaderAsOf) != "2024-06-30" || header(m, HeaderSegment) != "Regular" {
		t.Fatalf("unexpected headers: %v", m.Headers)
	}
	var body map[string]any
	if err := json.Unmarshal(m.Value, &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["customer_id"] != "C0001" || body["revenue_per_day"] != nil {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestPublish_Batches(t *testing.T) {
	fw := &fakeWriter{}
	p := &Publisher{w: fw}
	if err := p.Publish(context.Background(), result(batchSize+1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fw.calls != 2 || len(fw.msgs) != batchSize+1 {
		t.Fatalf("expected 2 calls / %d msgs, got %d / %d", batchSize+1, fw.calls, len(fw.msgs))
	}
}

func TestPublish_WriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Publisher{w: &fakeWriter{err: boom}}
	if err := p.Publish(context.Background(), result(1)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped writer error, got %v", err)
	}
}

func TestClose(t *testing.T) {
	fw := &fakeWriter{}
	if err := (&Publisher{w: fw}).Close(); err != nil || !fw.closed {
		t.Fatalf("writer not closed: %v", err)
	}
}
