package worker

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmgateway/pkg/metrics"
)

type recordingSink struct {
	mu      sync.Mutex
	records []*metrics.RequestMetrics
	block   chan struct{}
}

func (s *recordingSink) ExportMetrics(_ context.Context, m *metrics.RequestMetrics) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, m)
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.records))
	for _, r := range s.records {
		ids = append(ids, r.RequestID)
	}
	return ids
}

func newCollector(id string, sink metrics.Sink) *metrics.Collector {
	c := metrics.NewCollector(metrics.CollectorConfig{
		RequestID: id,
		Method:    "POST",
		Path:      "/v1/chat/completions",
		Provider:  "openai",
		Sink:      sink,
	})
	c.SetModel("gpt-4o")
	c.SetStatus(200)
	c.Complete()
	return c
}

var _ = Describe("Worker Pool", func() {
	var sink *recordingSink

	BeforeEach(func() {
		sink = &recordingSink{}
	})

	Describe("NewPool", func() {
		It("applies defaults", func() {
			cfg := &Config{}
			wp, err := NewPool(cfg)
			Expect(err).NotTo(HaveOccurred())
			defer wp.Close()

			Expect(cfg.NumWorkers).To(Equal(defaultNumWorkers))
			Expect(cfg.QueueSize).To(Equal(defaultJobQueueSize))
		})
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			wp, err := NewPool(&Config{NumWorkers: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(Job{Collector: newCollector("req-1", sink)})).To(BeTrue())
			wp.Close()
		})

		It("returns false when the queue is full", func() {
			sink.block = make(chan struct{})
			wp, err := NewPool(&Config{NumWorkers: 1, QueueSize: 1})
			Expect(err).NotTo(HaveOccurred())

			// The worker picks up the first job and blocks in the sink.
			Expect(wp.Enqueue(Job{Collector: newCollector("req-1", sink)})).To(BeTrue())
			Eventually(func() int { return len(wp.queue) }).Should(BeZero())

			Expect(wp.Enqueue(Job{Collector: newCollector("req-2", sink)})).To(BeTrue())
			Expect(wp.Enqueue(Job{Collector: newCollector("req-3", sink)})).To(BeFalse())

			close(sink.block)
			wp.Close()
			Expect(sink.ids()).To(ConsistOf("req-1", "req-2"))
		})
	})

	Describe("Close", func() {
		It("drains every queued job before returning", func() {
			wp, err := NewPool(&Config{NumWorkers: 2, QueueSize: 16})
			Expect(err).NotTo(HaveOccurred())

			collectors := make([]*metrics.Collector, 0, 10)
			for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
				c := newCollector(id, sink)
				collectors = append(collectors, c)
				Expect(wp.Enqueue(Job{Collector: c})).To(BeTrue())
			}
			wp.Close()

			Expect(sink.ids()).To(HaveLen(10))
			for _, c := range collectors {
				Expect(c.State()).To(Equal(metrics.StateExported))
			}
		})

		It("exports each collector once even when enqueued twice", func() {
			wp, err := NewPool(&Config{NumWorkers: 2})
			Expect(err).NotTo(HaveOccurred())

			c := newCollector("dup", sink)
			Expect(wp.Enqueue(Job{Collector: c})).To(BeTrue())
			Expect(wp.Enqueue(Job{Collector: c})).To(BeTrue())
			wp.Close()

			Expect(sink.ids()).To(Equal([]string{"dup"}))
		})
	})
})
