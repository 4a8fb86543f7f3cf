package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	chatAskTotal      atomic.Uint64
	chatFetchTotal    atomic.Uint64
	chatSearchTotal   atomic.Uint64
	chatFailedTotal   atomic.Uint64
	ingestReadyTotal  atomic.Uint64
	ingestFailedTotal atomic.Uint64

	ingestJobsReceivedTotal             atomic.Uint64
	ingestJobsCompletedTotal            atomic.Uint64
	ingestJobsFailedTotal               atomic.Uint64
	ingestJobsDeletedUnrecoverableTotal atomic.Uint64

	chatDuration   = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	ingestDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncChatAsk increments the ask counter.
func IncChatAsk() {
	chatAskTotal.Add(1)
}

// IncChatFetch increments the fetch-tool counter.
func IncChatFetch() {
	chatFetchTotal.Add(1)
}

// IncChatSearch increments the search-tool counter.
func IncChatSearch() {
	chatSearchTotal.Add(1)
}

// IncChatFailed increments the failed-ask counter.
func IncChatFailed() {
	chatFailedTotal.Add(1)
}

// IncIngestReady increments the ingest success counter.
func IncIngestReady() {
	ingestReadyTotal.Add(1)
}

// IncIngestFailed increments the ingest failure counter.
func IncIngestFailed() {
	ingestFailedTotal.Add(1)
}

// IncIngestJobsReceived increments the worker job received counter.
func IncIngestJobsReceived() {
	ingestJobsReceivedTotal.Add(1)
}

// IncIngestJobsCompleted increments the worker job completed counter.
func IncIngestJobsCompleted() {
	ingestJobsCompletedTotal.Add(1)
}

// IncIngestJobsFailed increments the worker job failed counter.
func IncIngestJobsFailed() {
	ingestJobsFailedTotal.Add(1)
}

// IncIngestJobsDeletedUnrecoverable counts jobs deleted because their
// payload can never be processed.
func IncIngestJobsDeletedUnrecoverable() {
	ingestJobsDeletedUnrecoverableTotal.Add(1)
}

// ObserveChatDurationMs records an end-to-end ask duration in milliseconds.
func ObserveChatDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	chatDuration.Observe(value)
}

// ObserveIngestDurationMs records a document ingest duration in milliseconds.
func ObserveIngestDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	ingestDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "chat_ask_total", "Total chat questions received", chatAskTotal.Load())
	writeCounter(&buf, "chat_fetch_total", "Total asks routed to the fetch tool", chatFetchTotal.Load())
	writeCounter(&buf, "chat_search_total", "Total asks routed to the search tool", chatSearchTotal.Load())
	writeCounter(&buf, "chat_failed_total", "Total asks that ended in the error state", chatFailedTotal.Load())
	writeCounter(&buf, "ingest_ready_total", "Total documents ingested successfully", ingestReadyTotal.Load())
	writeCounter(&buf, "ingest_failed_total", "Total documents whose ingest failed", ingestFailedTotal.Load())
	writeCounter(&buf, "ingest_jobs_received_total", "Total ingest jobs received from the queue", ingestJobsReceivedTotal.Load())
	writeCounter(&buf, "ingest_jobs_completed_total", "Total ingest jobs completed and deleted", ingestJobsCompletedTotal.Load())
	writeCounter(&buf, "ingest_jobs_failed_total", "Total ingest jobs that failed processing", ingestJobsFailedTotal.Load())
	writeCounter(&buf, "ingest_jobs_deleted_unrecoverable_total", "Total ingest jobs deleted as unprocessable", ingestJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "chat_duration_ms", "Ask duration in milliseconds", chatDuration.Snapshot())
	writeHistogram(&buf, "ingest_duration_ms", "Ingest duration in milliseconds", ingestDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	// counts hold per-bucket totals; Render accumulates them into the
	// cumulative le series.
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
