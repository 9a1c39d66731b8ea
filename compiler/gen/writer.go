package gen

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Writer writes rendered artifacts, replacing any previous content. It is
// safe for concurrent use; callers write distinct paths.
type Writer struct {
	// Metrics for performance monitoring
	mu      sync.Mutex
	metrics WriterMetrics
}

// WriterMetrics tracks generation performance
type WriterMetrics struct {
	FilesWritten int
	TotalBytes   int64
	WriteTime    time.Duration
}

// NewWriter creates a new artifact writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Metrics returns a snapshot of the write metrics.
func (w *Writer) Metrics() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Write replaces the file at path with content. The parent directory must
// exist; see PathPlanner.PlanPath.
func (w *Writer) Write(path string, content []byte) error {
	start := time.Now()
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	// Update metrics
	w.mu.Lock()
	w.metrics.FilesWritten++
	w.metrics.TotalBytes += int64(len(content))
	w.metrics.WriteTime += time.Since(start)
	w.mu.Unlock()

	return nil
}
