package nutribudget

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// GenerationLogger records every call made to a generation or research capability.
type GenerationLogger interface {
	LogAttempt(attempt AttemptLog) error
}

// NewGenerationLogFilePath returns a file path based on a cleaned up model name so logs
// produced with different models are easy to tell apart.
func NewGenerationLogFilePath(model string) string {
	if model == "" {
		model = "default"
	}
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.NewReplacer(":", "_", "/", "_").Replace(strings.ToLower(model)),
	)
}

// AttemptLog is a single capability call made while building a plan.
type AttemptLog struct {
	Phase       string    `json:"phase"`
	Attempt     int       `json:"attempt"`
	Timestamp   time.Time `json:"timestamp"`
	Days        []int     `json:"days,omitempty"`
	PromptBytes int       `json:"prompt_bytes"`
	Output      string    `json:"output,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// FileGenerationLogger buffers attempts and writes them out on Flush.
type FileGenerationLogger struct {
	mu       sync.Mutex
	attempts []AttemptLog
	writer   io.Writer
}

func NewFileGenerationLogger(writer io.Writer) *FileGenerationLogger {
	return &FileGenerationLogger{
		attempts: make([]AttemptLog, 0),
		writer:   writer,
	}
}

func (l *FileGenerationLogger) LogAttempt(attempt AttemptLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	return nil
}

// Flush writes all buffered attempts to the writer and clears the buffer.
func (l *FileGenerationLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"generation_log": map[string]any{
			"timestamp": time.Now(),
			"attempts":  l.attempts,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal generation log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write generation log: %w", err)
	}

	l.attempts = l.attempts[:0]
	return nil
}

type NoOpGenerationLogger struct{}

func NewNoOpGenerationLogger() *NoOpGenerationLogger {
	return &NoOpGenerationLogger{}
}

func (NoOpGenerationLogger) LogAttempt(AttemptLog) error {
	return nil
}

// StdoutGenerationLogger writes each attempt as a JSON line (for Lambda/CloudWatch).
type StdoutGenerationLogger struct {
	out io.Writer
}

func NewStdoutGenerationLogger() *StdoutGenerationLogger {
	return &StdoutGenerationLogger{out: os.Stdout}
}

func (l *StdoutGenerationLogger) LogAttempt(attempt AttemptLog) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(l.out, string(data))
	return err
}
