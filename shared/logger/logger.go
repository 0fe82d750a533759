// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// Logger writes one JSON object per line for a single component.
type Logger struct {
	Component  string
	InstanceID string
	Container  string

	mu  sync.Mutex
	out io.Writer
}

// LogEntry is the wire shape of a log line. UserID is the acting user of the
// view service and ServerName the governed server the call targets.
type LogEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      LogLevel               `json:"level"`
	Component  string                 `json:"component"`
	InstanceID string                 `json:"instance_id"`
	Container  string                 `json:"container"`
	UserID     string                 `json:"user_id,omitempty"`
	ServerName string                 `json:"server_name,omitempty"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// New creates a Logger for the named component writing through the
// standard library logger.
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}

	container, err := os.Hostname()
	if err != nil {
		container = "unknown"
	}

	return &Logger{
		Component:  component,
		InstanceID: instanceID,
		Container:  container,
	}
}

// SetOutput redirects entries to w instead of the standard logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// Log serializes an entry and writes it. Marshal failures fall back to a
// plain-text line so the event is never silently lost.
func (l *Logger) Log(level LogLevel, userID, serverName, message string, fields map[string]interface{}) {
	entry := LogEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Component:  l.Component,
		InstanceID: l.InstanceID,
		Container:  l.Container,
		UserID:     userID,
		ServerName: serverName,
		Message:    message,
		Fields:     fields,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		log.Printf("ERROR: Failed to marshal log entry: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out != nil {
		_, _ = l.out.Write(append(jsonBytes, '\n'))
		return
	}
	log.Println(string(jsonBytes))
}

func (l *Logger) Info(userID, serverName, message string, fields map[string]interface{}) {
	l.Log(INFO, userID, serverName, message, fields)
}

func (l *Logger) Error(userID, serverName, message string, fields map[string]interface{}) {
	l.Log(ERROR, userID, serverName, message, fields)
}

func (l *Logger) Warn(userID, serverName, message string, fields map[string]interface{}) {
	l.Log(WARN, userID, serverName, message, fields)
}

func (l *Logger) Debug(userID, serverName, message string, fields map[string]interface{}) {
	l.Log(DEBUG, userID, serverName, message, fields)
}

// InfoWithDuration logs an info message with a duration_ms field
func (l *Logger) InfoWithDuration(userID, serverName, message string, durationMS float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.Info(userID, serverName, message, fields)
}

// ErrorWithKind logs a failed operation together with its error category.
func (l *Logger) ErrorWithKind(userID, serverName, message, kind string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["kind"] = kind
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error(userID, serverName, message, fields)
}
