package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

var (
	mu    sync.Mutex
	out   io.Writer
	debug bool
)

// Init настраивает JSONL-журнал в log/admin.log относительно baseDir.
// До вызова Init записи отбрасываются.
func Init(baseDir string) error {
	logDir := filepath.Join(baseDir, "log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(logDir, "admin.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	mu.Lock()
	out = f
	mu.Unlock()
	return nil
}

// SetDebug включает уровень debug и дублирование записей в stderr.
func SetDebug(enabled bool) {
	mu.Lock()
	debug = enabled
	mu.Unlock()
}

func Debug(event string, fields map[string]any) {
	mu.Lock()
	enabled := debug
	mu.Unlock()
	if !enabled {
		return
	}
	emit("debug", event, fields)
}

func Info(event string, fields map[string]any) {
	emit("info", event, fields)
}

func Warn(event string, fields map[string]any) {
	emit("warn", event, fields)
}

func Error(event string, fields map[string]any) {
	emit("error", event, fields)
}

// emit собирает строку вида {"ts":...,"level":...,"event":...,<поля>}.
// Служебные ключи всегда идут первыми, остальные по алфавиту;
// карта вызывающего не модифицируется.
func emit(level, event string, fields map[string]any) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writePair(&buf, "ts", time.Now().UTC().Format(time.RFC3339Nano))
	buf.WriteByte(',')
	writePair(&buf, "level", level)
	buf.WriteByte(',')
	writePair(&buf, "event", event)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "ts" || k == "level" || k == "event" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteByte(',')
		writePair(&buf, k, fields[k])
	}
	buf.WriteString("}\n")

	mu.Lock()
	defer mu.Unlock()
	if out != nil {
		out.Write(buf.Bytes())
	}
	if debug {
		os.Stderr.Write(buf.Bytes())
	}
}

func writePair(buf *bytes.Buffer, key string, val any) {
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
	v, err := json.Marshal(val)
	if err != nil {
		// значение не сериализуется — пишем текст ошибки вместо него
		v, _ = json.Marshal(err.Error())
	}
	buf.Write(v)
}
