// Copyright (c) The gleich-tech-switch Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log configures the process-wide logrus logger.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

const (
	logrusFieldStack = 6

	// FormatText is a human readable log format.
	FormatText = "text"
	// FormatJSON writes one JSON object per entry.
	FormatJSON = "json"
)

// Set configures the logrus level, format and output file.
// If fileName is empty logs are written to stderr.
// The returned file (if any) should be closed by the caller.
func Set(level, format, fileName string) (*os.File, error) {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var logFormatter logrus.Formatter
	switch format {
	case FormatText, "":
		logFormatter = &formatter{
			TextFormatter: &logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "2006-01-02 15:04:05",
				PadLevelText:    true,
				DisableQuote:    true,
			},
		}
	case FormatJSON:
		logFormatter = &logrus.JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format '%s'", format)
	}

	var logFile *os.File
	if fileName != "" {
		if err := os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
			return nil, fmt.Errorf("unable to create log directory: %w", err)
		}

		logFile, err = os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		logrus.SetOutput(logFile)
	}

	logrus.SetLevel(parsedLevel)
	logrus.SetFormatter(logFormatter)
	return logFile, nil
}

type formatter struct {
	*logrus.TextFormatter
}

// Format sets the line number and file for errors and fatal.
func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry.Level <= logrus.ErrorLevel {
		_, file, line, _ := runtime.Caller(logrusFieldStack)
		entry.Data["file"] = filepath.Base(file)
		entry.Data["line"] = fmt.Sprintf("%d", line)
	}

	return f.TextFormatter.Format(entry)
}
