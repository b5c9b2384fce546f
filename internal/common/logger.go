package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

const logTimeFormat = "15:04:05"

func consoleWriter() models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: logTimeFormat,
		OutputType: models.OutputFormatLogfmt,
	}
}

// GetLogger returns the global logger, creating a console logger on first use
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		defer loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(consoleWriter())
	}
	return globalLogger
}

// InitLogger builds the run logger from the [logging] section and stores it globally.
// File output goes to logs/riskpulse.log next to the executable.
func InitLogger(config *Config) arbor.ILogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	logger := arbor.NewLogger()

	toConsole, toFile := false, false
	for _, output := range config.Logging.Output {
		switch output {
		case "stdout", "console":
			toConsole = true
		case "file":
			toFile = true
		}
	}

	if toFile {
		if logFile, err := logFilePath(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
			toConsole = true
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   logFile,
				TimeFormat: logTimeFormat,
				MaxSize:    50 * 1024 * 1024, // 50 MB
				MaxBackups: 3,
				OutputType: models.OutputFormatLogfmt,
			})
		}
	}

	if toConsole {
		logger = logger.WithConsoleWriter(consoleWriter())
	}

	logger = logger.WithLevelFromString(config.Logging.Level)
	globalLogger = logger
	return logger
}

func logFilePath() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	logsDir := filepath.Join(filepath.Dir(execPath), "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}
	return filepath.Join(logsDir, "riskpulse.log"), nil
}
