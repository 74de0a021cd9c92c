// Package logging builds the process-wide zerolog.Logger from config.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/kinokosu3/quarkdav/internal/config"
)

// New builds a zerolog.Logger from cfg: level from server.log_level, output
// to stderr and, when log.file_enabled is set, also to log.file_path.
func New(server config.ServerConfig, log config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(server.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if log.FileEnabled && log.FilePath != "" {
		f, err := os.OpenFile(log.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, err
		}
		w = zerolog.MultiLevelWriter(w, f)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
