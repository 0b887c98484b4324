// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kadirpekel/toddleops/pkg/config"
	"github.com/kadirpekel/toddleops/pkg/logger"
)

const (
	// LogFileEnvVar is the environment variable name for log file path
	LogFileEnvVar = "LOG_FILE"
	// LogLevelEnvVar is the environment variable name for log level
	LogLevelEnvVar = "LOG_LEVEL"
	// LogFormatEnvVar is the environment variable name for log format
	LogFormatEnvVar = "LOG_FORMAT"
)

// logSettings is the resolved logger configuration.
type logSettings struct {
	Level  string
	File   string
	Format string
}

// resolveLogSettings applies the priority CLI flags > env vars > config file > defaults.
func resolveLogSettings(cliLevel, cliFile, cliFormat string, file config.LoggerConfig) logSettings {
	file.SetDefaults()
	return logSettings{
		Level:  cmp.Or(cliLevel, os.Getenv(LogLevelEnvVar), file.Level),
		File:   cmp.Or(cliFile, os.Getenv(LogFileEnvVar), file.File),
		Format: cmp.Or(cliFormat, os.Getenv(LogFormatEnvVar), file.Format),
	}
}

// initLogger installs the process logger. The returned cleanup closes the
// log file, if one was opened.
func initLogger(cliLevel, cliFile, cliFormat string, file config.LoggerConfig) (*slog.Logger, func(), error) {
	settings := resolveLogSettings(cliLevel, cliFile, cliFormat, file)

	level, err := logger.ParseLevel(settings.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}
	if !logger.ValidFormat(settings.Format) {
		return nil, nil, fmt.Errorf("invalid log format %q", settings.Format)
	}

	var output io.Writer = os.Stderr
	var cleanup func()
	if settings.File != "" {
		f, closeFn, err := logger.OpenLogFile(settings.File)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = f
		cleanup = closeFn
	}

	return logger.Init(level, output, settings.Format), cleanup, nil
}
