/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package core

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
)

var shouldPrintTraceLogs = false
var logLevel log.Level

// InitializeLogger sets up the process-wide log handler and level. If
// logFile is empty, logs go to stdout.
func InitializeLogger(logFile string) {
	if logFile == "" {
		log.SetHandler(text.New(os.Stdout))
	} else {
		f, err := os.Create(logFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "unable to create log file:", err)
			os.Exit(1)
		}
		log.SetHandler(text.New(f))
	}

	levelString := GetConfigStringDefault("core.log_level", "INFO")

	var err error
	logLevel, err = log.ParseLevel(levelString)
	if err == nil {
		log.SetLevel(logLevel)
	} else if levelString == "TRACE" {
		// Apex has no TRACE level; log at DEBUG and gate trace calls ourselves.
		log.SetLevel(log.DebugLevel)
		shouldPrintTraceLogs = true
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func generateLogMessage(module interface{}, components ...interface{}) string {
	message := fmt.Sprintf("[%v] ", module)
	for _, component := range components {
		switch v := component.(type) {
		case string:
			message += v
		case error:
			message += v.Error()
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, uintptr, bool:
			message += fmt.Sprintf("%v", v)
		default:
			message += fmt.Sprintf("%v", v)
		}
	}
	return message
}

// LogFatal logs at FATAL and terminates the process.
func LogFatal(module interface{}, components ...interface{}) {
	if logLevel <= log.FatalLevel {
		log.Fatal(generateLogMessage(module, components...))
	}
}

// LogError logs at ERROR.
func LogError(module interface{}, components ...interface{}) {
	if logLevel <= log.ErrorLevel {
		log.Error(generateLogMessage(module, components...))
	}
}

// LogWarn logs at WARN.
func LogWarn(module interface{}, components ...interface{}) {
	if logLevel <= log.WarnLevel {
		log.Warn(generateLogMessage(module, components...))
	}
}

// LogInfo logs at INFO.
func LogInfo(module interface{}, components ...interface{}) {
	if logLevel <= log.InfoLevel {
		log.Info(generateLogMessage(module, components...))
	}
}

// LogDebug logs at DEBUG.
func LogDebug(module interface{}, components ...interface{}) {
	if logLevel <= log.DebugLevel {
		log.Debug(generateLogMessage(module, components...))
	}
}

// LogTrace logs additional DEBUG-level messages, only when TRACE was
// requested explicitly (apex has no native TRACE level).
func LogTrace(module interface{}, components ...interface{}) {
	if shouldPrintTraceLogs {
		log.Debug(generateLogMessage(module, components...))
	}
}
