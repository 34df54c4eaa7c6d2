// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package cliutil

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/AcaciaLinux/tooling-go/lib/object"
)

// LogLevelFlag is a pflag.Value for -v/--loglevel, counting 0=warn,
// 1=info, 2=debug, 3+=trace.
type LogLevelFlag struct {
	logrus.Level
}

// NewLogLevelFlag returns a LogLevelFlag defaulting to warn (count 0).
func NewLogLevelFlag() LogLevelFlag {
	return LogLevelFlag{Level: logrus.WarnLevel}
}

func (f *LogLevelFlag) Type() string   { return "loglevel" }
func (f *LogLevelFlag) String() string { return levelToCount(f.Level) }

func (f *LogLevelFlag) Set(s string) error {
	var count int
	if _, err := fmt.Sscanf(s, "%d", &count); err != nil {
		return fmt.Errorf("invalid --loglevel %q: %w", s, err)
	}
	f.Level = countToLevel(count)
	return nil
}

func countToLevel(count int) logrus.Level {
	switch {
	case count <= 0:
		return logrus.WarnLevel
	case count == 1:
		return logrus.InfoLevel
	case count == 2:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

func levelToCount(level logrus.Level) string {
	switch level {
	case logrus.WarnLevel:
		return "0"
	case logrus.InfoLevel:
		return "1"
	case logrus.DebugLevel:
		return "2"
	default:
		return "3"
	}
}

var _ pflag.Value = (*LogLevelFlag)(nil)

// CompressionFlag is a pflag.Value for --compression xz|none.
type CompressionFlag struct {
	object.Compression
}

// NewCompressionFlag returns a CompressionFlag defaulting to def.
func NewCompressionFlag(def object.Compression) CompressionFlag {
	return CompressionFlag{Compression: def}
}

func (f *CompressionFlag) Type() string   { return "compression" }
func (f *CompressionFlag) String() string { return f.Compression.String() }

func (f *CompressionFlag) Set(s string) error {
	switch s {
	case "none":
		f.Compression = object.CompressionNone
	case "xz":
		f.Compression = object.CompressionXz
	default:
		return fmt.Errorf("invalid --compression %q: must be \"none\" or \"xz\"", s)
	}
	return nil
}

var _ pflag.Value = (*CompressionFlag)(nil)
