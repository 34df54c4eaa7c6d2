// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package cliutil

import (
	"context"

	"github.com/datawire/dlib/dlog"
	"github.com/sirupsen/logrus"
)

// WithLogger returns ctx with a logrus logger at level attached via
// dlog, the logging surface every lib package logs through.
func WithLogger(ctx context.Context, level logrus.Level) context.Context {
	logger := logrus.New()
	logger.SetLevel(level)
	return dlog.WithLogger(ctx, dlog.WrapLogrus(logger))
}
