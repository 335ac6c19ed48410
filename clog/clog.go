// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package clog

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// LogProvider RFC5424 log message levels only Critical Error Warn and Debug
type LogProvider interface {
	Critical(format string, v ...interface{})
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Clog is the decoder's internal logging facade: diagnostics accumulated
// in a diag.Log are decode-time data, and clog traces them (block.Decoder
// and record.Decoder log each diagnostic, fatal ones at Error level, the
// rest at Warn) into a deployment's own log stream alongside the decoded
// output.
type Clog struct {
	provider LogProvider
	// is log output enabled,1: enable, 0: disable
	has uint32
}

// NewLogger creates a new Clog with a "component" field set to field
// attached to every message, backed by a logrus logger.
func NewLogger(field string) Clog {
	entry := logrus.WithField("component", field)
	return Clog{
		provider: logrusProvider{entry},
		has:      0,
	}
}

// LogMode set enable or disable log output when you has set provider
func (sf *Clog) LogMode(enable bool) {
	if enable {
		atomic.StoreUint32(&sf.has, 1)
	} else {
		atomic.StoreUint32(&sf.has, 0)
	}
}

// SetLogProvider set provider provider
func (sf *Clog) SetLogProvider(p LogProvider) {
	if p != nil {
		sf.provider = p
	}
}

// Critical Log CRITICAL level message.
func (sf Clog) Critical(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Critical(format, v...)
	}
}

// Error Log ERROR level message.
func (sf Clog) Error(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Error(format, v...)
	}
}

// Warn Log WARN level message.
func (sf Clog) Warn(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Warn(format, v...)
	}
}

// Debug Log DEBUG level message.
func (sf Clog) Debug(format string, v ...interface{}) {
	if atomic.LoadUint32(&sf.has) == 1 {
		sf.provider.Debug(format, v...)
	}
}

// logrusProvider is the default LogProvider, backed by a logrus Entry.
type logrusProvider struct {
	entry *logrus.Entry
}

var _ LogProvider = logrusProvider{}

// Critical Log CRITICAL level message. Logged at logrus's Error level with
// a distinguishing prefix rather than Fatal/Panic: a decoding library must
// never terminate its embedder's process on a critical log line.
func (sf logrusProvider) Critical(format string, v ...interface{}) {
	sf.entry.Errorf("[CRITICAL] "+format, v...)
}

// Error Log ERROR level message.
func (sf logrusProvider) Error(format string, v ...interface{}) {
	sf.entry.Errorf(format, v...)
}

// Warn Log WARN level message.
func (sf logrusProvider) Warn(format string, v ...interface{}) {
	sf.entry.Warnf(format, v...)
}

// Debug Log DEBUG level message.
func (sf logrusProvider) Debug(format string, v ...interface{}) {
	sf.entry.Debugf(format, v...)
}
