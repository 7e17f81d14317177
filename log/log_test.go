//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel(LevelInfo) })
	tests := []struct {
		name string
		in   string
		want zapcore.Level
	}{
		{name: "debug", in: LevelDebug, want: zapcore.DebugLevel},
		{name: "info", in: LevelInfo, want: zapcore.InfoLevel},
		{name: "warn", in: LevelWarn, want: zapcore.WarnLevel},
		{name: "error", in: LevelError, want: zapcore.ErrorLevel},
		{name: "fatal", in: LevelFatal, want: zapcore.FatalLevel},
		{name: "unknown falls back to info", in: "verbose", want: zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLevel(tt.in)
			assert.Equal(t, tt.want, zapLevel.Level())
		})
	}
}

func TestDebugEnabled(t *testing.T) {
	t.Cleanup(func() { SetLevel(LevelInfo) })
	SetLevel(LevelDebug)
	assert.True(t, DebugEnabled())
	SetLevel(LevelWarn)
	assert.False(t, DebugEnabled())
}

func TestSetFormat(t *testing.T) {
	oldDefault, oldContext := Default, ContextDefault
	t.Cleanup(func() { Default, ContextDefault = oldDefault, oldContext })

	require.NoError(t, SetFormat(FormatJSON))
	assert.NotSame(t, oldDefault, Default)
	require.NoError(t, SetFormat(FormatConsole))
	assert.Error(t, SetFormat("xml"))
}

func TestHelpersDelegate(t *testing.T) {
	oldDefault, oldContext := Default, ContextDefault
	t.Cleanup(func() { Default, ContextDefault = oldDefault, oldContext })

	stub := &stubLogger{}
	Default = stub
	ContextDefault = stub
	ctx := context.Background()

	Debug("x")
	Debugf("x %d", 1)
	Info("x")
	Infof("x")
	Warn("x")
	Warnf("x")
	Error("x")
	Errorf("x")
	DebugfContext(ctx, "x")
	InfofContext(ctx, "x")
	WarnfContext(ctx, "x")
	ErrorfContext(ctx, "x")
	assert.Equal(t, 12, stub.calls)
}

func TestTracef(t *testing.T) {
	oldDefault := Default
	t.Cleanup(func() {
		Default = oldDefault
		SetTraceEnabled(false)
	})
	stub := &stubLogger{}
	Default = stub

	assert.False(t, TraceEnabled())
	Tracef("hello %s", "world")
	assert.Equal(t, 0, stub.calls)

	SetTraceEnabled(true)
	Tracef("hello %s", "world")
	assert.Equal(t, 1, stub.calls)
	assert.True(t, strings.HasPrefix(stub.lastFormat, "[TRACE] "))
}

type stubLogger struct {
	calls      int
	lastFormat string
}

func (s *stubLogger) Debug(args ...any) { s.calls++ }
func (s *stubLogger) Debugf(format string, args ...any) {
	s.calls++
	s.lastFormat = format
}
func (s *stubLogger) Info(args ...any)                  { s.calls++ }
func (s *stubLogger) Infof(format string, args ...any)  { s.calls++ }
func (s *stubLogger) Warn(args ...any)                  { s.calls++ }
func (s *stubLogger) Warnf(format string, args ...any)  { s.calls++ }
func (s *stubLogger) Error(args ...any)                 { s.calls++ }
func (s *stubLogger) Errorf(format string, args ...any) { s.calls++ }
func (s *stubLogger) Fatal(args ...any)                 {}
func (s *stubLogger) Fatalf(format string, args ...any) {}
