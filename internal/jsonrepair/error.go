//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

package jsonrepair

import "fmt"

// Error is a repair failure with the rune offset where it happened.
type Error struct {
	Message  string // Message is the error message.
	Position int    // Position is the rune offset of the error in the input.
}

// Error returns the error message and position.
func (e *Error) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Position)
}
