//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var grid = []any{
	[]any{1.0, 2.0, 3.0},
	[]any{4.0, 5.0, 6.0},
	[]any{7.0, 8.0, 9.0},
}

func TestPooling(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		mean    []float64
		max     []float64
		wantErr error
	}{
		{name: "grid", in: grid, mean: []float64{4, 5, 6}, max: []float64{7, 8, 9}},
		{name: "typed host slices", in: [][]int{{1, -2}, {3, -4}}, mean: []float64{2, -3}, max: []float64{3, -2}},
		{name: "single vector", in: []any{[]any{0.5, -1.0}}, mean: []float64{0.5, -1}, max: []float64{0.5, -1}},
		{name: "negative values", in: []any{[]any{-3.0}, []any{-1.0}}, mean: []float64{-2}, max: []float64{-1}},
		{name: "not an array", in: "text", wantErr: ErrNotArray},
		{name: "empty", in: []any{}, wantErr: ErrEmpty},
		{name: "inner not array", in: []any{1.0, 2.0}, wantErr: ErrNotNumericArray},
		{name: "inner not numeric", in: []any{[]any{"a"}}, wantErr: ErrNotNumericArray},
		{name: "ragged", in: []any{[]any{1.0, 2.0}, []any{1.0}}, wantErr: ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, err := MeanPooling(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, err = MaxPooling(tt.in)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.mean, mean, 1e-12)
			pooled, err := MaxPooling(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.max, pooled)
		})
	}
}

func TestFieldNameSuffix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		has  bool
		base string
	}{
		{name: "mean", in: "embeddings[0].meanPooling()", has: true, base: "embeddings[0]"},
		{name: "max", in: "data.maxPooling()", has: true, base: "data"},
		{name: "plain", in: "embeddings", has: false, base: "embeddings"},
		{name: "suffix not at end", in: "a.meanPooling().b", has: false, base: "a.meanPooling().b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.has, HasTransformation(tt.in))
			assert.Equal(t, tt.base, BaseFieldName(tt.in))
		})
	}
}

func TestApply(t *testing.T) {
	got, err := Apply("vec.meanPooling()", grid)
	require.NoError(t, err)
	assert.Equal(t, []any{4.0, 5.0, 6.0}, got)

	got, err = Apply("vec.maxPooling()", grid)
	require.NoError(t, err)
	assert.Equal(t, []any{7.0, 8.0, 9.0}, got)

	got, err = Apply("vec", "unchanged")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", got)

	_, err = Apply("vec.maxPooling()", "bad")
	assert.ErrorIs(t, err, ErrNotArray)
}
