//
// Tencent is pleased to support the open source community by making trpc-processor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-processor-go is licensed under the Apache License Version 2.0.
//
//

// Package transform derives a single vector from a list of vectors, for
// example to pool token embeddings into one sentence embedding.
//
// A model output field name may carry a pooling suffix, as in
// "embeddings.meanPooling()". BaseFieldName gives the field to read and
// Apply pools the value read from it.
package transform

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"trpc.group/trpc-go/trpc-processor-go/value"
)

// Field name suffixes.
const (
	SuffixMeanPooling = ".meanPooling()"
	SuffixMaxPooling  = ".maxPooling()"
)

// Pooling errors.
var (
	ErrNotArray          = errors.New("transform: value is not an array")
	ErrEmpty             = errors.New("transform: no vectors to pool")
	ErrNotNumericArray   = errors.New("transform: element is not a numeric array")
	ErrDimensionMismatch = errors.New("transform: vectors have different dimensions")
)

// MeanPooling returns the element-wise mean of a list of equal-length
// numeric vectors.
func MeanPooling(v any) ([]float64, error) {
	vectors, err := toVectors(v)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vectors[0]))
	for _, vec := range vectors {
		for i, x := range vec {
			out[i] += x
		}
	}
	n := float64(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}

// MaxPooling returns the element-wise maximum of a list of equal-length
// numeric vectors.
func MaxPooling(v any) ([]float64, error) {
	vectors, err := toVectors(v)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vectors[0]))
	for i := range out {
		out[i] = math.Inf(-1)
	}
	for _, vec := range vectors {
		for i, x := range vec {
			out[i] = math.Max(out[i], x)
		}
	}
	return out, nil
}

func toVectors(v any) ([][]float64, error) {
	n, err := value.Normalize(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	rows, ok := n.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotArray, value.KindOf(n))
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	vectors := make([][]float64, len(rows))
	for i, row := range rows {
		cells, ok := row.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %s", ErrNotNumericArray, i, value.KindOf(row))
		}
		vec := make([]float64, len(cells))
		for j, cell := range cells {
			f, isNumber := cell.(float64)
			if !isNumber {
				return nil, fmt.Errorf("%w: element %d[%d] is %s", ErrNotNumericArray, i, j, value.KindOf(cell))
			}
			vec[j] = f
		}
		if i > 0 && len(vec) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: element %d has %d values, want %d", ErrDimensionMismatch, i, len(vec), len(vectors[0]))
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// HasTransformation reports whether fieldName ends with a pooling suffix.
func HasTransformation(fieldName string) bool {
	return strings.HasSuffix(fieldName, SuffixMeanPooling) || strings.HasSuffix(fieldName, SuffixMaxPooling)
}

// BaseFieldName returns fieldName without its pooling suffix.
func BaseFieldName(fieldName string) string {
	for _, suffix := range []string{SuffixMeanPooling, SuffixMaxPooling} {
		if strings.HasSuffix(fieldName, suffix) {
			return strings.TrimSuffix(fieldName, suffix)
		}
	}
	return fieldName
}

// Apply pools v as fieldName's suffix asks. The pooled vector is returned
// as a JSON array. Without a suffix v is returned unchanged.
func Apply(fieldName string, v any) (any, error) {
	var (
		pooled []float64
		err    error
	)
	switch {
	case strings.HasSuffix(fieldName, SuffixMeanPooling):
		pooled, err = MeanPooling(v)
	case strings.HasSuffix(fieldName, SuffixMaxPooling):
		pooled, err = MaxPooling(v)
	default:
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", fieldName, err)
	}
	out := make([]any, len(pooled))
	for i, f := range pooled {
		out[i] = f
	}
	return out, nil
}
