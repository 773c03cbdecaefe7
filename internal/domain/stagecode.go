package domain

import (
	"fmt"
	"sort"
	"strings"
)

// StageCode identifies a stage within a workflow version. The value is always
// trimmed and upper-cased, so codes compare case-insensitively.
type StageCode string

// Well-known codes referenced by scheduling rules.
const (
	StagePNC StageCode = "PNC"
	StageCOB StageCode = "COB"
	StageEAS StageCode = "EAS"
)

func NewStageCode(s string) StageCode {
	return StageCode(strings.ToUpper(strings.TrimSpace(s)))
}

// ParseStageCode normalizes s and rejects empty codes.
func ParseStageCode(s string) (StageCode, error) {
	c := NewStageCode(s)
	if c == "" {
		return "", fmt.Errorf("stage code is required: %w", ErrValidation)
	}
	return c, nil
}

func (c StageCode) String() string { return string(c) }

// SortedCodes returns the codes in lexical order.
func SortedCodes(codes []StageCode) []StageCode {
	out := append([]StageCode(nil), codes...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// JoinCodes renders codes as a comma separated list.
func JoinCodes(codes []StageCode) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
