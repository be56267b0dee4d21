package util

import (
	"strconv"
	"strings"
)

// PtrInt 用于将 int 转换为 *int
func PtrInt(i int) *int {
	return &i
}

// PtrUint64 用于将 uint64 转换为 *uint64
func PtrUint64(i uint64) *uint64 {
	return &i
}

// UniqueUint64 去重并保持原有顺序
func UniqueUint64(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// JoinUint64 拼接为 a_b_c 形式，用于锁与幂等键
func JoinUint64(sep string, ids ...uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, sep)
}
