package util

import (
	"encoding/base64"
	"errors"

	"github.com/goccy/go-json"
)

// PageSizeMax 单页最大条数
const PageSizeMax = 100

var ErrInvalidCursor = errors.New("游标无效")

// EncodeCursor 将排序值数组编码为 Base64 字符串
func EncodeCursor(sortValues []interface{}) string {
	if len(sortValues) == 0 {
		return ""
	}
	b, _ := json.Marshal(sortValues)
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeCursor 将前端传来的 Base64 字符串解码为排序值数组
func DecodeCursor(cursor string) ([]interface{}, error) {
	if cursor == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, err
	}
	var sortValues []interface{}
	err = json.Unmarshal(b, &sortValues)
	return sortValues, err
}

// EncodeIDCursor 以主键作为游标，0 表示没有下一页
func EncodeIDCursor(id uint64) string {
	if id == 0 {
		return ""
	}
	return EncodeCursor([]interface{}{id})
}

// DecodeIDCursor 空游标返回 0，即从最新一条开始
func DecodeIDCursor(cursor string) (uint64, error) {
	values, err := DecodeCursor(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}
	if len(values) == 0 {
		return 0, nil
	}
	f, ok := values[0].(float64)
	if !ok || f < 0 {
		return 0, ErrInvalidCursor
	}
	return uint64(f), nil
}

// NormalizePageSize 限制分页大小
func NormalizePageSize(size int, def int) int {
	if size <= 0 {
		return def
	}
	if size > PageSizeMax {
		return PageSizeMax
	}
	return size
}
