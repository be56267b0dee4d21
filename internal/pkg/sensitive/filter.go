package sensitive

import (
	"strings"
	"sync/atomic"

	ahocorasick "github.com/BobuSumisu/aho-corasick"
)

// Filter 基于 Aho-Corasick 自动机的敏感词过滤器，可并发读，Reload 原子替换词库
type Filter struct {
	dict atomic.Pointer[dictionary]
}

type dictionary struct {
	trie *ahocorasick.Trie
	size int
}

func NewFilter(words []string) *Filter {
	f := &Filter{}
	f.Reload(words)
	return f
}

// Reload 去重去空后重建自动机
func (f *Filter) Reload(words []string) {
	seen := make(map[string]struct{}, len(words))
	patterns := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		patterns = append(patterns, w)
	}

	d := &dictionary{size: len(patterns)}
	if len(patterns) > 0 {
		d.trie = ahocorasick.NewTrieBuilder().AddStrings(patterns).Build()
	}
	f.dict.Store(d)
}

// Size 当前词库大小
func (f *Filter) Size() int {
	return f.dict.Load().size
}

// HasSensitiveWord 是否命中任意敏感词
func (f *Filter) HasSensitiveWord(text string) bool {
	d := f.dict.Load()
	if d.trie == nil || text == "" {
		return false
	}
	return len(d.trie.MatchString(text)) > 0
}

// Filter 命中的每个片段（含重叠命中）都替换为等长的 '*'，按字符而非字节计长，区分大小写
func (f *Filter) Filter(text string) string {
	d := f.dict.Load()
	if d.trie == nil || text == "" {
		return text
	}
	matches := d.trie.MatchString(text)
	if len(matches) == 0 {
		return text
	}

	// 按字节标记覆盖范围，UTF-8 下命中边界总落在字符边界上
	covered := make([]bool, len(text))
	for _, m := range matches {
		start := int(m.Pos())
		for i := start; i < start+len(m.Match()); i++ {
			covered[i] = true
		}
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, r := range text {
		if covered[i] {
			b.WriteByte('*')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
