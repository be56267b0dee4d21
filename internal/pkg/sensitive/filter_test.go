package sensitive

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_MasksEachMatchWithSameLength(t *testing.T) {
	f := NewFilter([]string{"foo", "bar"})

	assert.Equal(t, "hello *** *** world", f.Filter("hello foo bar world"))
}

func TestFilter_CaseSensitive(t *testing.T) {
	f := NewFilter([]string{"foo"})

	assert.Equal(t, "FOO ***", f.Filter("FOO foo"))
}

func TestFilter_MultiByteWords(t *testing.T) {
	f := NewFilter([]string{"敏感词"})

	assert.Equal(t, "这是***吗", f.Filter("这是敏感词吗"))
}

func TestFilter_OverlappingMatchesAllMasked(t *testing.T) {
	f := NewFilter([]string{"abc", "bcd", "c"})

	assert.Equal(t, "x****y", f.Filter("xabcdy"))
}

func TestFilter_SuffixViaFailLink(t *testing.T) {
	f := NewFilter([]string{"she", "he", "hers"})

	assert.Equal(t, "u*****", f.Filter("ushers"))
	assert.True(t, f.HasSensitiveWord("ahe"))
	assert.False(t, f.HasSensitiveWord("hx"))
}

func TestFilter_EmptyDictionaryAndText(t *testing.T) {
	f := NewFilter(nil)

	assert.Equal(t, "anything", f.Filter("anything"))
	assert.Equal(t, "", f.Filter(""))
	assert.Equal(t, 0, f.Size())
}

func TestFilter_Reload(t *testing.T) {
	f := NewFilter([]string{"old"})
	f.Reload([]string{"new", "new", ""})

	assert.Equal(t, "old ***", f.Filter("old new"))
	assert.Equal(t, 1, f.Size())
}

func TestFilter_ConcurrentReload(t *testing.T) {
	f := NewFilter([]string{"foo"})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				out := f.Filter("foo bar")
				assert.Contains(t, []string{"*** bar", "foo ***", "*** ***"}, out)
			}
		}()
	}
	for j := 0; j < 50; j++ {
		f.Reload([]string{"bar"})
		f.Reload([]string{"foo", "bar"})
	}
	wg.Wait()
	assert.True(t, f.HasSensitiveWord("bar"))
}
