package fuzzy

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(ss ...string) []Text {
	out := make([]Text, len(ss))
	for i, s := range ss {
		out[i] = Text(s)
	}
	return out
}

func items(matches []Match[Text]) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = string(m.Item)
	}
	return out
}

func TestFind(t *testing.T) {
	bills := texts("kitchen table bill ikea", "tom tailor shirt bill")
	got := Find(bills, "bill")
	assert.Equal(t, []string{"kitchen table bill ikea", "tom tailor shirt bill"}, items(got))

	lamps := texts("lamp", "desk lamp", "lamp shade")
	assert.Empty(t, Find(lamps, "bill"))
}

func TestFind_CaseInsensitive(t *testing.T) {
	got := Find(texts("Stromrechnung MÄRZ"), "STROM")
	require.Len(t, got, 1)
	assert.Equal(t, Text("Stromrechnung MÄRZ"), got[0].Item)
}

func TestFind_Empty(t *testing.T) {
	assert.NotNil(t, Find(texts("a", "b"), ""))
	assert.Empty(t, Find(texts("a", "b"), ""))
	assert.NotNil(t, Find([]Text{}, "a"))
	assert.Empty(t, Find([]Text(nil), "a"))
	assert.Empty(t, FindSorted(nil, "a"))
}

func TestFind_TagsRegression(t *testing.T) {
	var tags []Text
	for i := 1; i <= 190; i++ {
		tags = append(tags, Text(fmt.Sprintf("tag%d", i)))
	}
	got := Find(tags, "tag11")
	assert.Len(t, got, 19)
	assert.Equal(t, Text("tag11"), got[0].Item)
}

func TestFindPartitioned_Invariant(t *testing.T) {
	corpus := make([]Text, 1000)
	for i := range corpus {
		corpus[i] = Text(fmt.Sprintf("%04d-invoice-%d__bank_tag%d.pdf", 2000+i%25, i, i%37))
	}

	want := FindPartitioned(corpus, "inv3", 1)
	require.NotEmpty(t, want)
	for _, n := range []int{0, 2, 4, 7, 16, 1000, 5000} {
		t.Run(fmt.Sprintf("partitions=%d", n), func(t *testing.T) {
			assert.Equal(t, want, FindPartitioned(corpus, "inv3", n))
		})
	}
}

func TestScore(t *testing.T) {
	_, ok := Score([]byte("abc"), []byte("acb"))
	assert.False(t, ok)
	_, ok = Score([]byte("abc"), nil)
	assert.False(t, ok)

	start, ok := Score([]byte("billing"), []byte("bill"))
	require.True(t, ok)
	word, _ := Score([]byte("my bill"), []byte("bill"))
	mid, _ := Score([]byte("mybill"), []byte("bill"))
	scattered, _ := Score([]byte("b i l l"), []byte("bill"))

	assert.Greater(t, start, word)
	assert.Greater(t, word, mid)
	assert.Greater(t, word, scattered)
}

func TestScore_BestStart(t *testing.T) {
	// The first "b" sits inside "table"; the better match is the word "bill".
	got, ok := Score([]byte("kitchen table bill ikea"), []byte("bill"))
	require.True(t, ok)
	want, _ := Score([]byte("tom tailor shirt bill"), []byte("bill"))
	assert.Equal(t, want, got)
}

func TestFindSorted(t *testing.T) {
	got := FindSorted([]string{"mybill", "b i l l", "my bill", "lamp", "billing"}, "bill")
	assert.Equal(t, []string{"billing", "my bill", "b i l l", "mybill"}, got)
}

func TestFindSorted_StableTies(t *testing.T) {
	in := []string{"tom tailor shirt bill", "kitchen table bill ikea"}
	assert.Equal(t, in, FindSorted(in, "bill"))
}

func BenchmarkFind(b *testing.B) {
	corpus := make([]Text, 20000)
	for i := range corpus {
		corpus[i] = Text(fmt.Sprintf("%04d-01-01--document-number-%d__tag%d.pdf", 1990+i%30, i, i%200))
	}
	b.ResetTimer()
	for range b.N {
		Find(corpus, "doc12")
	}
}

func TestPartitions(t *testing.T) {
	assert.Equal(t, 1, Partitions(0, 256))
	assert.Equal(t, 1, Partitions(255, 256))
	assert.LessOrEqual(t, Partitions(1<<20, 256), runtime.GOMAXPROCS(0))
	assert.Equal(t, Partitions(1000, MinPartitionSize), Partitions(1000, 0))
}
