package reference

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

const masterList = `한국의 조류 목록,,,,
No,목,과,학명,국명
1,기러기목,오리과,Anser cygnoides,개리
2,기러기목,오리과,Anas platyrhynchos,청둥오리
3,참새목,참새과,Passer montanus,참새
4,참새목,까마귀과,Pica serica,까치
No,목,과,학명,국명
5,참새목,직박구리과,Hypsipetes amaurotis,직박구리
6,참새목,참새과,Passer montanus, 참 새
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func names(c *Catalog) []string {
	var out []string
	for _, sp := range c.Species() {
		out = append(out, sp.Name)
	}
	return out
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"참새", "참새"},
		{"  참새  ", "참새"},
		{"참 새", "참새"},
		{"참새.", "참새"},
		{"참새!?", "참새"},
		{"\ufeff까치", "까치"},
		{"쇠오리(수컷)", "쇠오리(수컷)"},
		{"1234", "1234"},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNewCatalogInvariants(t *testing.T) {
	t.Parallel()

	c := NewCatalog([]Row{
		{Name: " 참새 ", Family: "참새과"},
		{Name: "", Family: "오리과"},
		{Name: "까치", Family: "까마귀과"},
		{Name: "참새.", Family: "다른과"},
		{Name: "직박구리"},
	})

	require.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"참새", "까치", "직박구리"}, names(c))
	for i, sp := range c.Species() {
		assert.Equal(t, i+1, sp.Ordinal, "ordinals must be dense")
	}

	family, ok := c.Family("참새")
	assert.True(t, ok)
	assert.Equal(t, "참새과", family, "first occurrence wins")

	_, ok = c.Family("직박구리")
	assert.False(t, ok, "species without a family report no family")

	ordinal, ok := c.Ordinal(" 까 치 ")
	assert.True(t, ok)
	assert.Equal(t, 2, ordinal)

	assert.Equal(t, []string{"참새과", "까마귀과"}, c.Families())
	assert.Equal(t, map[string][]string{"참새과": {"참새"}, "까마귀과": {"까치"}}, c.FamilyMembers())
	assert.Equal(t, map[string]int{"참새": 1, "까치": 2, "직박구리": 3}, c.NameToOrdinal())
}

func TestNilCatalogIsEmpty(t *testing.T) {
	t.Parallel()

	var c *Catalog
	assert.True(t, c.Empty())
	assert.False(t, c.Contains("참새"))
	assert.Empty(t, c.NameToOrdinal())
	assert.Empty(t, c.FamilyMembers())
	assert.Nil(t, c.Species())
}

func TestCatalogCopiesAreIndependent(t *testing.T) {
	t.Parallel()

	c := NewCatalog([]Row{{Name: "참새", Family: "참새과"}})
	m := c.NameToOrdinal()
	m["까치"] = 99
	members := c.Members("참새과")
	members[0] = "changed"

	assert.False(t, c.Contains("까치"))
	assert.Equal(t, []string{"참새"}, c.Members("참새과"))
}

func TestLoadEncodings(t *testing.T) {
	t.Parallel()

	cp949, err := korean.EUCKR.NewEncoder().String(masterList)
	require.NoError(t, err)
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(masterList)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"utf-8", []byte(masterList)},
		{"utf-8 with bom", append([]byte("\xef\xbb\xbf"), masterList...)},
		{"cp949", []byte(cp949)},
		{"utf-16", []byte(utf16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Load(writeFile(t, "list.csv", tt.data), nil)

			assert.Equal(t, []string{"개리", "청둥오리", "참새", "까치", "직박구리"}, names(c))
			family, ok := c.Family("직박구리")
			assert.True(t, ok)
			assert.Equal(t, "직박구리과", family)

			sp, ok := c.Lookup("참새")
			require.True(t, ok)
			assert.Equal(t, "Passer montanus", sp.ScientificName)
			assert.Equal(t, []string{"참새"}, c.Members("참새과"))
		})
	}
}

func TestLoadHeaderKeywordsInAnyOrder(t *testing.T) {
	t.Parallel()

	csv := "Family,Common Name,Scientific Name\n" +
		"Paridae,박새,Parus minor\n" +
		"Corvidae,까치,Pica serica\n" +
		"family,name,scientific name\n" +
		"Corvidae,어치,Garrulus glandarius\n"

	c := Load(writeFile(t, "list.csv", []byte(csv)), nil)

	assert.Equal(t, []string{"박새", "까치", "어치"}, names(c))
	family, _ := c.Family("어치")
	assert.Equal(t, "Corvidae", family)
}

func TestLoadFixedLayoutWithoutHeader(t *testing.T) {
	t.Parallel()

	csv := "제목,,,,\n" +
		"부제,,,,\n" +
		"1,참새목,참새과,Passer montanus,참새\n" +
		"2,참새목,까마귀과,Pica serica,까치\n" +
		"3,참새목,합계,,2\n"

	c := Load(writeFile(t, "list.csv", []byte(csv)), nil)
	assert.Equal(t, []string{"참새", "까치"}, names(c))
}

func TestParseFixedLayoutSkipsBannerRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		csv  string
		want []string
	}{
		{
			name: "no banner",
			csv:  "1,참새목,참새과,Passer montanus,참새\n2,참새목,까마귀과,Pica serica,까치\n",
			want: []string{"참새", "까치"},
		},
		{
			name: "one banner with text in the name column",
			csv:  "국가 조류 목록,,,,2024년판\n1,참새목,참새과,Passer montanus,참새\n2,참새목,까마귀과,Pica serica,까치\n",
			want: []string{"참새", "까치"},
		},
		{
			name: "two banners",
			csv: "국가 조류 목록,,,,2024년판\n" +
				"출처: 국립생물자원관,,,,\n" +
				"1,참새목,참새과,Passer montanus,참새\n" +
				"2,참새목,까마귀과,Pica serica,까치\n",
			want: []string{"참새", "까치"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := Parse(tt.csv)
			require.NoError(t, err)
			require.Equal(t, tt.want, names(c))
			assert.Equal(t, 2, c.Len())

			ordinal, ok := c.Ordinal("참새")
			require.True(t, ok)
			assert.Equal(t, 1, ordinal)
			ordinal, _ = c.Ordinal("까치")
			assert.Equal(t, 2, ordinal)
			assert.False(t, c.Contains("2024년판"))
		})
	}
}

func TestLoadNumericNameIsKept(t *testing.T) {
	t.Parallel()

	c, err := Parse("과,국명\n참새과,참새\n기타,1004\n")
	require.NoError(t, err)
	assert.True(t, c.Contains("1004"))
	ordinal, _ := c.Ordinal("1004")
	assert.Equal(t, 2, ordinal)
}

func TestLoadDegradesToEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.csv") }},
		{"undecodable bytes", func(t *testing.T) string { return writeFile(t, "bin.csv", []byte{0xff, 0xff, 0x80, 0x81, 0xfe}) }},
		{"no plausible columns", func(t *testing.T) string { return writeFile(t, "short.csv", []byte("a,b\nc,d\n")) }},
		{"empty file", func(t *testing.T) string { return writeFile(t, "empty.csv", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Load(tt.path(t), nil)
			require.NotNil(t, c)
			assert.True(t, c.Empty())
			assert.Empty(t, c.NameToFamily())
		})
	}
}

func TestLoaderMemoizes(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "list.csv", []byte(masterList))
	var loads []int
	loader := NewLoader(nil, WithObserver(func(_ string, species int, _ time.Duration) {
		loads = append(loads, species)
	}))

	first := loader.Load(path)
	require.NoError(t, os.Remove(path))
	second := loader.Load(path)

	assert.Same(t, first, second)
	assert.Equal(t, []int{5}, loads)

	loader.Invalidate()
	assert.True(t, loader.Load(path).Empty(), "reload after invalidation sees the missing file")
	assert.Equal(t, []int{5, 0}, loads)
}
