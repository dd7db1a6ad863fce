package bank

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateSet_CoversEveryFileType(t *testing.T) {
	set := NewTemplateSet()

	for _, ft := range AllFileTypes() {
		content, ok := set.Content(ft)
		require.True(t, ok, "missing template for %s", ft)
		assert.NotEmpty(t, content)

		// Every default template carries a parseable header of its own type.
		meta, parsed := parseFrontMatter(content)
		require.True(t, parsed, "template for %s has no front matter", ft)
		assert.Equal(t, string(ft), metaString(meta, "type"))
		assert.NotEmpty(t, metaString(meta, "title"))
	}
}

func TestTemplateSet_UnknownType(t *testing.T) {
	set := NewTemplateSet()

	_, ok := set.Content(FileType("bogus"))
	assert.False(t, ok)
}

func TestNewTemplateSetFrom_Override(t *testing.T) {
	custom := "---\ntype: projectBrief\ntitle: Custom Brief\n---\n\n# Custom\n"
	set, err := NewTemplateSetFrom(map[FileType]string{
		FileTypeProjectBrief: custom,
	})
	require.NoError(t, err)

	content, ok := set.Content(FileTypeProjectBrief)
	require.True(t, ok)
	assert.Equal(t, custom, content)

	// Types not overridden keep their defaults.
	content, ok = set.Content(FileTypeTechContext)
	require.True(t, ok)
	assert.True(t, strings.Contains(content, "Tech Context"))
}

func TestNewTemplateSetFrom_RejectsUnknownType(t *testing.T) {
	_, err := NewTemplateSetFrom(map[FileType]string{
		FileType("bogus"): "content",
	})
	require.Error(t, err)
	assert.Equal(t, CodeUnknownFileType, CodeOf(err))
}

func TestNewTemplateSetFrom_RejectsEmptyContent(t *testing.T) {
	_, err := NewTemplateSetFrom(map[FileType]string{
		FileTypeProjectBrief: "",
	})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
}
