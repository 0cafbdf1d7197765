package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeBucket(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want string
	}{
		{"zero bytes", 0, "Tiny"},
		{"just below 100KB", 100*1024 - 1, "Tiny"},
		{"exactly 100KB", 100 * 1024, "Small"},
		{"just below 1MB", 1024*1024 - 1, "Small"},
		{"exactly 1MB", 1024 * 1024, "Medium"},
		{"just below 10MB", 10*1024*1024 - 1, "Medium"},
		{"exactly 10MB", 10 * 1024 * 1024, "Large"},
		{"just below 100MB", 100*1024*1024 - 1, "Large"},
		{"exactly 100MB", 100 * 1024 * 1024, "Huge"},
		{"just below 1GB", 1024*1024*1024 - 1, "Huge"},
		{"exactly 1GB", 1024 * 1024 * 1024, "Very Large"},
		{"several GB", 5 * 1024 * 1024 * 1024, "Very Large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SizeBucket(tt.size))
		})
	}
}

func TestExtensionTag(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		ok       bool
	}{
		{"report.pdf", "pdf", true},
		{"report.PDF", "pdf", true},
		{"archive.tar.gz", "gz", true},
		{"noextension", "", false},
		{"trailingdot.", "", false},
		{".bashrc", "bashrc", true},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := ExtensionTag(tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOwnerTag(t *testing.T) {
	got, ok := OwnerTag("alice@example.com")
	assert.True(t, ok)
	assert.Equal(t, "alice@exam", got)
	assert.Len(t, got, 10)

	// short emails pass through untruncated
	got, ok = OwnerTag("a@b.c")
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", got)

	_, ok = OwnerTag("")
	assert.False(t, ok)
}

func TestDeriveSystemTags(t *testing.T) {
	names := DeriveSystemTags("report.PDF", 5000, "alice@example.com")
	assert.Equal(t, []string{"pdf", "alice@exam", "Tiny"}, names)

	// no extension, anonymous uploader: only the size bucket remains
	names = DeriveSystemTags("README", 2*1024*1024, "")
	assert.Equal(t, []string{"Medium"}, names)
}

func TestDetermineTagCategory(t *testing.T) {
	tests := []struct {
		name     string
		tagName  string
		isSystem bool
		want     string
	}{
		{"user tag is always custom", "pdf", false, CategoryCustom},
		{"size bucket name", "Tiny", true, CategorySize},
		{"two-word size bucket", "Very Large", true, CategorySize},
		{"email prefix with at sign", "alice@exam", true, CategoryOwner},
		{"short at sign name", "a@b.c", true, CategoryOwner},
		{"ten chars without at sign still owner", "abcdefghij", true, CategoryOwner},
		{"extension", "pdf", true, CategoryFileType},
		{"numeric extension", "mp4", true, CategoryFileType},
		{"five char extension", "xlsxm", true, CategoryFileType},
		{"six chars falls through to custom", "abcdef", true, CategoryCustom},
		{"uppercase is not an extension", "PDF", true, CategoryCustom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineTagCategory(tt.tagName, tt.isSystem))
		})
	}
}

func TestColorForName(t *testing.T) {
	// deterministic
	assert.Equal(t, ColorForName("pdf"), ColorForName("pdf"))

	// always lands inside the palette
	for _, name := range []string{"pdf", "Tiny", "alice@exam", "", "某标签", "a-very-long-tag-name-for-hashing"} {
		color := ColorForName(name)
		assert.Contains(t, tagColorPalette, color, "name %q", name)
	}
}
