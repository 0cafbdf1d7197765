package biz

import (
	"strings"
)

// Tag categories. Every tag carries exactly one of these; system tags are
// classified by DetermineTagCategory, user tags are always CategoryCustom.
const (
	CategoryFileType = "file_type"
	CategorySize     = "size"
	CategoryOwner    = "owner"
	CategoryCustom   = "custom"
)

const (
	kb = int64(1024)
	mb = 1024 * kb
	gb = 1024 * mb
)

// sizeBucketNames is ordered from smallest to largest bucket. The names are
// part of the external contract: they double as system tag names and drive
// the category classifier.
var sizeBucketNames = []string{"Tiny", "Small", "Medium", "Large", "Huge", "Very Large"}

var sizeBucketSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(sizeBucketNames))
	for _, n := range sizeBucketNames {
		m[n] = struct{}{}
	}
	return m
}()

// SizeBucket maps a byte count to its size tag name. Intervals are half-open
// with an exclusive upper bound: exactly 100KB is Small, exactly 1MB is Medium.
func SizeBucket(size int64) string {
	switch {
	case size < 100*kb:
		return "Tiny"
	case size < mb:
		return "Small"
	case size < 10*mb:
		return "Medium"
	case size < 100*mb:
		return "Large"
	case size < gb:
		return "Huge"
	default:
		return "Very Large"
	}
}

// ExtensionTag derives the lower-cased extension tag from a filename. The
// second return is false when the filename has no usable extension.
func ExtensionTag(filename string) (string, bool) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "", false
	}
	ext := strings.ToLower(filename[idx+1:])
	if ext == "" {
		return "", false
	}
	return ext, true
}

// ownerTagLength is the truncation width for uploader email tags. Two emails
// sharing a 10-character prefix collide into the same tag; that is accepted.
const ownerTagLength = 10

// OwnerTag derives the uploader tag from an email address by plain
// truncation, not hashing.
func OwnerTag(email string) (string, bool) {
	if email == "" {
		return "", false
	}
	if len(email) > ownerTagLength {
		return email[:ownerTagLength], true
	}
	return email, true
}

// DeriveSystemTags computes the system tag names a freshly uploaded file
// should receive: extension, uploader and size bucket. The function is pure;
// tag records are materialized later via GetOrCreateSystemTag.
func DeriveSystemTags(filename string, size int64, uploaderEmail string) []string {
	names := make([]string, 0, 3)
	if ext, ok := ExtensionTag(filename); ok {
		names = append(names, ext)
	}
	if owner, ok := OwnerTag(uploaderEmail); ok {
		names = append(names, owner)
	}
	names = append(names, SizeBucket(size))
	return names
}

// DetermineTagCategory classifies a tag name. Non-system tags are always
// custom. For system tags the classification is a heuristic over the name
// alone: size bucket names win, then anything containing '@' or exactly
// ownerTagLength characters long is treated as a truncated email, then short
// all-lowercase alphanumerics are treated as file extensions. A 10-character
// system tag that is not an email prefix will be misclassified as owner;
// this is a known ambiguity that must not be changed without product
// sign-off.
func DetermineTagCategory(name string, isSystem bool) string {
	if !isSystem {
		return CategoryCustom
	}
	if _, ok := sizeBucketSet[name]; ok {
		return CategorySize
	}
	if strings.Contains(name, "@") {
		return CategoryOwner
	}
	if len(name) == ownerTagLength {
		return CategoryOwner
	}
	if len(name) > 0 && len(name) <= 5 && isLowerAlnum(name) {
		return CategoryFileType
	}
	return CategoryCustom
}

func isLowerAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// tagColorPalette is the fixed ordered palette for deterministic system tag
// colors. Order matters: ColorForName indexes into it by name hash.
var tagColorPalette = []string{
	"#ef4444", // red
	"#f97316", // orange
	"#f59e0b", // amber
	"#84cc16", // lime
	"#22c55e", // green
	"#14b8a6", // teal
	"#06b6d4", // cyan
	"#3b82f6", // blue
	"#6366f1", // indigo
	"#8b5cf6", // violet
	"#d946ef", // fuchsia
	"#ec4899", // pink
}

// ColorForName maps a tag name to a palette color with a djb2-xor hash over
// 32-bit arithmetic. Same name always yields the same color; collisions
// between different names are expected.
func ColorForName(name string) string {
	h := int32(5381)
	for _, r := range name {
		h = h*33 ^ int32(r)
	}
	// widen before negating so MinInt32 cannot stay negative
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return tagColorPalette[v%int64(len(tagColorPalette))]
}
