// Package naming implements the creative filename grammar: parsing incoming
// filenames for embedded metadata and generating normalized inventory names.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/creativeflow/creative-int/internal/models"
)

// Structured filenames carry metadata in underscore-separated fields:
//
//	(Language)_(Category)_(Type)_(Creative-Name)_(Creator-Name).ext
//
// Simple filenames are camera/exporter defaults like video-a1b2c3d4.mp4.
var simplePattern = regexp.MustCompile(`^(video|image)-[a-f0-9]{8}\.(mp4|mov|avi|jpg|jpeg|png|gif|webm)$`)

// sanitizePattern matches everything that is stripped from a filename field.
var sanitizePattern = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// ParseStructured extracts metadata from a structured filename. It returns
// ok=false when the name has fewer than five underscore fields.
func ParseStructured(filename string) (models.Metadata, bool) {
	stem := filename
	if idx := strings.LastIndex(stem, "."); idx > 0 {
		stem = stem[:idx]
	}

	parts := strings.Split(stem, "_")
	if len(parts) < 5 {
		return models.Metadata{}, false
	}

	return models.Metadata{
		Language:     parts[0],
		Category:     parts[1],
		ContentType:  parts[2],
		CreativeName: parts[3],
		CreatorName:  parts[4],
	}, true
}

// IsSimple reports whether the filename matches the simple exporter pattern
// (video-XXXXXXXX.ext / image-XXXXXXXX.ext).
func IsSimple(filename string) bool {
	return simplePattern.MatchString(strings.ToLower(filename))
}

// Sanitize strips a filename field down to alphanumerics and hyphens.
// Empty or all-invalid fields become "UNK".
func Sanitize(part string) string {
	if part == "" {
		return "UNK"
	}
	cleaned := sanitizePattern.ReplaceAllString(part, "")
	if cleaned == "" {
		return "UNK"
	}
	return cleaned
}

// BuildFilename generates the normalized inventory filename:
//
//	Lang_Category_Type_Name_Creator[_Nsec]_ID-XXXXXXXX.ext
//
// Videos carry their rounded duration; images pass durationSeconds <= 0.
// nativeOriginal marks a source video that will be converted to a native
// variant: the original keeps an ORG_ prefix so the uploader skips it.
func BuildFilename(uniqueID string, md models.Metadata, ext string, durationSeconds float64, nativeOriginal bool) string {
	parts := []string{
		Sanitize(md.Language),
		Sanitize(md.Category),
		Sanitize(md.ContentType),
		Sanitize(orDefault(md.CreativeName, "Generic")),
		Sanitize(md.CreatorName),
	}

	if durationSeconds > 0 {
		parts = append(parts, fmt.Sprintf("%dsec", int(durationSeconds+0.5)))
	}
	parts = append(parts, Sanitize(uniqueID))

	name := strings.Join(parts, "_") + strings.ToLower(ext)
	if nativeOriginal {
		name = "ORG_" + name
	}
	return name
}

// BuildNativeFilename generates the filename for one half of a native pair,
// with a VID_/IMG_ prefix and a matching -VID/-IMG unique-id suffix:
//
//	VID_EN_Cat_NSFW_Generic_Seras_4sec_ID-F40623FA-VID.mp4
//	IMG_EN_Cat_NSFW_Generic_Seras_ID-F40623FA-IMG.png
//
// The shared uniqueID is the pair id linking both halves.
func BuildNativeFilename(uniqueID string, md models.Metadata, prefix string, durationSeconds float64) string {
	parts := []string{
		prefix,
		Sanitize(md.Language),
		Sanitize(md.Category),
		Sanitize(md.ContentType),
		Sanitize(orDefault(md.CreativeName, "Generic")),
		Sanitize(md.CreatorName),
	}

	if durationSeconds > 0 {
		parts = append(parts, fmt.Sprintf("%dsec", int(durationSeconds+0.5)))
	}
	parts = append(parts, Sanitize(uniqueID)+"-"+prefix)

	ext := ".png"
	if prefix == "VID" {
		ext = ".mp4"
	}
	return strings.Join(parts, "_") + ext
}

// PairBaseID strips a -VID/-IMG suffix from a unique id, returning the
// shared base id that links a native pair.
func PairBaseID(uniqueID string) string {
	if s, ok := strings.CutSuffix(uniqueID, "-VID"); ok {
		return s
	}
	if s, ok := strings.CutSuffix(uniqueID, "-IMG"); ok {
		return s
	}
	return uniqueID
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
