package genfile

import (
	"context"
	"mime"
	"path"
	"strings"
)

// Attribute keys set by the built-in decorators.
const (
	AttrContentType = "contentType"
	AttrExtension   = "extension"
	AttrCategory    = "category"
	AttrTags        = "tags"
)

// MetadataKeyTags is the metadata key holding a file's comma-separated tags.
const MetadataKeyTags = "tags"

// Common MIME types
const (
	MIMETypeTextPlain       = "text/plain"
	MIMETypeTextHTML        = "text/html"
	MIMETypeApplicationJSON = "application/json"
	MIMETypeApplicationXML  = "application/xml"
	MIMETypeImageJPEG       = "image/jpeg"
	MIMETypeImagePNG        = "image/png"
	MIMETypeImageSVG        = "image/svg+xml"
	MIMETypeApplicationPDF  = "application/pdf"
	MIMETypeApplicationZip  = "application/zip"
	MIMETypeOctetStream     = "application/octet-stream"
)

// Common file extensions to MIME types mapping
var extensionToMIME = map[string]string{
	".txt":  MIMETypeTextPlain,
	".html": MIMETypeTextHTML,
	".htm":  MIMETypeTextHTML,
	".css":  "text/css",
	".js":   "text/javascript",
	".json": MIMETypeApplicationJSON,
	".xml":  MIMETypeApplicationXML,
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".jpg":  MIMETypeImageJPEG,
	".jpeg": MIMETypeImageJPEG,
	".png":  MIMETypeImagePNG,
	".gif":  "image/gif",
	".svg":  MIMETypeImageSVG,
	".webp": "image/webp",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".pdf":  MIMETypeApplicationPDF,
	".zip":  MIMETypeApplicationZip,
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// GuessContentType determines the content type of a file from its name
func GuessContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if contentType, ok := extensionToMIME[ext]; ok {
		return contentType
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}
	return MIMETypeOctetStream
}

// ContentCategory groups a MIME type into a coarse category used for icons
// and filtering: text, image, audio, video, archive, document or binary.
func ContentCategory(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "text/"),
		contentType == MIMETypeApplicationJSON,
		contentType == MIMETypeApplicationXML,
		contentType == "application/yaml":
		return "text"
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case contentType == MIMETypeApplicationZip,
		contentType == "application/gzip",
		contentType == "application/x-tar":
		return "archive"
	case contentType == MIMETypeApplicationPDF,
		strings.HasPrefix(contentType, "application/vnd."):
		return "document"
	default:
		return "binary"
	}
}

// ============================================================================
// ContentTypeDecorator
// ============================================================================

// ContentTypeDecorator derives content type, extension and category
// attributes for files from their names. Folders are left alone.
type ContentTypeDecorator struct {
	NopDecorator
}

// NewContentTypeDecorator creates a ContentTypeDecorator.
func NewContentTypeDecorator() *ContentTypeDecorator {
	return &ContentTypeDecorator{}
}

// DecorateFile implements Decorator.
func (d *ContentTypeDecorator) DecorateFile(_ context.Context, file *GenericFile, _ GetFileOptions) error {
	if file.IsFolder() {
		return nil
	}
	contentType := GuessContentType(file.Name)
	file.SetAttribute(AttrContentType, contentType)
	file.SetAttribute(AttrCategory, ContentCategory(contentType))
	if ext := strings.ToLower(path.Ext(file.Name)); ext != "" {
		file.SetAttribute(AttrExtension, strings.TrimPrefix(ext, "."))
	}
	return nil
}

// ============================================================================
// TagsDecorator
// ============================================================================

// TagsDecorator normalizes the "tags" metadata entry (trimmed, lowercased,
// de-duplicated, in order of first appearance) and mirrors it into the tags
// attribute. Tags are written with SetFileMetadata.
type TagsDecorator struct {
	NopDecorator
}

// NewTagsDecorator creates a TagsDecorator.
func NewTagsDecorator() *TagsDecorator {
	return &TagsDecorator{}
}

// DecorateFileMetadata implements Decorator.
func (d *TagsDecorator) DecorateFileMetadata(_ context.Context, md Metadata, _ Path) error {
	raw, ok := md[MetadataKeyTags]
	if !ok {
		return nil
	}
	md[MetadataKeyTags] = strings.Join(ParseTags(raw), ",")
	return nil
}

// DecorateFile implements Decorator.
func (d *TagsDecorator) DecorateFile(_ context.Context, file *GenericFile, _ GetFileOptions) error {
	if file.Metadata == nil {
		return nil
	}
	if raw, ok := file.Metadata[MetadataKeyTags]; ok {
		file.SetAttribute(AttrTags, strings.Join(ParseTags(raw), ","))
	}
	return nil
}

// ParseTags splits a comma-separated tag list, normalizing each tag.
func ParseTags(raw string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

var (
	_ Decorator = (*ContentTypeDecorator)(nil)
	_ Decorator = (*TagsDecorator)(nil)
)
