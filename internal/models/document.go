package models

import "strings"

const (
	MediaTypePDF   = "application/pdf"
	MediaTypeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeText  = "text/plain"
	MediaTypePNG   = "image/png"
	MediaTypeJPEG  = "image/jpeg"
	MediaTypeTIFF  = "image/tiff"
	MediaTypeOctet = "application/octet-stream"
)

// UploadedDocument is a single file handed to the pipeline. It is never persisted.
type UploadedDocument struct {
	Content   []byte
	MediaType string
	FileName  string
	Size      int64
}

func NewUploadedDocument(content []byte, mediaType, fileName string) *UploadedDocument {
	return &UploadedDocument{
		Content:   content,
		MediaType: NormalizeMediaType(mediaType),
		FileName:  fileName,
		Size:      int64(len(content)),
	}
}

// NormalizeMediaType lowercases a media type and strips parameters such as charset.
func NormalizeMediaType(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	return mediaType
}

// MediaTypeFromExtension maps a file extension to one of the media types the
// pipeline knows about. Unknown extensions return "".
func MediaTypeFromExtension(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return MediaTypePDF
	case "docx":
		return MediaTypeDOCX
	case "txt", "text":
		return MediaTypeText
	case "png":
		return MediaTypePNG
	case "jpg", "jpeg":
		return MediaTypeJPEG
	case "tif", "tiff":
		return MediaTypeTIFF
	default:
		return ""
	}
}
