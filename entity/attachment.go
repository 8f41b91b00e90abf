package entity

import "io"

// ArchivedImage is a sent image kept in the file store for the dispatch history.
type ArchivedImage struct {
	FileID   string `json:"file_id" bson:"file_id"`
	FileName string `json:"file_name" bson:"file_name"`
	MimeType string `json:"mime_type" bson:"mime_type"`
	Size     int64  `json:"size" bson:"size"`
	// URL is a signed download link, filled when history is read.
	URL string `json:"url,omitempty" bson:"-"`
}

// FileMetadata is stored alongside each archived file.
type FileMetadata struct {
	MimeType  string `bson:"mime_type"`
	SessionID string `bson:"session_id"`
	Agent     string `bson:"agent"`
}

// FileDownload is an archived file opened for streaming. Body must be closed.
type FileDownload struct {
	Name     string
	MimeType string
	Body     io.ReadCloser
}
