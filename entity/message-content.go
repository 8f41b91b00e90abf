package entity

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const ImagesMarker = "[IMAGES]"

type ImageAttachment struct {
	Base64   string `json:"base64"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Caption  string `json:"caption,omitempty"`
}

type imagesEnvelope struct {
	Images []ImageAttachment `json:"images"`
}

// EncodeContent embeds images after the text as "[IMAGES]{json}".
func EncodeContent(text string, images []ImageAttachment) (string, error) {
	text = strings.TrimSpace(text)
	if len(images) == 0 {
		return text, nil
	}
	data, err := json.Marshal(imagesEnvelope{Images: images})
	if err != nil {
		return "", fmt.Errorf("encode images: %w", err)
	}
	if text == "" {
		return ImagesMarker + string(data), nil
	}
	return text + "\n\n" + ImagesMarker + string(data), nil
}

// DecodeImages splits content into its text and the images after the marker.
// ok is false when there is no marker or its payload is not valid.
func DecodeImages(content string) (text string, images []ImageAttachment, ok bool) {
	idx := strings.Index(content, ImagesMarker)
	if idx < 0 {
		return strings.TrimSpace(content), nil, false
	}
	text = strings.TrimSpace(content[:idx])
	var env imagesEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(content[idx+len(ImagesMarker):])), &env); err != nil {
		return text, nil, false
	}
	return text, env.Images, true
}

type MediaKind string

const (
	MediaText          MediaKind = "text"
	MediaImage         MediaKind = "image"
	MediaAudio         MediaKind = "audio"
	MediaTranscription MediaKind = "transcription"
	MediaAudioError    MediaKind = "audio_error"
	MediaVideo         MediaKind = "video"
	MediaDocument      MediaKind = "document"
)

type ContentView struct {
	Kind   MediaKind         `json:"kind"`
	Text   string            `json:"text"`
	Images []ImageAttachment `json:"images,omitempty"`
}

var (
	tagPattern           = regexp.MustCompile(`</?[^>]+(>|$)`)
	transcriptionPattern = regexp.MustCompile(`(?s)<transcription>(.*?)(</transcription>|$)`)
)

// ClassifyContent decides how a stored message body should be presented.
func ClassifyContent(content string) ContentView {
	if strings.Contains(content, ImagesMarker) {
		text, images, _ := DecodeImages(content)
		return ContentView{Kind: MediaImage, Text: text, Images: images}
	}
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "<audio>") && (strings.Contains(lower, "error") || strings.Contains(lower, "erro")):
		return ContentView{Kind: MediaAudioError, Text: transcription(content)}
	case strings.Contains(lower, "<audio>"):
		return ContentView{Kind: MediaAudio, Text: transcription(content)}
	case strings.Contains(lower, "<transcription>"):
		return ContentView{Kind: MediaTranscription, Text: transcription(content)}
	case strings.Contains(lower, "<video>"):
		return ContentView{Kind: MediaVideo, Text: CleanText(content)}
	case strings.Contains(lower, "<document>"):
		return ContentView{Kind: MediaDocument, Text: CleanText(content)}
	}
	return ContentView{Kind: MediaText, Text: CleanText(content)}
}

// CleanText strips XML-like tags such as <text> and <audio>.
func CleanText(content string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(content, ""))
}

func transcription(content string) string {
	if m := transcriptionPattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(CleanText(m[1]))
	}
	return CleanText(content)
}
