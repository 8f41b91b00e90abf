package entity

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"LeadDesk/internal/lib/validate"
)

const MaxImages = 5

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type OutboundImage struct {
	// FileName is optional; staged images without one get a generated name.
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	// Data is base64, with or without a data URL prefix.
	Data string `json:"data" validate:"required"`
}

// Outbound is a reply composed by an agent for one conversation.
type Outbound struct {
	SessionID string          `json:"-"`
	Text      string          `json:"text" validate:"max=4096"`
	Images    []OutboundImage `json:"images" validate:"dive"`
	Sender    string          `json:"sender"`
	TempID    string          `json:"temp_id"`
	// Warnings lists attachments left out because they are not images.
	Warnings []string `json:"-"`
}

// Bind stages the attached images the way the compose box does: files that
// are not images are dropped with a warning, more than MaxImages is an error.
// Field rules are checked on what remains after staging.
func (o *Outbound) Bind(_ *http.Request) error {
	o.Text = strings.TrimSpace(o.Text)
	var selection ImageSelection
	warnings, err := selection.Add(o.Images...)
	if err != nil {
		return err
	}
	o.Images = selection.Images()
	o.Warnings = warnings
	if err := validate.Struct(o); err != nil {
		return err
	}
	return o.Validate()
}

// Validate applies the send rules that need no network: something to send,
// at most MaxImages images, each a supported image type with a payload.
func (o *Outbound) Validate() error {
	if strings.TrimSpace(o.Text) == "" && len(o.Images) == 0 {
		return ErrEmptyMessage
	}
	if len(o.Images) > MaxImages {
		return fmt.Errorf("%w: %d of %d", ErrTooManyImages, len(o.Images), MaxImages)
	}
	for i := range o.Images {
		if err := o.Images[i].Normalize(); err != nil {
			return err
		}
	}
	return nil
}

func (o *Outbound) HasImages() bool {
	return len(o.Images) > 0
}

// Attachments converts images to the form embedded in the stored message.
func (o *Outbound) Attachments() []ImageAttachment {
	attachments := make([]ImageAttachment, 0, len(o.Images))
	for _, img := range o.Images {
		attachments = append(attachments, ImageAttachment{
			Base64:   img.Data,
			FileName: img.FileName,
			MimeType: img.MimeType,
			Caption:  strings.TrimSpace(o.Text),
		})
	}
	return attachments
}

// Normalize strips a data URL prefix, fills a missing MIME type from the
// payload signature and checks the result.
func (img *OutboundImage) Normalize() error {
	img.detectType()
	if err := CheckImageType(img.FileName, img.MimeType); err != nil {
		return err
	}
	if _, err := base64.StdEncoding.DecodeString(img.Data); err != nil {
		return fmt.Errorf("%w: %s: invalid base64 payload", ErrUnsupportedImage, img.FileName)
	}
	return nil
}

// Decode returns the raw image bytes of a normalized image.
func (img *OutboundImage) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(img.Data)
}

func (img *OutboundImage) detectType() {
	if idx := strings.Index(img.Data, ","); strings.HasPrefix(img.Data, "data:") && idx > 0 {
		if img.MimeType == "" {
			img.MimeType = strings.TrimSuffix(strings.TrimPrefix(img.Data[:idx], "data:"), ";base64")
		}
		img.Data = img.Data[idx+1:]
	}
	if img.MimeType == "" {
		img.MimeType = MimeTypeFromBase64(img.Data)
	}
	img.MimeType = strings.ToLower(img.MimeType)
}

func CheckImageType(fileName, mimeType string) error {
	if !strings.HasPrefix(mimeType, "image/") {
		return fmt.Errorf("%w: %s (%s)", ErrNotAnImage, fileName, mimeType)
	}
	if !allowedImageTypes[mimeType] {
		return fmt.Errorf("%w: %s (%s)", ErrUnsupportedImage, fileName, mimeType)
	}
	return nil
}

// MimeTypeFromBase64 recognises common image signatures.
func MimeTypeFromBase64(data string) string {
	switch {
	case strings.HasPrefix(data, "/9j/"):
		return "image/jpeg"
	case strings.HasPrefix(data, "iVBORw0KGgo"):
		return "image/png"
	case strings.HasPrefix(data, "R0lGODlh"):
		return "image/gif"
	case strings.HasPrefix(data, "UklGR"):
		return "image/webp"
	}
	return ""
}

// ImageSelection is the set of images staged for one reply.
type ImageSelection struct {
	images []OutboundImage
}

// Add stages candidates. Files that are not supported images are left out and
// reported as warnings; if the remaining images would exceed MaxImages the
// whole batch is rejected and the selection stays as it was.
func (s *ImageSelection) Add(candidates ...OutboundImage) (warnings []string, err error) {
	accepted := make([]OutboundImage, 0, len(candidates))
	for _, c := range candidates {
		c.detectType()
		name := c.FileName
		if name == "" {
			name = "attachment"
		}
		if typeErr := CheckImageType(name, c.MimeType); typeErr != nil {
			warnings = append(warnings, typeErr.Error())
			continue
		}
		if c.FileName == "" {
			c.FileName = fmt.Sprintf("image-%d.%s", len(s.images)+len(accepted)+1, imageExt(c.MimeType))
		}
		accepted = append(accepted, c)
	}
	if len(s.images)+len(accepted) > MaxImages {
		return warnings, fmt.Errorf("%w: at most %d per message", ErrTooManyImages, MaxImages)
	}
	s.images = append(s.images, accepted...)
	return warnings, nil
}

func imageExt(mimeType string) string {
	if mimeType == "image/jpeg" || mimeType == "image/jpg" {
		return "jpg"
	}
	return strings.TrimPrefix(mimeType, "image/")
}

func (s *ImageSelection) Remove(index int) {
	if index < 0 || index >= len(s.images) {
		return
	}
	s.images = append(s.images[:index], s.images[index+1:]...)
}

func (s *ImageSelection) Images() []OutboundImage {
	return append([]OutboundImage(nil), s.images...)
}

func (s *ImageSelection) Len() int {
	return len(s.images)
}
