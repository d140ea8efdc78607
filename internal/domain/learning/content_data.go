package learning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentVideo ContentType = "video"
	ContentImage ContentType = "image"
	ContentPdf   ContentType = "pdf"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentText, ContentVideo, ContentImage, ContentPdf:
		return true
	}
	return false
}

// ContentData is the per-type payload of a content item.
type ContentData interface {
	Type() ContentType
	fieldErrors() FieldErrors
}

type TextContent struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
}

type VideoContent struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type ImageContent struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type PdfContent struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

func (TextContent) Type() ContentType  { return ContentText }
func (VideoContent) Type() ContentType { return ContentVideo }
func (ImageContent) Type() ContentType { return ContentImage }
func (PdfContent) Type() ContentType   { return ContentPdf }

func (c TextContent) fieldErrors() FieldErrors  { return requireField("text", c.Text) }
func (c VideoContent) fieldErrors() FieldErrors { return requireField("url", c.URL) }
func (c ImageContent) fieldErrors() FieldErrors { return requireField("url", c.URL) }
func (c PdfContent) fieldErrors() FieldErrors   { return requireField("url", c.URL) }

func requireField(name, value string) FieldErrors {
	if strings.TrimSpace(value) == "" {
		return FieldErrors{"content_data." + name: "required"}
	}
	return nil
}

// MediaURL returns the url of video/image/pdf content and false for text.
func MediaURL(d ContentData) (string, bool) {
	switch v := d.(type) {
	case VideoContent:
		return v.URL, true
	case ImageContent:
		return v.URL, true
	case PdfContent:
		return v.URL, true
	}
	return "", false
}

// WithMediaURL returns a copy of d with its url replaced. Text content is returned unchanged.
func WithMediaURL(d ContentData, url string) ContentData {
	switch v := d.(type) {
	case VideoContent:
		v.URL = url
		return v
	case ImageContent:
		v.URL = url
		return v
	case PdfContent:
		v.URL = url
		return v
	}
	return d
}

// FieldErrors maps a field path to a short reason.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// DecodeContentData parses raw JSON into the variant selected by contentType.
// Unknown types, unknown fields and missing required fields are FieldErrors.
func DecodeContentData(contentType ContentType, raw []byte) (ContentData, error) {
	var target ContentData
	switch contentType {
	case ContentText:
		target = &TextContent{}
	case ContentVideo:
		target = &VideoContent{}
	case ContentImage:
		target = &ImageContent{}
	case ContentPdf:
		target = &PdfContent{}
	default:
		return nil, FieldErrors{"content_type": fmt.Sprintf("unsupported content type %q", string(contentType))}
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, FieldErrors{"content_data": "required"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, FieldErrors{"content_data": fmt.Sprintf("does not match %s: %v", contentType, err)}
	}

	var data ContentData
	switch v := target.(type) {
	case *TextContent:
		data = *v
	case *VideoContent:
		data = *v
	case *ImageContent:
		data = *v
	case *PdfContent:
		data = *v
	}
	if fe := data.fieldErrors(); len(fe) > 0 {
		return nil, fe
	}
	return data, nil
}

// EncodeContentData validates d and returns its canonical JSON.
func EncodeContentData(d ContentData) ([]byte, error) {
	if d == nil {
		return nil, FieldErrors{"content_data": "required"}
	}
	if fe := d.fieldErrors(); len(fe) > 0 {
		return nil, fe
	}
	return json.Marshal(d)
}
