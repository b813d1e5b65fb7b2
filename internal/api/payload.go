package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// File is a binary upload: an image for a product, a profile photo, or the
// source picture for a poster.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Field struct {
	Name  string
	Value string
}

// FilePart is a file bound to a form field name. Several parts may share
// a name (e.g. "images").
type FilePart struct {
	Field string
	File  *File
}

// Payload is a request body: either JSONPayload or *MultipartPayload.
type Payload interface {
	encode() (io.Reader, string, error)
}

type JSONPayload struct {
	Body any
}

func (p JSONPayload) encode() (io.Reader, string, error) {
	buf, err := json.Marshal(p.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode JSON body: %w", err)
	}
	return bytes.NewReader(buf), "application/json", nil
}

type MultipartPayload struct {
	Fields []Field
	Files  []FilePart
}

func (p *MultipartPayload) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, fp := range p.Files {
		if err := writeFilePart(w, fp); err != nil {
			return nil, "", err
		}
	}
	for _, f := range p.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(w *multipart.Writer, fp FilePart) error {
	name := fp.File.Name
	if name == "" {
		name = "blob"
	}
	contentType := fp.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(fp.Field), quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create part %s: %w", fp.Field, err)
	}
	if _, err := part.Write(fp.File.Data); err != nil {
		return fmt.Errorf("failed to write part %s: %w", fp.Field, err)
	}
	return nil
}

// Classify picks the encoding for a request: multipart as soon as one file
// part is present, JSON otherwise. fields are the multipart rendition of the
// scalar arguments; jsonBody is the JSON rendition of the same arguments.
func Classify(jsonBody any, fields []Field, files []FilePart) Payload {
	present := make([]FilePart, 0, len(files))
	for _, fp := range files {
		if fp.File != nil {
			present = append(present, fp)
		}
	}
	if len(present) == 0 {
		return JSONPayload{Body: jsonBody}
	}
	return &MultipartPayload{Fields: fields, Files: present}
}

// IsMultipart reports which branch Classify took.
func IsMultipart(p Payload) bool {
	_, ok := p.(*MultipartPayload)
	return ok
}
