package yugwan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"

	"github.com/joonyo2/yugwan/internal/transport"
	"github.com/pkg/errors"
)

// Request describes one API call
type Request struct {
	// Method is GET, POST, PUT, PATCH or DELETE. Empty means GET.
	Method string

	// Path is relative to the base URL, e.g. "/archive/notices/"
	Path string

	// Query is appended to Path
	Query url.Values

	// Body is encoded as JSON. Mutually exclusive with Form.
	Body interface{}

	// Form is sent as multipart/form-data
	Form *Form

	// Header is merged over the default headers on every dispatch
	Header map[string]string

	// Anonymous sends the request without credentials and skips session
	// renewal on 401
	Anonymous bool
}

// Form is a multipart payload
type Form struct {
	Fields url.Values
	Files  []FormFile
}

// FormFile is one file part of a Form
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     io.Reader
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// encode produces the immutable wire form. It is called once per Do so the
// retry after a refresh replays the same bytes.
func (r *Request) encode() (*transport.Request, error) {
	if r == nil {
		return nil, invalidRequest("request is nil")
	}

	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !allowedMethods[method] {
		return nil, invalidRequest(fmt.Sprintf("unsupported method %q", r.Method))
	}

	if r.Body != nil && r.Form != nil {
		return nil, invalidRequest("body and form are mutually exclusive")
	}

	out := &transport.Request{
		Method: method,
		Path:   r.path(),
	}

	if len(r.Header) > 0 {
		out.Header = make(map[string]string, len(r.Header))
		for k, v := range r.Header {
			out.Header[k] = v
		}
	}

	switch {
	case r.Form != nil:
		body, contentType, err := r.Form.encode()
		if err != nil {
			return nil, invalidRequestCause("failed to encode form", err)
		}
		out.Body = body
		out.ContentType = contentType
	case r.Body != nil:
		body, err := json.Marshal(r.Body)
		if err != nil {
			return nil, invalidRequestCause("failed to encode body", err)
		}
		out.Body = body
	}

	return out, nil
}

func (r *Request) path() string {
	path := r.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(r.Query) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + r.Query.Encode()
}

// encode writes fields in key order followed by files
func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range f.Fields[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", errors.Wrapf(err, "failed to write field %s", k)
			}
		}
	}

	for _, file := range f.Files {
		if file.Field == "" {
			return nil, "", errors.New("form file without field name")
		}
		if file.Content == nil {
			return nil, "", errors.Errorf("form file %s has no content", file.Field)
		}

		part, err := w.CreatePart(filePartHeader(file))
		if err != nil {
			return nil, "", errors.Wrapf(err, "failed to create part %s", file.Field)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", errors.Wrapf(err, "failed to read file %s", file.Field)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "failed to close multipart writer")
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(file FormFile) textproto.MIMEHeader {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := file.Filename
	if filename == "" {
		filename = file.Field
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.Field), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return h
}
