package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrNoURL means the CDN accepted the upload but returned no secure_url.
var ErrNoURL = errors.New("upload response has no secure_url")

// UploadError reports a non-success status from the CDN.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("cdn upload failed: status %d", e.StatusCode)
}

// Uploader stores a media file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, filename, mimeType string) (string, error)
}

// CloudUploader performs unsigned multipart uploads to a Cloudinary style
// endpoint at {BaseURL}/v1_1/{CloudName}/auto/upload.
type CloudUploader struct {
	BaseURL   string
	CloudName string
	Preset    string
	Folder    string
	client    *http.Client
}

func NewCloudUploader(baseURL, cloudName, preset string, client *http.Client) *CloudUploader {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &CloudUploader{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		CloudName: cloudName,
		Preset:    preset,
		client:    client,
	}
}

// WithFolder returns a copy that uploads into folder.
func (u *CloudUploader) WithFolder(folder string) *CloudUploader {
	cp := *u
	cp.Folder = folder
	return &cp
}

func (u *CloudUploader) endpoint() string {
	return fmt.Sprintf("%s/v1_1/%s/auto/upload", u.BaseURL, u.CloudName)
}

// Upload streams r as the file part of a multipart form. The body is
// produced through a pipe so the file is never held in memory.
func (u *CloudUploader) Upload(ctx context.Context, r io.Reader, filename, mimeType string) (string, error) {
	if filename == "" {
		filename = "upload"
	}
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(u.writeForm(form, r, filename, mimeType))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint(), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UploadError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	secureURL := gjson.GetBytes(body, "secure_url").String()
	if secureURL == "" {
		return "", ErrNoURL
	}
	return secureURL, nil
}

func (u *CloudUploader) writeForm(form *multipart.Writer, r io.Reader, filename, mimeType string) error {
	if err := form.WriteField("upload_preset", u.Preset); err != nil {
		return err
	}
	if u.Folder != "" {
		if err := form.WriteField("folder", u.Folder); err != nil {
			return err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return form.Close()
}
