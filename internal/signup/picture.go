package signup

import (
	"fmt"
	"io"
	"mime"
	"path"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gosimple/slug"
)

// DefaultMaxPictureBytes is the profile picture limit, 5 MiB.
const DefaultMaxPictureBytes int64 = 5 * 1024 * 1024

var allowedPictureTypes = []string{"image/jpeg", "image/png"}

// PictureUpload is a single selected file as received from the browser.
// Size is zero when the client did not declare one.
type PictureUpload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// IntakeProfilePicture checks size first, then type, and returns the staged
// picture. Nothing is returned on failure so the caller's draft is untouched.
func IntakeProfilePicture(up PictureUpload, limit int64) (*ProfilePicture, error) {
	if limit <= 0 {
		limit = DefaultMaxPictureBytes
	}
	if up.Size > limit {
		return nil, &PictureTooLargeError{Size: up.Size, Limit: limit}
	}

	declared := normalizeContentType(up.ContentType)
	if declared != "" && !isAllowedPictureType(declared) {
		return nil, fmt.Errorf("%w: %s", ErrPictureUnsupportedType, declared)
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read profile picture: %w", err)
	}
	if int64(len(data)) > limit {
		// Drain the rest so the error reports the real size.
		rest, _ := io.Copy(io.Discard, up.Body)
		return nil, &PictureTooLargeError{Size: int64(len(data)) + rest, Limit: limit}
	}

	// The declared type comes from the client, the bytes must agree with it.
	detected := mimetype.Detect(data)
	if !isAllowedPictureType(detected.String()) {
		return nil, fmt.Errorf("%w: content is %s", ErrPictureUnsupportedType, detected.String())
	}
	if declared != "" && !detected.Is(declared) {
		return nil, fmt.Errorf("%w: declared %s but content is %s", ErrPictureUnsupportedType, declared, detected.String())
	}

	return &ProfilePicture{
		Name:        up.Name,
		ContentType: detected.String(),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

func normalizeContentType(contentType string) string {
	if contentType == "" || contentType == "application/octet-stream" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func isAllowedPictureType(contentType string) bool {
	return slices.Contains(allowedPictureTypes, contentType)
}

// AttachmentFileName turns a client supplied file name into a safe slug with
// an extension matching the sniffed content type.
func AttachmentFileName(name, contentType string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	safe := slug.Make(base)
	if safe == "" {
		safe = "profile-picture"
	}
	if m := mimetype.Lookup(contentType); m != nil {
		return safe + m.Extension()
	}
	return safe
}
