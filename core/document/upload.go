package document

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/erasmushub/erasmushub/core"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Upload is a file received for a checklist key.
type Upload struct {
	Key      string
	Label    string
	Filename string // original name, as sent by the client
	Content  []byte
}

// UploadPolicy restricts what may be stored.
type UploadPolicy struct {
	MaxSize           int64
	AllowedExtensions []string
}

func NewUploadPolicy(conf core.UploadsConfig) UploadPolicy {
	return UploadPolicy{MaxSize: conf.MaxSize, AllowedExtensions: conf.AllowedExtensions}
}

func (p UploadPolicy) allowed(ext string) bool {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return false
	}
	for _, a := range p.AllowedExtensions {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

// Validate checks size, extension and sniffed content type of up.
func (p UploadPolicy) Validate(up Upload) error {
	field := "doc_" + up.Key
	if core.CleanString(up.Key) == "" {
		return core.NewFieldError("key", "document key is required")
	}
	if len(up.Content) == 0 {
		return core.NewFieldError(field, "file is empty")
	}
	if p.MaxSize > 0 && int64(len(up.Content)) > p.MaxSize {
		return core.NewFieldError(field, fmt.Sprintf("file exceeds the maximum size of %d bytes", p.MaxSize))
	}
	if !p.allowed(filepath.Ext(up.Filename)) {
		return core.NewFieldError(field, "file type not allowed; allowed: "+strings.Join(p.AllowedExtensions, ", "))
	}
	// the sniffed type must be allowed too: renaming a file is not enough
	mtype := mimetype.Detect(up.Content)
	if !p.allowedMIME(mtype) {
		return core.NewFieldError(field, fmt.Sprintf("file content (%s) does not match an allowed type", mtype.String()))
	}
	return nil
}

func (p UploadPolicy) allowedMIME(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if p.allowed(m.Extension()) {
			return true
		}
	}
	return false
}

// SecureFilename reduces name to a safe base name made of ASCII letters, digits, '_', '.' and '-'.
func SecureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// StoredName builds a collision-free storage name: YYYYMMDD_HHMMSS_<8 hex>_<secure name>.
func StoredName(original string, now time.Time) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", now.UTC().Format("20060102_150405"), id, SecureFilename(original))
}
