package entity

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ImageExtension returns the lower-cased extension of an accepted image file name
func ImageExtension(fileName string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	switch ext {
	case "jpg", "jpeg", "png", "gif":
		return ext, nil
	}
	return "", Validation("unsupported_file_type", "file %q must be one of jpg, jpeg, png, gif", fileName)
}

// AttachmentKey builds a collision-free storage key for a reimbursement attachment
func AttachmentKey(reimbursementID int64, prefix, fileName string) (string, error) {
	ext, err := ImageExtension(fileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("reimbursements/%d/%s_%s.%s", reimbursementID, prefix, strings.ReplaceAll(uuid.NewString(), "-", ""), ext), nil
}
