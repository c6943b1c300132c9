package web

import (
	"errors"
	"fmt"

	"github.com/erazemk/najdeno/internal/imaging"
)

// bannerMessages maps ?msg= codes to the banner shown after a redirect.
var bannerMessages = map[string]string{
	"reported": "Item reported.",
	"claimed":  "Item marked as claimed.",
	"restored": "Item restored.",
	"deleted":  "Item deleted.",
}

// errorBanners maps ?msg= codes that render as errors instead of successes.
var errorBanners = map[string]string{
	"notfound": "Item not found.",
}

// pipelineErrorMessage translates a classified pipeline failure into the
// message shown above the redisplayed report form.
func pipelineErrorMessage(err error) string {
	switch {
	case errors.Is(err, imaging.ErrEmptyPayload):
		return "Image file is required."
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return "Unsupported image type. Please upload PNG, JPG, GIF, WEBP, or HEIC."
	case errors.Is(err, imaging.ErrCorruptImage):
		return "Image upload failed. Please choose the photo again."
	case errors.Is(err, imaging.ErrTranscodeFailed):
		return "Unable to process HEIC image. Please choose a JPG or PNG."
	case errors.Is(err, imaging.ErrBudgetExceeded):
		return "Image is too large even after compression. Please upload a smaller image."
	case errors.Is(err, imaging.ErrStorageWrite):
		return "Failed to save image."
	default:
		return "Image upload failed. Please choose the photo again."
	}
}

// uploadTooLargeMessage is shown when the raw request exceeds the upload cap.
func uploadTooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("Image too large. Please keep uploads under %dMB.", maxBytes>>20)
}
