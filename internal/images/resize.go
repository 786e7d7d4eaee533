package images

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

type resizeRequest struct {
	Bucket string      `json:"bucket"`
	Key    string      `json:"key"`
	Edits  resizeEdits `json:"edits"`
}

type resizeEdits struct {
	Resize resizeSpec `json:"resize"`
}

type resizeSpec struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Fit    string `json:"fit"`
}

// ResizedURL builds an image-handler URL that serves key from bucket at width x height.
func ResizedURL(cdnBase, bucket, key string, width, height int) string {
	payload, _ := json.Marshal(resizeRequest{
		Bucket: bucket,
		Key:    key,
		Edits:  resizeEdits{Resize: resizeSpec{Width: width, Height: height, Fit: "cover"}},
	})
	return strings.TrimRight(cdnBase, "/") + "/" + base64.URLEncoding.EncodeToString(payload)
}
