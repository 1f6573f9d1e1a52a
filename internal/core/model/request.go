package model

import "strings"

// VerificationRequest is the inbound body of POST /validate.
// Each uploaded image is given either as a storage key or as inline base64.
type VerificationRequest struct {
	ProductID                string `json:"product_id"`
	ProductCategory          string `json:"product_category"`
	UploadedLabelImageKey    string `json:"uploaded_label_image_key,omitempty"`
	UploadedOverviewImageKey string `json:"uploaded_overview_image_key,omitempty"`
	LabelImage               string `json:"labelImage,omitempty"`
	OverviewImage            string `json:"overviewImage,omitempty"`
	IdempotencyKey           string `json:"idempotency_key,omitempty"`
}

// MissingField returns the name of the first required field that is absent,
// or "" when the request is complete.
func (r VerificationRequest) MissingField() string {
	switch {
	case strings.TrimSpace(r.ProductID) == "":
		return "product_id"
	case strings.TrimSpace(r.ProductCategory) == "":
		return "product_category"
	case r.UploadedLabelImageKey == "" && r.LabelImage == "":
		return "uploaded_label_image_key"
	case r.UploadedOverviewImageKey == "" && r.OverviewImage == "":
		return "uploaded_overview_image_key"
	}
	return ""
}

// DefaultMediaType is used when an image type cannot be determined.
const DefaultMediaType = "image/jpeg"

// Image is one resolved image payload.
type Image struct {
	Key       string
	MediaType string
	Data      []byte
}

// ReferenceImageSet holds the reference images chosen for one request,
// most recently modified first.
type ReferenceImageSet struct {
	Label    []Image
	Overview []Image
}

// Keys returns every reference key, label references first.
func (s ReferenceImageSet) Keys() []string {
	keys := make([]string, 0, len(s.Label)+len(s.Overview))
	for _, img := range s.Label {
		keys = append(keys, img.Key)
	}
	for _, img := range s.Overview {
		keys = append(keys, img.Key)
	}
	return keys
}

// Subject is the resolved input to prompt composition.
type Subject struct {
	ProductID     string
	Category      string
	LabelImage    Image
	OverviewImage Image
}
