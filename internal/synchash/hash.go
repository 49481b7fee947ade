// Package synchash computes the stable content fingerprint used to detect
// no-op writes before pushing to the ranking backend.
package synchash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/locustsocial/feedsync/internal/imageref"
)

// material is the canonical serialization of the fields that matter
// downstream. Absent fields normalize to "" so two logically identical
// inputs always serialize, and therefore hash, identically.
type material struct {
	Title string        `json:"title"`
	Body  string        `json:"body"`
	Image imageMaterial `json:"image"`
}

type imageMaterial struct {
	Bucket     string `json:"bucket"`
	ObjectPath string `json:"objectPath"`
	HTTPURL    string `json:"httpUrl"`
	Shape      string `json:"shape"`
}

// Compute returns the hex sha256 fingerprint of (title, body, ref).
// It is pure and deterministic; it has no failure modes.
func Compute(title, body string, ref imageref.Ref) string {
	// material contains only strings, so Marshal cannot fail.
	norm, _ := json.Marshal(material{
		Title: title,
		Body:  body,
		Image: imageMaterial{
			Bucket:     ref.Bucket,
			ObjectPath: ref.ObjectPath,
			HTTPURL:    ref.HTTPURL,
			Shape:      string(ref.Shape),
		},
	})

	sum := sha256.Sum256(norm)
	return hex.EncodeToString(sum[:])
}
