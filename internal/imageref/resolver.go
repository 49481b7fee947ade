// Package imageref locates a usable attachment reference inside a
// loosely-typed content document. App versions have written the reference
// under many different field names and shapes, so resolution tries a fixed
// priority list of extractors and classifies the first hit.
package imageref

import (
	"net/url"
	"regexp"
	"strings"
)

// Shape classifies how a reference was written.
type Shape string

const (
	// ShapeEmpty means no attachment reference was found.
	ShapeEmpty Shape = ""
	// ShapeRest is a storage REST download URL parsed into bucket+path.
	ShapeRest Shape = "rest"
	// ShapeGs is a gs://bucket/path reference.
	ShapeGs Shape = "gs"
	// ShapePath is a bare object path, bucket supplied separately or defaulted.
	ShapePath Shape = "path"
	// ShapeHTTP is an opaque http(s) URL with no bucket semantics.
	ShapeHTTP Shape = "http"
)

// Ref is a resolved attachment reference. Zero value means no attachment.
type Ref struct {
	Bucket     string
	ObjectPath string
	HTTPURL    string
	Shape      Shape
}

// IsEmpty reports whether no attachment reference was resolved.
func (r Ref) IsEmpty() bool {
	return r.Shape == ShapeEmpty
}

// restURLPattern matches storage REST download URLs of the form
// .../b/<bucket>/o/<encodedPath>?token=... and captures bucket and path.
var restURLPattern = regexp.MustCompile(`/b/([^/]+)/o/([^?]+)(?:\?|$)`)

// extractor pulls one candidate string out of a raw document.
type extractor func(doc map[string]any) string

// candidateExtractors is the priority order in which reference fields are
// tried. First non-empty candidate wins.
var candidateExtractors = []extractor{
	field("imageUrl"),
	field("imageURL"),
	field("photoURL"),
	field("downloadURL"),
	field("storageURL"),

	field("imagePath"),
	field("storagePath"),
	field("storageRef"),
	field("objectPath"),

	nested("image", "url"),
	nested("image", "downloadURL"),
	nested("image", "path"),
	nested("image", "objectPath"),

	firstElem("images", "url"),
	firstElem("images", "downloadURL"),
	firstElem("images", "path"),
	firstString("imageUrls"),
	firstElem("photos", "url"),

	firstElem("media", "url"),
	firstElem("media", "downloadURL"),
	firstElem("media", "thumbURL"),
	firstElem("media", "path"),
}

// Resolve finds and classifies the attachment reference in doc. It never
// fails; when no candidate field is present the empty Ref is returned and
// the caller treats the record as having no attachment.
func Resolve(doc map[string]any) Ref {
	if doc == nil {
		return Ref{}
	}

	var raw string
	for _, extract := range candidateExtractors {
		if raw = extract(doc); raw != "" {
			break
		}
	}
	if raw == "" {
		return Ref{}
	}

	if isHTTPURL(raw) {
		if m := restURLPattern.FindStringSubmatch(raw); m != nil {
			bucket, bErr := url.PathUnescape(m[1])
			objectPath, pErr := url.PathUnescape(m[2])
			if bErr == nil && pErr == nil {
				return Ref{Bucket: bucket, ObjectPath: objectPath, HTTPURL: raw, Shape: ShapeRest}
			}
		}
		return Ref{HTTPURL: raw, Shape: ShapeHTTP}
	}

	if bucket, objectPath, ok := splitGsURL(raw); ok {
		return Ref{Bucket: bucket, ObjectPath: objectPath, Shape: ShapeGs}
	}

	// Bare object path; bucket comes from the document or the default.
	bucket, _ := doc["bucket"].(string)
	return Ref{Bucket: bucket, ObjectPath: raw, Shape: ShapePath}
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func splitGsURL(s string) (bucket, objectPath string, ok bool) {
	rest, found := strings.CutPrefix(s, "gs://")
	if !found {
		return "", "", false
	}
	bucket, objectPath, found = strings.Cut(rest, "/")
	if !found || bucket == "" || objectPath == "" {
		return "", "", false
	}
	return bucket, objectPath, true
}

func field(key string) extractor {
	return func(doc map[string]any) string {
		s, _ := doc[key].(string)
		return s
	}
}

func nested(key, sub string) extractor {
	return func(doc map[string]any) string {
		inner, _ := doc[key].(map[string]any)
		if inner == nil {
			return ""
		}
		s, _ := inner[sub].(string)
		return s
	}
}

func firstElem(key, sub string) extractor {
	return func(doc map[string]any) string {
		arr, _ := doc[key].([]any)
		if len(arr) == 0 {
			return ""
		}
		inner, _ := arr[0].(map[string]any)
		if inner == nil {
			return ""
		}
		s, _ := inner[sub].(string)
		return s
	}
}

func firstString(key string) extractor {
	return func(doc map[string]any) string {
		arr, _ := doc[key].([]any)
		if len(arr) == 0 {
			return ""
		}
		s, _ := arr[0].(string)
		return s
	}
}
