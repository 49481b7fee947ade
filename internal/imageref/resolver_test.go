package imageref_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/locustsocial/feedsync/internal/imageref"
)

func TestResolve_Shapes(t *testing.T) {
	testCases := []struct {
		name string
		doc  map[string]any
		want imageref.Ref
	}{
		{
			name: "nil document",
			doc:  nil,
			want: imageref.Ref{},
		},
		{
			name: "no reference fields",
			doc:  map[string]any{"title": "hello"},
			want: imageref.Ref{},
		},
		{
			name: "storage rest url",
			doc: map[string]any{
				"imageUrl": "https://firebasestorage.googleapis.com/v0/b/app.appspot.com/o/posts%2Fabc.jpg?alt=media&token=x",
			},
			want: imageref.Ref{
				Bucket:     "app.appspot.com",
				ObjectPath: "posts/abc.jpg",
				HTTPURL:    "https://firebasestorage.googleapis.com/v0/b/app.appspot.com/o/posts%2Fabc.jpg?alt=media&token=x",
				Shape:      imageref.ShapeRest,
			},
		},
		{
			name: "plain http url",
			doc:  map[string]any{"photoURL": "https://cdn.example.com/img/1.png"},
			want: imageref.Ref{
				HTTPURL: "https://cdn.example.com/img/1.png",
				Shape:   imageref.ShapeHTTP,
			},
		},
		{
			name: "gs url",
			doc:  map[string]any{"storageRef": "gs://app.appspot.com/posts/abc.jpg"},
			want: imageref.Ref{
				Bucket:     "app.appspot.com",
				ObjectPath: "posts/abc.jpg",
				Shape:      imageref.ShapeGs,
			},
		},
		{
			name: "bare path with document bucket",
			doc: map[string]any{
				"imagePath": "posts/abc.jpg",
				"bucket":    "custom-bucket",
			},
			want: imageref.Ref{
				Bucket:     "custom-bucket",
				ObjectPath: "posts/abc.jpg",
				Shape:      imageref.ShapePath,
			},
		},
		{
			name: "bare path without bucket",
			doc:  map[string]any{"storagePath": "posts/abc.jpg"},
			want: imageref.Ref{
				ObjectPath: "posts/abc.jpg",
				Shape:      imageref.ShapePath,
			},
		},
		{
			name: "nested image object",
			doc: map[string]any{
				"image": map[string]any{"url": "https://cdn.example.com/a.jpg"},
			},
			want: imageref.Ref{
				HTTPURL: "https://cdn.example.com/a.jpg",
				Shape:   imageref.ShapeHTTP,
			},
		},
		{
			name: "first element of media array",
			doc: map[string]any{
				"media": []any{
					map[string]any{"url": "https://cdn.example.com/m0.jpg"},
					map[string]any{"url": "https://cdn.example.com/m1.jpg"},
				},
			},
			want: imageref.Ref{
				HTTPURL: "https://cdn.example.com/m0.jpg",
				Shape:   imageref.ShapeHTTP,
			},
		},
		{
			name: "string array of urls",
			doc: map[string]any{
				"imageUrls": []any{"https://cdn.example.com/u0.jpg"},
			},
			want: imageref.Ref{
				HTTPURL: "https://cdn.example.com/u0.jpg",
				Shape:   imageref.ShapeHTTP,
			},
		},
		{
			name: "malformed gs url falls through to path",
			doc:  map[string]any{"imagePath": "gs://bucketonly"},
			want: imageref.Ref{
				ObjectPath: "gs://bucketonly",
				Shape:      imageref.ShapePath,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, imageref.Resolve(tc.doc))
		})
	}
}

func TestResolve_PriorityOrder(t *testing.T) {
	// Top-level url fields win over nested and array shapes.
	doc := map[string]any{
		"imageUrl": "https://cdn.example.com/top.jpg",
		"image":    map[string]any{"url": "https://cdn.example.com/nested.jpg"},
		"media":    []any{map[string]any{"url": "https://cdn.example.com/media.jpg"}},
	}

	got := imageref.Resolve(doc)
	assert.Equal(t, "https://cdn.example.com/top.jpg", got.HTTPURL)
}

func TestRef_IsEmpty(t *testing.T) {
	assert.True(t, imageref.Ref{}.IsEmpty())
	assert.False(t, imageref.Ref{ObjectPath: "p", Shape: imageref.ShapePath}.IsEmpty())
}
