package domain

import "time"

// Author is the resolved user sub-record attached to a hydrated post.
type Author struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// Media is a single attachment on a hydrated post.
type Media struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	URL      string `json:"url"`
	ThumbURL string `json:"thumb_url,omitempty"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Post is the fully hydrated feed item handed to clients.
type Post struct {
	ID           string    `json:"id"`
	Author       Author    `json:"author"`
	Title        string    `json:"title"`
	Text         string    `json:"text"`
	Media        []Media   `json:"media"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"created_at"`
	LikeCount    int       `json:"like_count"`
	SaveCount    int       `json:"save_count"`
	CommentCount int       `json:"comment_count"`
}

// FeedPage is one page of ordered feed items. NextCursor is nil at the end
// of the feed.
type FeedPage struct {
	Items      []Post  `json:"items"`
	NextCursor *string `json:"next_cursor"`
}

// RankResponse is the normalized reply from the ranking backend: an ordered
// id list and an opaque cursor ("" means end of feed).
type RankResponse struct {
	PostIDs    []string
	NextCursor string
}
