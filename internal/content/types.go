package content

import "time"

// Kind discriminates the two record shapes sharing the contents table.
type Kind string

// Record kinds.
const (
	KindArticle Kind = "article"
	KindVideo   Kind = "video"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindArticle, KindVideo:
		return true
	default:
		return false
	}
}

// Status represents the ingestion lifecycle state of a record.
type Status string

// Ingestion status values persisted with each record.
const (
	StatusPending    Status = "pending"
	StatusExtracting Status = "extracting"
	StatusConverting Status = "converting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is sticky: once a record reaches a
// terminal status, later merges never move it back.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ArticleMetadata holds the extracted header fields for an article.
type ArticleMetadata struct {
	Title       string `json:"title"`
	Summary     string `json:"summary,omitempty"`
	Author      string `json:"author,omitempty"`
	PublishDate string `json:"publish_date,omitempty"`
	Description string `json:"description,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	CoverImage  string `json:"cover_image,omitempty"`
}

// VideoMetadata holds the extracted header fields for a video.
type VideoMetadata struct {
	Title           string `json:"title"`
	Thumbnail       string `json:"thumbnail,omitempty"`
	Favicon         string `json:"favicon,omitempty"`
	PublishDate     string `json:"publish_date,omitempty"`
	ChannelName     string `json:"channel_name,omitempty"`
	ChannelURL      string `json:"channel_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// Record is the unit of ingestion: one row per canonical URL. Exactly one of
// Article/Video is populated once metadata lands, selected by Kind; Body holds
// markdown for articles and the cleaned transcript for videos.
type Record struct {
	URL       string           `json:"url"`
	Kind      Kind             `json:"kind"`
	Status    Status           `json:"status"`
	Article   *ArticleMetadata `json:"article_metadata,omitempty"`
	Video     *VideoMetadata   `json:"video_metadata,omitempty"`
	Body      string           `json:"body,omitempty"`
	Summary   string           `json:"summary,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// HasMetadata reports whether the metadata half of the record has landed.
func (r Record) HasMetadata() bool {
	switch r.Kind {
	case KindArticle:
		return r.Article != nil
	case KindVideo:
		return r.Video != nil
	default:
		return false
	}
}

// HasBody reports whether the body half of the record has landed.
func (r Record) HasBody() bool {
	return r.Body != ""
}

// Clone returns a deep copy so store reads never alias internal state.
func (r Record) Clone() Record {
	cp := r
	if r.Article != nil {
		meta := *r.Article
		cp.Article = &meta
	}
	if r.Video != nil {
		meta := *r.Video
		cp.Video = &meta
	}
	return cp
}

// Event is published when a record reaches a terminal status.
type Event struct {
	URL    string `json:"url"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
}
