package content

// DeriveStatus computes the status implied by which halves of the record are
// present. It is a pure function of presence: neither half is pending, one
// half is the matching in-flight state, both halves are completed.
func DeriveStatus(hasMetadata, hasBody bool) Status {
	switch {
	case hasMetadata && hasBody:
		return StatusCompleted
	case hasMetadata:
		return StatusExtracting
	case hasBody:
		return StatusConverting
	default:
		return StatusPending
	}
}

// NextStatus advances current toward derived under the monotonic lattice:
// terminal states are sticky, everything else moves to the derived status.
// Concurrent merge writers both funnel through this, so write ordering
// between the two stages cannot regress a record.
func NextStatus(current, derived Status) Status {
	if current.Terminal() {
		return current
	}
	return derived
}

// MergeArticleMetadata shallow-merges src into dst: non-empty incoming fields
// overwrite, existing fields are preserved otherwise. Either side may be nil.
func MergeArticleMetadata(dst, src *ArticleMetadata) *ArticleMetadata {
	if src == nil {
		return dst
	}
	if dst == nil {
		merged := *src
		return &merged
	}
	merged := *dst
	setNonEmpty(&merged.Title, src.Title)
	setNonEmpty(&merged.Summary, src.Summary)
	setNonEmpty(&merged.Author, src.Author)
	setNonEmpty(&merged.PublishDate, src.PublishDate)
	setNonEmpty(&merged.Description, src.Description)
	setNonEmpty(&merged.Favicon, src.Favicon)
	setNonEmpty(&merged.CoverImage, src.CoverImage)
	return &merged
}

// MergeVideoMetadata is the video analogue of MergeArticleMetadata.
func MergeVideoMetadata(dst, src *VideoMetadata) *VideoMetadata {
	if src == nil {
		return dst
	}
	if dst == nil {
		merged := *src
		return &merged
	}
	merged := *dst
	setNonEmpty(&merged.Title, src.Title)
	setNonEmpty(&merged.Thumbnail, src.Thumbnail)
	setNonEmpty(&merged.Favicon, src.Favicon)
	setNonEmpty(&merged.PublishDate, src.PublishDate)
	setNonEmpty(&merged.ChannelName, src.ChannelName)
	setNonEmpty(&merged.ChannelURL, src.ChannelURL)
	if src.DurationSeconds != 0 {
		merged.DurationSeconds = src.DurationSeconds
	}
	return &merged
}

func setNonEmpty(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}
