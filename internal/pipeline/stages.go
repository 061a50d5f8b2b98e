package pipeline

import (
	"context"
	"fmt"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
	"github.com/C41M50N/readr-convex-hackathon/internal/telemetry"
)

// Models used by the extraction stages.
const (
	modelMarkdown   = "gpt-4.1-mini-2025-04-14"
	modelExtract    = "gpt-4.1-nano-2025-04-14"
	modelTranscript = "gemini-2.5-flash-lite-preview-06-17"
)

const (
	articleMetaSystemPrompt = "You are an expert at extracting metadata from articles. When extracting dates, convert them to YYYY-MM-DD format."
	markdownSystemPrompt    = "You are an expert at converting HTML content to clean, well-formatted Markdown. Remove any unnecessary elements such as ads, navigation bars, and footers. Focus on the main content of the article."
	videoExtractSystemPrompt = "You are an expert at extracting video details from page metadata. Respond with JSON containing channel_name, channel_url, and duration (the video length in seconds)."
	transcriptSystemPrompt   = "You are a helpful assistant that improves video transcripts by fixing grammar, punctuation, and formatting. Return the improved transcript in markdown format."
	summarySystemPrompt      = "You are a helpful assistant that summarizes video transcripts into concise summaries."
)

// articleMetadataTask extracts the hard metadata (title, author, publish
// date, description) with the model, pairs it with the scraped page metadata
// (summary, favicon, cover image), and merges the metadata half.
func (o *Orchestrator) articleMetadataTask(url, html string) content.TaskFunc {
	return func(ctx context.Context) error {
		var extracted struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Author      string `json:"author"`
			PublishDate string `json:"publish_date"`
		}
		err := o.generator.ExtractStructured(ctx, content.TextRequest{
			Model:        modelExtract,
			SystemPrompt: articleMetaSystemPrompt,
			UserPrompt:   "Extract metadata from the following article: " + html,
			LogKey:       "extract-meta",
		}, &extracted)
		if err != nil {
			return fmt.Errorf("extract article metadata: %w", err)
		}

		page, err := o.scraper.ScrapePage(ctx, url)
		if err != nil {
			return fmt.Errorf("scrape article page: %w", err)
		}

		_, err = o.store.MergeMetadata(ctx, url, content.MetadataPatch{
			Kind: content.KindArticle,
			Article: &content.ArticleMetadata{
				Title:       extracted.Title,
				Summary:     page.Summary,
				Author:      extracted.Author,
				PublishDate: extracted.PublishDate,
				Description: extracted.Description,
				Favicon:     page.Favicon,
				CoverImage:  page.OGImage,
			},
		})
		if err != nil {
			return err
		}
		telemetry.ObserveMerge("metadata")
		return nil
	}
}

// articleBodyTask converts the cleaned HTML to markdown and merges the body
// half.
func (o *Orchestrator) articleBodyTask(url, html string) content.TaskFunc {
	return func(ctx context.Context) error {
		markdown, err := o.generator.GenerateText(ctx, content.TextRequest{
			Model:        modelMarkdown,
			SystemPrompt: markdownSystemPrompt,
			UserPrompt:   "Convert the following HTML content to Markdown:\n\n" + html,
			LogKey:       "html-to-md",
		})
		if err != nil {
			return fmt.Errorf("convert html to markdown: %w", err)
		}

		_, err = o.store.MergeBody(ctx, url, content.BodyPatch{
			Kind: content.KindArticle,
			Body: markdown,
		})
		if err != nil {
			return err
		}
		telemetry.ObserveMerge("body")
		return nil
	}
}

// videoMetadataTask scrapes the watch page for title, thumbnail, favicon and
// upload date, asks the model for the channel details the scrape cannot
// recover, and merges the metadata half.
func (o *Orchestrator) videoMetadataTask(url string) content.TaskFunc {
	return func(ctx context.Context) error {
		page, err := o.scraper.ScrapePage(ctx, url)
		if err != nil {
			return fmt.Errorf("scrape video page: %w", err)
		}

		var extracted struct {
			ChannelName string  `json:"channel_name"`
			ChannelURL  string  `json:"channel_url"`
			Duration    float64 `json:"duration"`
		}
		err = o.generator.ExtractStructured(ctx, content.TextRequest{
			Model:        modelExtract,
			SystemPrompt: videoExtractSystemPrompt,
			UserPrompt: fmt.Sprintf(
				"Extract the channel name, channel url, and video duration (in seconds) for the video at %s.\n\nPage title: %s\nPage summary: %s",
				url, page.Title, page.Summary,
			),
			LogKey: "extract-video-meta",
		}, &extracted)
		if err != nil {
			return fmt.Errorf("extract video details: %w", err)
		}

		_, err = o.store.MergeMetadata(ctx, url, content.MetadataPatch{
			Kind: content.KindVideo,
			Video: &content.VideoMetadata{
				Title:           page.Title,
				Thumbnail:       page.OGImage,
				Favicon:         page.Favicon,
				PublishDate:     page.UploadDate,
				ChannelName:     extracted.ChannelName,
				ChannelURL:      extracted.ChannelURL,
				DurationSeconds: int(extracted.Duration),
			},
		})
		if err != nil {
			return err
		}
		telemetry.ObserveMerge("metadata")
		return nil
	}
}

// videoBodyTask fetches the raw transcript, cleans it up, summarizes it, and
// merges both as the body half.
func (o *Orchestrator) videoBodyTask(url string) content.TaskFunc {
	return func(ctx context.Context) error {
		raw, err := o.transcripts.FetchTranscript(ctx, url)
		if err != nil {
			return fmt.Errorf("fetch transcript: %w", err)
		}

		transcript, err := o.generator.GenerateText(ctx, content.TextRequest{
			Model:        modelTranscript,
			SystemPrompt: transcriptSystemPrompt,
			UserPrompt:   "Improve the readability of the following video transcript:\n\n" + raw,
			LogKey:       "transcript-improve",
		})
		if err != nil {
			return fmt.Errorf("improve transcript: %w", err)
		}

		summary, err := o.generator.GenerateText(ctx, content.TextRequest{
			Model:        modelTranscript,
			SystemPrompt: summarySystemPrompt,
			UserPrompt:   "Summarize the following video transcript:\n\n" + transcript,
			LogKey:       "transcript-summarize",
		})
		if err != nil {
			return fmt.Errorf("summarize transcript: %w", err)
		}

		_, err = o.store.MergeBody(ctx, url, content.BodyPatch{
			Kind:    content.KindVideo,
			Body:    transcript,
			Summary: summary,
		})
		if err != nil {
			return err
		}
		telemetry.ObserveMerge("body")
		return nil
	}
}
