package firestore

import (
	"strconv"
	"time"

	"github.com/tareqlive/newsworker/internal/news"
)

// Value is a Firestore REST typed value. Exactly one field is set.
type Value struct {
	StringValue    *string     `json:"stringValue,omitempty"`
	IntegerValue   *string     `json:"integerValue,omitempty"`
	BooleanValue   *bool       `json:"booleanValue,omitempty"`
	TimestampValue *string     `json:"timestampValue,omitempty"`
	ArrayValue     *ArrayValue `json:"arrayValue,omitempty"`
}

type ArrayValue struct {
	Values []Value `json:"values"`
}

// Document is the request and response body of the documents API.
type Document struct {
	Name       string           `json:"name,omitempty"`
	Fields     map[string]Value `json:"fields"`
	CreateTime string           `json:"createTime,omitempty"`
}

func String(s string) Value { return Value{StringValue: &s} }

// Integer encodes n the way the REST API expects int64 values: as a string.
func Integer(n int64) Value {
	s := strconv.FormatInt(n, 10)
	return Value{IntegerValue: &s}
}

func Bool(b bool) Value { return Value{BooleanValue: &b} }

func Timestamp(t time.Time) Value {
	s := t.UTC().Format(time.RFC3339Nano)
	return Value{TimestampValue: &s}
}

func Strings(ss []string) Value {
	values := make([]Value, 0, len(ss))
	for _, s := range ss {
		values = append(values, String(s))
	}
	return Value{ArrayValue: &ArrayValue{Values: values}}
}

// ArticleDocument maps a persisted article onto the site's article schema.
func ArticleDocument(a news.Persisted) Document {
	return Document{Fields: map[string]Value{
		"slug":           String(a.Slug),
		"title":          String(a.Title),
		"content":        String(a.Content),
		"summary":        String(a.Summary),
		"category":       String(a.Category),
		"categorySlug":   String(a.Category),
		"keywords":       Strings(a.Keywords),
		"imageUrl":       String(a.ImageURL),
		"imageThumbnail": String(a.ImageThumbnail),
		"source":         String(a.SourceLink),
		"originalUrl":    String(a.OriginalURL),
		"readingTime":    Integer(int64(a.ReadingMinutes)),
		"status":         String(a.Status),
		"views":          Integer(int64(a.Views)),
		"likes":          Integer(int64(a.Likes)),
		"featured":       Bool(a.Featured),
		"trending":       Bool(a.Trending),
		"publishedAt":    Timestamp(a.PublishedAt),
		"createdAt":      Timestamp(a.CreatedAt),
		"updatedAt":      Timestamp(a.UpdatedAt),
	}}
}
