package models

import (
	"encoding/json"
	"math"
)

// VisionResponse is the body returned by POST /vision. Every field is
// optional and decoded on its own: a field with an unexpected shape is left
// at its zero value instead of failing the whole frame.
type VisionResponse struct {
	FaceCount       *int               `json:"face_count"`
	Bytes           int                `json:"bytes,omitempty"`
	Sentiment       *string            `json:"sentiment,omitempty"`
	EmotionDetail   *string            `json:"emotion_detail,omitempty"`
	EmotionCounts   map[string]float64 `json:"emotion_counts,omitempty"`
	EmotionRaw      *string            `json:"emotion_raw,omitempty"`
	SentimentSource string             `json:"sentiment_source,omitempty"`
	SentimentError  *string            `json:"sentiment_error,omitempty"`
	Debug           *VisionDebug       `json:"debug,omitempty"`

	// Raw is the undecoded body, unknown fields included.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON only fails when data is not a JSON object.
func (r *VisionResponse) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = VisionResponse{
		FaceCount:       wholeNumber(fields["face_count"]),
		Sentiment:       field[*string](fields, "sentiment"),
		EmotionDetail:   field[*string](fields, "emotion_detail"),
		EmotionCounts:   field[map[string]float64](fields, "emotion_counts"),
		EmotionRaw:      field[*string](fields, "emotion_raw"),
		SentimentSource: field[string](fields, "sentiment_source"),
		SentimentError:  field[*string](fields, "sentiment_error"),
		Debug:           field[*VisionDebug](fields, "debug"),
		Raw:             append(json.RawMessage(nil), data...),
	}
	if n := wholeNumber(fields["bytes"]); n != nil {
		r.Bytes = *n
	}

	return nil
}

func field[T any](fields map[string]json.RawMessage, key string) T {
	var v T
	raw, ok := fields[key]
	if !ok {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// wholeNumber accepts 3 and 3.0. Null, fractions and non-numbers give nil.
func wholeNumber(raw json.RawMessage) *int {
	var f *float64
	if raw == nil || json.Unmarshal(raw, &f) != nil || f == nil {
		return nil
	}
	if *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		return nil
	}
	n := int(*f)
	return &n
}

type VisionDebug struct {
	DetectedFaces int    `json:"detected_faces"`
	AnalyzedFaces int    `json:"analyzed_faces"`
	CountsSource  string `json:"counts_source"`
}

type SentimentRequest struct {
	Text string `json:"text"`
}

type SentimentResponse struct {
	Sentiment string `json:"sentiment"`
}

type EmotionConfig struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"token"`
	Model    string `json:"model"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
