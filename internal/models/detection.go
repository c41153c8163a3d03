package models

import (
	"encoding/json"
	"maps"
)

// DetectionResult is what the UI shows for the most recent frame. Nil
// pointers mean "no value yet".
type DetectionResult struct {
	FaceCount     *int               `json:"face_count"`
	Sentiment     *string            `json:"sentiment"`
	EmotionDetail *string            `json:"emotion_detail"`
	EmotionCounts map[string]float64 `json:"emotion_counts"`
	Raw           json.RawMessage    `json:"raw,omitempty"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r DetectionResult) Clone() DetectionResult {
	return DetectionResult{
		FaceCount:     cloneInt(r.FaceCount),
		Sentiment:     cloneString(r.Sentiment),
		EmotionDetail: cloneString(r.EmotionDetail),
		EmotionCounts: maps.Clone(r.EmotionCounts),
		Raw:           append(json.RawMessage(nil), r.Raw...),
	}
}

func NewDetectionResult(resp *VisionResponse) DetectionResult {
	counts := make(map[string]float64, len(resp.EmotionCounts))
	maps.Copy(counts, resp.EmotionCounts)

	return DetectionResult{
		FaceCount:     cloneInt(resp.FaceCount),
		Sentiment:     cloneString(resp.Sentiment),
		EmotionDetail: cloneString(resp.EmotionDetail),
		EmotionCounts: counts,
		Raw:           append(json.RawMessage(nil), resp.Raw...),
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
