package kfsearch

// Mode selects the retrieval path.
type Mode string

// Search modes.
const (
	ModeDenseCaption   Mode = "dense-caption"
	ModeDenseNoCaption Mode = "dense-nocap"
	ModeOCR            Mode = "ocr"
	ModeSpeech         Mode = "speech"
)

// Frame is one ranked keyframe. Score is nil in keyword modes.
type Frame struct {
	Path  string   `json:"path"`
	Score *float64 `json:"score"`
}

// Video groups the ranked keyframes of one video.
// BestRank is the position of its first frame in Response.Frames.
type Video struct {
	ID        string   `json:"video_id"`
	Score     *float64 `json:"video_score"`
	BestRank  int      `json:"best_rank"`
	Frames    []Frame  `json:"frames"`
	AllFrames []string `json:"all_frames"`
}

// Response is the answer to one query. It marshals to the same JSON as GET /search.
type Response struct {
	Frames []Frame `json:"frame_results"`
	Videos []Video `json:"video_results"`
}
