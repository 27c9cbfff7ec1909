package result

// Frame is one fused frame hit. Score is nil for keyword modes.
type Frame struct {
	Path  string
	Score *float64
}

// Video groups the ranked frames of one video.
type Video struct {
	VideoID    string
	VideoScore *float64
	BestRank   int
	Frames     []Frame
	AllFrames  []string
}

// Response is the frame-level and video-level answer to one query.
type Response struct {
	Frames []Frame
	Videos []Video
}

// Empty returns a response with non-nil empty slices.
func Empty() Response {
	return Response{Frames: []Frame{}, Videos: []Video{}}
}


// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
