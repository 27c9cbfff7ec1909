package search

import "testing"

func TestAssemble(t *testing.T) {
	ranked := []fused{
		{path: "L01/L01_V001/2.jpg", score: 1, hasScore: true},
		{path: "a/1.jpg", score: 0.5, hasScore: true, rank: 1},
	}
	groups := groupByVideo(ranked)
	groups[0].allFrames = []string{"L01/L01_V001/1.jpg", "L01/L01_V001/2.jpg"}

	resp := assemble(ranked, groups, DefaultPublicRoot)

	if len(resp.Frames) != 2 || resp.Frames[0].Path != "/images/Keyframes/L01/L01_V001/2.jpg" {
		t.Fatalf("unexpected frames: %+v", resp.Frames)
	}
	if resp.Frames[1].Score == nil || *resp.Frames[1].Score != 0.5 {
		t.Errorf("expected score 0.5, got %v", resp.Frames[1].Score)
	}
	if len(resp.Videos) != 1 {
		t.Fatalf("expected 1 video, got %d", len(resp.Videos))
	}
	v := resp.Videos[0]
	if v.VideoID != "L01_V001" || v.BestRank != 0 || v.VideoScore == nil || *v.VideoScore != 1 {
		t.Errorf("unexpected video: %+v", v)
	}
	if v.AllFrames[0] != "/images/Keyframes/L01/L01_V001/1.jpg" {
		t.Errorf("all_frames must be prefixed, got %v", v.AllFrames)
	}
}

func TestAssemble_KeywordScoresAreNil(t *testing.T) {
	ranked := []fused{{path: "L01/L01_V001/2.jpg"}}
	resp := assemble(ranked, groupByVideo(ranked), DefaultPublicRoot)

	if resp.Frames[0].Score != nil || resp.Videos[0].VideoScore != nil {
		t.Error("keyword results must have nil scores")
	}
	if resp.Videos[0].AllFrames == nil {
		t.Error("all_frames must never be nil")
	}
}

func TestPublicPath(t *testing.T) {
	tests := []struct{ root, p, want string }{
		{"/images/Keyframes/", "L01/L01_V001/1.jpg", "/images/Keyframes/L01/L01_V001/1.jpg"},
		{"/images/Keyframes", "/L01/1.jpg", "/images/Keyframes/L01/1.jpg"},
		{"/static/", `L01\L01_V001\1.jpg`, "/static/L01/L01_V001/1.jpg"},
	}
	for _, tc := range tests {
		if got := publicPath(tc.root, tc.p); got != tc.want {
			t.Errorf("publicPath(%q, %q) = %q, want %q", tc.root, tc.p, got, tc.want)
		}
	}
}
