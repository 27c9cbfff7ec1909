package search

import (
	"strings"

	"github.com/kailas-cloud/kfsearch/internal/domain/search/result"
)

// DefaultPublicRoot is the URL prefix under which keyframes are served.
const DefaultPublicRoot = "/images/Keyframes/"

// assemble builds the response, prefixing every path with the public root.
func assemble(ranked []fused, groups []*videoGroup, publicRoot string) result.Response {
	resp := result.Response{
		Frames: make([]result.Frame, len(ranked)),
		Videos: make([]result.Video, len(groups)),
	}
	for i, f := range ranked {
		resp.Frames[i] = toFrame(f, publicRoot)
	}

	for i, g := range groups {
		v := result.Video{
			VideoID:   g.id,
			BestRank:  g.bestRank,
			Frames:    make([]result.Frame, len(g.frames)),
			AllFrames: make([]string, len(g.allFrames)),
		}
		if g.hasScore {
			v.VideoScore = result.Float(g.score)
		}
		for j, f := range g.frames {
			v.Frames[j] = toFrame(f, publicRoot)
		}
		for j, p := range g.allFrames {
			v.AllFrames[j] = publicPath(publicRoot, p)
		}
		resp.Videos[i] = v
	}
	return resp
}

func toFrame(f fused, publicRoot string) result.Frame {
	fr := result.Frame{Path: publicPath(publicRoot, f.path)}
	if f.hasScore {
		fr.Score = result.Float(f.score)
	}
	return fr
}

func publicPath(root, p string) string {
	p = strings.TrimLeft(strings.ReplaceAll(p, `\`, "/"), "/")
	return strings.TrimRight(root, "/") + "/" + p
}
