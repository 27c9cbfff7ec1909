package search

import (
	"context"
	"fmt"
	"path"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/domain/frame"
)

// DefaultListingWorkers bounds concurrent directory listings per request.
const DefaultListingWorkers = 8

// videoGroup collects the ranked frames of one video.
// bestRank and the score are fixed by the first frame seen.
type videoGroup struct {
	id        string
	score     float64
	hasScore  bool
	bestRank  int
	frames    []fused
	allFrames []string
}

// groupByVideo walks the ranked list once. Frames whose path has no video id are skipped.
func groupByVideo(ranked []fused) []*videoGroup {
	index := make(map[string]int)
	var groups []*videoGroup

	for pos, f := range ranked {
		id, ok := frame.VideoID(f.path)
		if !ok {
			continue
		}
		i, seen := index[id]
		if !seen {
			i = len(groups)
			index[id] = i
			groups = append(groups, &videoGroup{
				id:       id,
				score:    f.score,
				hasScore: f.hasScore,
				bestRank: pos,
			})
		}
		groups[i].frames = append(groups[i].frames, f)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].bestRank < groups[j].bestRank
	})
	return groups
}

// listAllFrames fills allFrames for every group with at most workers
// listings in flight. Paths are relative to the keyframe root.
func listAllFrames(ctx context.Context, store FrameStore, groups []*videoGroup, workers int) error {
	if workers <= 0 {
		workers = DefaultListingWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, vg := range groups {
		g.Go(func() error {
			dir := frame.Dir(vg.id)
			names, err := store.ListImages(gctx, dir)
			if err != nil {
				return fmt.Errorf("list frames of %s: %w: %w", vg.id, domain.ErrBackendUnavailable, err)
			}
			all := make([]string, len(names))
			for i, n := range names {
				all[i] = path.Join(dir, n)
			}
			vg.allFrames = all
			return nil
		})
	}
	return g.Wait() //nolint:wrapcheck // errors wrapped inside
}
