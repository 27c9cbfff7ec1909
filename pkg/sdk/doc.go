// Package kfsearch runs keyframe retrieval queries in-process.
//
// The client loads the same YAML configuration as the kfsearch server,
// connects to the configured vector and full-text backends, and returns
// frame-level and video-level results with the same ordering guarantees.
//
//	client, err := kfsearch.New(ctx, kfsearch.WithConfigFile("config/local.yaml"))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	resp, err := client.Search(ctx, "a red car",
//	    kfsearch.WithMode(kfsearch.ModeDenseCaption),
//	    kfsearch.WithK(200),
//	)
//
// Keyword modes (ModeOCR, ModeSpeech) return hits in backend order with nil scores.
package kfsearch
