//go:build !amd64 && !arm64

package discover

import "github.com/fatlib/fatlib/features"

func detectHost() features.Set {
	// Unknown architecture: only baseline variants will be selected.
	return features.New()
}
