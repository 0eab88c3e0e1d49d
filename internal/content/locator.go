// Package content locates the WordPress content root inside an extracted
// archive tree. Third-party backup tools nest wp-content at unpredictable
// depths, so discovery is a scored scan rather than a fixed path.
package content

import (
	"os"
	"path/filepath"
)

// MaxDepth bounds how deep below the scan root candidate directories are
// considered. Archives rarely wrap the content directory more than a few
// levels deep, and an unbounded walk over a large uploads tree is wasteful.
const MaxDepth = 4

// markers are the child directories that identify a content root.
var markers = [...]string{"plugins", "themes", "uploads"}

// Locate scans root for the directory most likely to be the WordPress
// content root. Each candidate scores one point per marker child
// (plugins, themes, uploads). The highest score wins; on a tie the
// shallower directory wins. Returns false if nothing scores above zero.
func Locate(root string) (string, bool) {
	type candidate struct {
		path  string
		depth int
	}

	best := ""
	bestScore := 0

	// Breadth-first so the first perfect score is also the shallowest,
	// which lets us stop early.
	queue := []candidate{{path: root, depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		score, subdirs := scoreDir(cur.path)
		if score > bestScore {
			best = cur.path
			bestScore = score
			if score == len(markers) {
				return best, true
			}
		}

		if cur.depth < MaxDepth {
			for _, sub := range subdirs {
				queue = append(queue, candidate{path: sub, depth: cur.depth + 1})
			}
		}
	}

	if bestScore == 0 {
		return "", false
	}
	return best, true
}

// scoreDir counts marker children of dir and returns its subdirectories
// for further scanning. Unreadable directories score zero.
func scoreDir(dir string) (int, []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, nil
	}

	score := 0
	var subdirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		subdirs = append(subdirs, filepath.Join(dir, entry.Name()))
		for _, m := range markers {
			if entry.Name() == m {
				score++
				break
			}
		}
	}
	return score, subdirs
}
