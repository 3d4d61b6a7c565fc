// Package dedup partitions fingerprinted videos into duplicate groups from
// pairwise similarity observations.
package dedup

import (
	"sort"
)

// Video is the clustering view of an indexed video: identity plus the
// metadata the representative tie-break inspects.
type Video struct {
	ID       int64   `json:"id"`
	Source   string  `json:"source"`
	Title    string  `json:"title,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	// Seen is the insertion order within the run; lower means earlier.
	Seen int `json:"seen"`
}

// Edge is one similarity observation between two videos. Direction does not
// matter; both (A,B) and (B,A) may be reported and carry the same meaning.
type Edge struct {
	A     int64
	B     int64
	Score float64
}

// Member is one video inside a duplicate group with its similarity to the
// group representative.
type Member struct {
	Video          Video   `json:"video"`
	Similarity     float64 `json:"similarity"`
	Representative bool    `json:"representative"`
}

// Group is a maximal set of videos connected, directly or transitively, by
// above-threshold similarity. The representative comes first.
type Group struct {
	Members []Member `json:"members"`
}

func (g Group) Representative() Video {
	return g.Members[0].Video
}

// Clusterer computes duplicate groups with an inclusive similarity threshold.
type Clusterer struct {
	threshold float64
}

func NewClusterer(threshold float64) *Clusterer {
	return &Clusterer{threshold: threshold}
}

type pair struct{ lo, hi int64 }

func orderedPair(a, b int64) pair {
	if a > b {
		a, b = b, a
	}
	return pair{lo: a, hi: b}
}

// Cluster unions every pair whose score reaches the threshold in either
// direction and reports connected components of two or more videos as
// duplicate groups. The partition and the representative choice are
// deterministic for a fixed input set.
func (c *Clusterer) Cluster(videos []Video, edges []Edge) []Group {
	if len(videos) < 2 {
		return nil
	}

	ordered := make([]Video, len(videos))
	copy(ordered, videos)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	indexOf := make(map[int64]int, len(ordered))
	for i, v := range ordered {
		indexOf[v.ID] = i
	}

	// Best observed score per unordered pair. Top-k truncation is
	// asymmetric, so an edge counts whichever direction reported it.
	best := make(map[pair]float64)
	uf := newUnionFind(len(ordered))
	for _, e := range edges {
		ia, okA := indexOf[e.A]
		ib, okB := indexOf[e.B]
		if !okA || !okB || ia == ib {
			continue
		}
		key := orderedPair(e.A, e.B)
		if e.Score > best[key] {
			best[key] = e.Score
		}
		if e.Score >= c.threshold {
			uf.union(ia, ib)
		}
	}

	components := make(map[int][]Video)
	for i, v := range ordered {
		root := uf.find(i)
		components[root] = append(components[root], v)
	}

	roots := make([]int, 0, len(components))
	for root, members := range components {
		if len(members) >= 2 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	groups := make([]Group, 0, len(roots))
	for _, root := range roots {
		groups = append(groups, c.buildGroup(components[root], best))
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Representative().ID < groups[j].Representative().ID
	})
	return groups
}

func (c *Clusterer) buildGroup(videos []Video, best map[pair]float64) Group {
	rep := videos[0]
	for _, v := range videos[1:] {
		if betterRepresentative(v, rep) {
			rep = v
		}
	}

	members := make([]Member, 0, len(videos))
	members = append(members, Member{Video: rep, Similarity: 1, Representative: true})
	for _, v := range videos {
		if v.ID == rep.ID {
			continue
		}
		members = append(members, Member{Video: v, Similarity: c.memberSimilarity(v, rep, videos, best)})
	}

	rest := members[1:]
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].Similarity != rest[j].Similarity {
			return rest[i].Similarity > rest[j].Similarity
		}
		return rest[i].Video.ID < rest[j].Video.ID
	})
	return Group{Members: members}
}

// memberSimilarity prefers the direct edge to the representative; when the
// transitive closure joined videos that were never directly compared, the
// strongest edge to any other group member stands in.
func (c *Clusterer) memberSimilarity(v, rep Video, group []Video, best map[pair]float64) float64 {
	if score, ok := best[orderedPair(v.ID, rep.ID)]; ok {
		return score
	}
	max := 0.0
	for _, other := range group {
		if other.ID == v.ID {
			continue
		}
		if score, ok := best[orderedPair(v.ID, other.ID)]; ok && score > max {
			max = score
		}
	}
	return max
}

// betterRepresentative prefers richer metadata: higher resolution, then
// longer duration, then earliest-seen, with the lower id as the final
// deterministic tie-break.
func betterRepresentative(a, b Video) bool {
	ra, rb := a.Width*a.Height, b.Width*b.Height
	if ra != rb {
		return ra > rb
	}
	if a.Duration != b.Duration {
		return a.Duration > b.Duration
	}
	if a.Seen != b.Seen {
		return a.Seen < b.Seen
	}
	return a.ID < b.ID
}
