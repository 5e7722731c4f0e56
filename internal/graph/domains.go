package graph

import (
	"sort"
	"strings"

	"github.com/conceptmesh/conceptmesh-backend/internal/types"
)

// UnknownDomain is the sentinel returned when none of a node's source chunks
// map back to a discipline.
const UnknownDomain = "unknown"

// sourceIDSeparators in priority order. The first separator present in the
// provenance string wins; tokens produced by it are not re-split by the
// later separators, so a comma inside a <SEP>-delimited chunk id stays
// intact.
var sourceIDSeparators = []string{"<SEP>", ",", "\n"}

// ParseSourceIDs splits an extraction engine provenance string into chunk
// ids.
func ParseSourceIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	for _, sep := range sourceIDSeparators {
		if !strings.Contains(raw, sep) {
			continue
		}
		parts := strings.Split(raw, sep)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return []string{strings.TrimSpace(raw)}
}

// ResolveDomains attributes a node to academic domains by unioning the
// domains of every source chunk found in the mapping. More than one domain
// means the node is genuinely cross-domain and all of them are returned,
// sorted for determinism. No matches yields the unknown sentinel.
func ResolveDomains(chunkIDs []string, chunkMap types.ChunkDomainMap) []string {
	set := make(map[string]bool)
	for _, cid := range chunkIDs {
		info, ok := chunkMap[cid]
		if !ok {
			continue
		}
		for _, d := range info.Domains {
			set[d] = true
		}
	}
	if len(set) == 0 {
		return []string{UnknownDomain}
	}
	domains := make([]string, 0, len(set))
	for d := range set {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}
