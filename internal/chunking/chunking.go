// Package chunking partitions a normalized screenplay into provider-sized
// pieces along scene boundaries.
package chunking

import "github.com/jonathan/script-agent/internal/types"

// ByScene splits rows into chunks that each begin at a scene header, except
// the first, which also holds any rows preceding the first header. The
// concatenation of the returned chunks is always equal to rows.
func ByScene(rows []types.NormalizedRow) []types.Chunk {
	var chunks []types.Chunk
	var current types.Chunk

	for _, row := range rows {
		if row.Type == types.RowSceneHeader && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
		}
		current = append(current, row)
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}
