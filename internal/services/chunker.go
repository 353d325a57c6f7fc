package services

type TextChunker interface {
	ChunkText(text string, chunkSize int, overlap int) []string
}

type windowChunker struct{}

func NewTextChunker() TextChunker {
	return &windowChunker{}
}

// ChunkText implements TextChunker. It cuts text into consecutive windows of chunkSize
// runes, each starting chunkSize-overlap runes after the previous one.
func (wc *windowChunker) ChunkText(text string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := chunkSize - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
