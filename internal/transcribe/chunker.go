package transcribe

// Chunk is one contiguous byte-bounded slice of an audio payload, sent as a
// single transcription request.
type Chunk struct {
	Index int
	Data  []byte
}

// Size returns the chunk's byte length.
func (c Chunk) Size() int { return len(c.Data) }

// SplitAudio splits an audio payload into maxChunkSize-bounded chunks in
// strictly increasing byte-offset order. Chunk i covers
// [i*maxChunkSize, min((i+1)*maxChunkSize, len(audio))). An empty payload
// yields zero chunks. Chunks alias the input slice; callers must not mutate
// the payload while chunks are in flight.
func SplitAudio(audio []byte, maxChunkSize int) []Chunk {
	if maxChunkSize <= 0 || len(audio) == 0 {
		return nil
	}
	n := (len(audio) + maxChunkSize - 1) / maxChunkSize
	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		start := i * maxChunkSize
		end := start + maxChunkSize
		if end > len(audio) {
			end = len(audio)
		}
		chunks = append(chunks, Chunk{Index: i, Data: audio[start:end]})
	}
	return chunks
}
