package engine

// WordCount is one ranked entry of a snapshot's top words.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Snapshot is a point-in-time copy of the window state. It shares no memory
// with the engine that produced it.
type Snapshot struct {
	WordFrequencies     map[string]int `json:"word_frequencies"`
	TopWords            []WordCount    `json:"top_words"`
	TotalWordsProcessed int            `json:"total_words_processed"`
	CurrentQueueSize    int            `json:"current_queue_size"`
	LatestWord          string         `json:"latest_word,omitempty"`
	// Frame is the 1-based emission index within a processing run, or 0 for
	// snapshots taken directly with Engine.Snapshot.
	Frame int `json:"frame"`
}

// DistinctWords is the number of distinct tokens in the window.
func (s Snapshot) DistinctWords() int {
	return len(s.WordFrequencies)
}
