package indexer

// DefaultChunkSize is the number of tokens per chunk when none is configured.
const DefaultChunkSize = 500

// Chunker splits text into fixed-size token windows.
type Chunker struct {
	tokenizer Tokenizer
}

// NewChunker creates a chunker backed by tokenizer.
func NewChunker(tokenizer Tokenizer) *Chunker {
	return &Chunker{tokenizer: tokenizer}
}

// SplitTokens encodes text and cuts the tokens into consecutive windows of
// chunkSize. The last window holds the remainder. chunkSize <= 0 uses DefaultChunkSize.
func (c *Chunker) SplitTokens(text string, chunkSize int) [][]int {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if text == "" {
		return [][]int{}
	}

	tokens := c.tokenizer.Encode(text)
	windows := make([][]int, 0, (len(tokens)+chunkSize-1)/chunkSize)
	for start := 0; start < len(tokens); start += chunkSize {
		end := min(start+chunkSize, len(tokens))
		windows = append(windows, tokens[start:end])
	}
	return windows
}

// Chunk is one decoded token window.
type Chunk struct {
	Text   string
	Tokens int
}

// Chunks returns each token window decoded to text along with its token count, in order.
// A window boundary may fall inside a multi-byte character; concatenating
// the texts always reproduces the original bytes.
func (c *Chunker) Chunks(text string, chunkSize int) []Chunk {
	windows := c.SplitTokens(text, chunkSize)
	chunks := make([]Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = Chunk{Text: c.tokenizer.Decode(w), Tokens: len(w)}
	}
	return chunks
}

// Split returns the decoded text of each token window, in order.
func (c *Chunker) Split(text string, chunkSize int) []string {
	chunks := c.Chunks(text, chunkSize)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	return texts
}
